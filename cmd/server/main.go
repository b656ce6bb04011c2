package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/avialex/api/internal/auth"
	"github.com/avialex/api/internal/config"
	"github.com/avialex/api/internal/database"
	"github.com/avialex/api/internal/handler"
	"github.com/avialex/api/internal/mail"
	"github.com/avialex/api/internal/queue"
	"github.com/avialex/api/internal/repository"
	"github.com/avialex/api/internal/router"
)

func main() {
	// Absent .env is fine in containerized deployments.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("migrations failed: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, response cache disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	jtis := repository.NewRevokedJtiRepo(db)
	resets := repository.NewResetRepo(db)
	processes := repository.NewProcessRepo(db)
	reviews := repository.NewReviewRepo(db)

	issuer := auth.NewTokenIssuer(cfg.Keys, cfg.Audience)
	verifier := auth.NewTokenVerifier(cfg.Keys, cfg.Audience, time.Duration(cfg.ClockSkewSec)*time.Second)
	mailer := mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass)

	authH := &handler.AuthHandler{
		Cfg:    cfg,
		Users:  users,
		Tokens: tokens,
		Jtis:   jtis,
		Resets: resets,
		Issuer: issuer,
		Mailer: mailer,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Deps{
		Auth:      authH,
		OAuth:     handler.NewOAuthHandler(cfg, users, tokens, issuer),
		Users:     &handler.UserHandler{Cfg: cfg, Users: users},
		Processes: handler.NewProcessHandler(processes, users),
		Reviews:   &handler.ReviewHandler{Reviews: reviews},
		Verifier:  verifier,
		Jtis:      jtis,
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
	})

	// Status-change notifications are consumed off-process from the HTTP
	// request path.
	go queue.StartStatusConsumer(mailer)

	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
