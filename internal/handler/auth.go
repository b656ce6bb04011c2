package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avialex/api/internal/auth"
	"github.com/avialex/api/internal/config"
	"github.com/avialex/api/internal/mail"
	"github.com/avialex/api/internal/model"
	"github.com/avialex/api/internal/repository"
)

// resetTokenTTL is how long a password reset link stays valid.
const resetTokenTTL = 30 * time.Minute

// AuthHandler owns the account lifecycle: sign-up, sign-in, token refresh,
// sign-out and password recovery.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Jtis   *repository.RevokedJtiRepo
	Resets *repository.ResetRepo
	Issuer *auth.TokenIssuer
	Mailer *mail.Mailer
}

type signupRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	CPF      string `json:"cpf"`
	RG       string `json:"rg"`
	Type     string `json:"type"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	ExpiresAt    int64  `json:"expiresAtEpochMillis"`
	RefreshToken string `json:"refreshToken"`
}

// issuePair signs an access token for the user and stores a fresh refresh
// token alongside it, tagged with the caller's user agent and IP.
func issuePair(ctx context.Context, c echo.Context, cfg config.Config, issuer *auth.TokenIssuer, tokens *repository.TokenRepo, u model.User) (tokenPair, error) {
	access, expMillis, err := issuer.Issue(u)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := auth.NewRefreshToken(cfg.RefreshTTLMin)
	if err != nil {
		return tokenPair{}, err
	}
	if err := tokens.Store(ctx, u.ID, auth.HashRefreshRaw(refresh.Raw), refresh.Exp,
		c.Request().UserAgent(), c.RealIP()); err != nil {
		return tokenPair{}, err
	}
	return tokenPair{AccessToken: access, ExpiresAt: expMillis, RefreshToken: refresh.Raw}, nil
}

// Signup registers a new account and signs it in. Self-registered accounts
// default to CLIENT; other types must be one of the known values.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name, email and password are required"})
	}
	typ := model.UserTypeClient
	if req.Type != "" {
		t, ok := model.ParseUserType(req.Type)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user type"})
		}
		typ = t
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	id, err := h.Users.Create(ctx, model.User{
		Name:    req.Name,
		Address: req.Address,
		Email:   req.Email,
		Phone:   req.Phone,
		CPF:     req.CPF,
		RG:      req.RG,
		Type:    typ,
	}, req.Password, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, repository.ErrCPFExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "cpf already registered"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create user"})
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load user"})
	}
	pair, err := issuePair(ctx, c, h.Cfg, h.Issuer, h.Tokens, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue tokens"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"user":                 u,
		"accessToken":          pair.AccessToken,
		"expiresAtEpochMillis": pair.ExpiresAt,
		"refreshToken":         pair.RefreshToken,
	})
}

// Signin exchanges credentials for a token pair. Unknown email and wrong
// password produce the same 401 so the endpoint does not leak which
// accounts exist.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load user"})
	}
	if !auth.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := issuePair(ctx, c, h.Cfg, h.Issuer, h.Tokens, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue tokens"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Missing, revoked and expired tokens all fail with the
// same 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken is required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	hash := auth.HashRefreshRaw(req.RefreshToken)
	userID, err := h.Tokens.Validate(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not validate token"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not rotate token"})
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	pair, err := issuePair(ctx, c, h.Cfg, h.Issuer, h.Tokens, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue tokens"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Signout revokes the presented refresh token and the bearer token's jti.
// Always answers 200 so repeated sign-outs are harmless.
func (h *AuthHandler) Signout(c echo.Context) error {
	var req refreshRequest
	_ = c.Bind(&req) // body is optional

	ctx, cancel := dbCtx(c)
	defer cancel()

	if req.RefreshToken != "" {
		if err := h.Tokens.RevokeByHash(ctx, auth.HashRefreshRaw(req.RefreshToken)); err != nil {
			log.Printf("signout: revoke refresh token failed: %v", err)
		}
	}
	if jti := getJTI(c); jti != "" {
		if err := h.Jtis.Revoke(ctx, jti); err != nil {
			log.Printf("signout: revoke jti failed: %v", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "signed out"})
}

// SignoutAll revokes every refresh token the user owns plus the current
// bearer token.
func (h *AuthHandler) SignoutAll(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not revoke tokens"})
	}
	if jti := getJTI(c); jti != "" {
		if err := h.Jtis.Revoke(ctx, jti); err != nil {
			log.Printf("signout-all: revoke jti failed: %v", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "signed out everywhere"})
}

// ForgotPassword mails a reset link to the account, if it exists. The
// response is 200 either way so the endpoint cannot be used to probe for
// registered emails.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	ok := echo.Map{"message": "if the email exists, a reset link was sent"}

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("forgot-password: lookup failed: %v", err)
		}
		return c.JSON(http.StatusOK, ok)
	}

	token, err := auth.NewResetToken()
	if err != nil {
		log.Printf("forgot-password: token generation failed: %v", err)
		return c.JSON(http.StatusOK, ok)
	}
	exp := time.Now().UTC().Add(resetTokenTTL)
	if err := h.Resets.Store(ctx, u.ID, token, exp); err != nil {
		log.Printf("forgot-password: store token failed: %v", err)
		return c.JSON(http.StatusOK, ok)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", h.Cfg.PublicURL, token)
	body := fmt.Sprintf(
		"Olá, %s!\n\nRecebemos um pedido para redefinir a sua senha. "+
			"Acesse o link abaixo para criar uma nova senha. O link expira em 30 minutos.\n\n%s\n\n"+
			"Se você não solicitou a redefinição, ignore este e-mail.\n\n"+
			"Atenciosamente,\nEquipe Avialex",
		u.Name, link)
	if err := h.Mailer.Send(u.Email, "Redefinição de senha - Avialex", body); err != nil {
		log.Printf("forgot-password: send mail failed: %v", err)
	}
	return c.JSON(http.StatusOK, ok)
}

// ResetPassword consumes a reset token and sets the new password. All
// active sessions of the account are revoked.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and new_password are required"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	userID, err := h.Resets.Validate(ctx, req.Token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not validate token"})
	}

	hash, err := auth.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not hash password"})
	}
	if err := h.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update password"})
	}
	if err := h.Resets.MarkUsed(ctx, req.Token); err != nil {
		log.Printf("reset-password: mark used failed: %v", err)
	}
	if err := h.Tokens.RevokeAllForUser(ctx, userID); err != nil {
		log.Printf("reset-password: revoke sessions failed: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Sessions lists the caller's active refresh-token sessions with their
// device metadata, so users can see where they are signed in.
func (h *AuthHandler) Sessions(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	sessions, err := h.Tokens.ListActiveForUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list sessions"})
	}
	if sessions == nil {
		sessions = []model.RefreshToken{}
	}
	return c.JSON(http.StatusOK, sessions)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not load user"})
	}
	return c.JSON(http.StatusOK, u)
}
