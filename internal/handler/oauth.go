package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"

	"github.com/avialex/api/internal/auth"
	"github.com/avialex/api/internal/config"
	"github.com/avialex/api/internal/model"
	"github.com/avialex/api/internal/repository"
)

const oauthStateCookie = "oauth_state"

// OAuthHandler implements social sign-in with GitHub. A successful flow
// lands on the frontend callback page with the token pair in the URL
// fragment, so tokens never hit server logs or Referer headers.
type OAuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Issuer *auth.TokenIssuer
	oc     *oauth2.Config
}

// NewOAuthHandler wires the GitHub OAuth2 client. When no client id is
// configured the handler still registers but both endpoints answer 404.
func NewOAuthHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo, issuer *auth.TokenIssuer) *OAuthHandler {
	return &OAuthHandler{
		Cfg:    cfg,
		Users:  users,
		Tokens: tokens,
		Issuer: issuer,
		oc: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     githuboauth.Endpoint,
		},
	}
}

func (h *OAuthHandler) enabled() bool { return h.Cfg.GitHubClientID != "" }

// Login starts the OAuth2 flow: stores a random state in a short-lived
// cookie and redirects the browser to GitHub's consent page.
func (h *OAuthHandler) Login(c echo.Context) error {
	if !h.enabled() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "social login is not configured"})
	}
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.oc.AuthCodeURL(state))
}

// githubUser is the subset of GitHub's /user response the flow needs.
type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Callback finishes the flow: verifies state, exchanges the code, resolves
// the GitHub account to a local user (creating a CLIENT on first login) and
// redirects to the frontend with a fresh token pair in the fragment.
func (h *OAuthHandler) Callback(c echo.Context) error {
	if !h.enabled() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "social login is not configured"})
	}
	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "state mismatch"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing code"})
	}

	ctx := c.Request().Context()
	tok, err := h.oc.Exchange(ctx, code)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "code exchange failed"})
	}

	gu, err := fetchGithubUser(c, tok)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "could not load github profile"})
	}

	dbctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(dbctx, gu.email())
	if errors.Is(err, repository.ErrNotFound) {
		u, err = h.createFromGithub(c, gu)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve account"})
	}

	pair, err := issuePair(dbctx, c, h.Cfg, h.Issuer, h.Tokens, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue tokens"})
	}
	payload, err := json.Marshal(pair)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not encode tokens"})
	}
	target := fmt.Sprintf("%s/auth/callback#tokens=%s", h.Cfg.PublicURL, url.QueryEscape(string(payload)))
	return c.Redirect(http.StatusFound, target)
}

// createFromGithub provisions a CLIENT account for a first-time social
// login. The password is random and never disclosed; such accounts can only
// sign in through the provider or via password reset.
func (h *OAuthHandler) createFromGithub(c echo.Context, gu githubUser) (model.User, error) {
	ctx, cancel := dbCtx(c)
	defer cancel()

	name := gu.Name
	if name == "" {
		name = gu.Login
	}
	id, err := h.Users.Create(ctx, model.User{
		Name:  name,
		Email: gu.email(),
		CPF:   fmt.Sprintf("gh-%d", gu.ID),
		Type:  model.UserTypeClient,
	}, uuid.NewString(), h.Cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	return h.Users.GetByID(ctx, id)
}

// email resolves a usable address for the GitHub account. Users who hide
// their email get the noreply form; accounts with neither get a synthetic
// one so find-or-create stays stable across logins.
func (g githubUser) email() string {
	switch {
	case g.Email != "":
		return g.Email
	case g.Login != "":
		return fmt.Sprintf("%s@users.noreply.github.com", g.Login)
	default:
		return fmt.Sprintf("github-%d@oauth.local", g.ID)
	}
}

func fetchGithubUser(c echo.Context, tok *oauth2.Token) (githubUser, error) {
	ctx := c.Request().Context()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user", nil)
	if err != nil {
		return githubUser{}, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return githubUser{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return githubUser{}, fmt.Errorf("github /user returned %d", resp.StatusCode)
	}
	var gu githubUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return githubUser{}, err
	}
	return gu, nil
}
