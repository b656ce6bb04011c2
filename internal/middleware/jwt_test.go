package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avialex/api/internal/auth"
	"github.com/avialex/api/internal/config"
	"github.com/avialex/api/internal/model"
	"github.com/avialex/api/internal/repository"
)

func jwtTestSetup(t *testing.T) (*auth.TokenIssuer, echo.MiddlewareFunc, sqlmock.Sqlmock) {
	t.Helper()
	ring, err := config.NewKeyRing([]config.SigningKey{{ID: "k1", Secret: "test-secret"}})
	require.NoError(t, err)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	issuer := auth.NewTokenIssuer(ring, "avialex")
	verifier := auth.NewTokenVerifier(ring, "avialex", time.Minute)
	return issuer, JWTAuth(verifier, repository.NewRevokedJtiRepo(db)), mock
}

func runJWT(t *testing.T, mw echo.MiddlewareFunc, authorization string) (echo.Context, *httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return c, rec, called
}

func TestJWTAuthPopulatesContext(t *testing.T) {
	issuer, mw, mock := jwtTestSetup(t)

	raw, _, err := issuer.Issue(model.User{ID: 42, Type: model.UserTypeManager})
	require.NoError(t, err)
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	c, rec, called := runJWT(t, mw, "Bearer "+raw)
	require.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, uint64(42), c.Get(CtxUserID))
	assert.Equal(t, []string{"USER", "ADMIN", "STAFF"}, c.Get(CtxRoles))
	assert.Equal(t, []string{"CLIENT", "MANAGER"}, c.Get(CtxDomains))
	assert.NotEmpty(t, c.Get(CtxJTI))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJWTAuthRejectsRevokedJti(t *testing.T) {
	issuer, mw, mock := jwtTestSetup(t)

	raw, _, err := issuer.Issue(model.User{ID: 42, Type: model.UserTypeClient})
	require.NoError(t, err)
	// Signature checks out but the jti was revoked at sign-out.
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, rec, called := runJWT(t, mw, "Bearer "+raw)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJWTAuthRejectsBadBearer(t *testing.T) {
	_, mw, _ := jwtTestSetup(t)

	for name, header := range map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic dXNlcjpwdw==",
		"garbage token":  "Bearer not-a-token",
	} {
		_, rec, called := runJWT(t, mw, header)
		assert.False(t, called, name)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestJWTAuthRejectsForeignSignature(t *testing.T) {
	_, mw, _ := jwtTestSetup(t)

	otherRing, err := config.NewKeyRing([]config.SigningKey{{ID: "k1", Secret: "other-secret"}})
	require.NoError(t, err)
	raw, _, err := auth.NewTokenIssuer(otherRing, "avialex").Issue(model.User{ID: 42, Type: model.UserTypeClient})
	require.NoError(t, err)

	_, rec, called := runJWT(t, mw, "Bearer "+raw)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
