package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avialex/api/internal/config"
	"github.com/avialex/api/internal/model"
)

func testRing(t *testing.T, keys ...config.SigningKey) config.KeyRing {
	t.Helper()
	ring, err := config.NewKeyRing(keys)
	require.NoError(t, err)
	return ring
}

func TestIssueAndVerify(t *testing.T) {
	ring := testRing(t, config.SigningKey{ID: "k1", Secret: "alpha"})
	issuer := NewTokenIssuer(ring, "avialex")
	verifier := NewTokenVerifier(ring, "avialex", time.Minute)

	u := model.User{ID: 42, Type: model.UserTypeManager}
	raw, expMillis, err := issuer.Issue(u)
	require.NoError(t, err)
	assert.Greater(t, expMillis, time.Now().UnixMilli())

	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, TokenIssuerName, claims.Issuer)
	assert.Equal(t, []string{"USER", "ADMIN", "STAFF"}, claims.Roles)
	assert.Equal(t, []string{"CLIENT", "MANAGER"}, claims.Domains)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyRejectsExpired(t *testing.T) {
	ring := testRing(t, config.SigningKey{ID: "k1", Secret: "alpha"})
	issuer := NewTokenIssuer(ring, "avialex")
	// Issue a token well in the past, beyond TTL plus any leeway.
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	verifier := NewTokenVerifier(ring, "avialex", time.Minute)

	raw, _, err := issuer.Issue(model.User{ID: 1, Type: model.UserTypeClient})
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	ring := testRing(t, config.SigningKey{ID: "k1", Secret: "alpha"})
	issuer := NewTokenIssuer(ring, "avialex")
	verifier := NewTokenVerifier(ring, "other-app", time.Minute)

	raw, _, err := issuer.Issue(model.User{ID: 1, Type: model.UserTypeClient})
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnknownKey(t *testing.T) {
	signRing := testRing(t, config.SigningKey{ID: "k1", Secret: "alpha"})
	verifyRing := testRing(t, config.SigningKey{ID: "k2", Secret: "beta"})
	issuer := NewTokenIssuer(signRing, "avialex")
	verifier := NewTokenVerifier(verifyRing, "avialex", time.Minute)

	raw, _, err := issuer.Issue(model.User{ID: 1, Type: model.UserTypeClient})
	require.NoError(t, err)

	// Same kid but absent from the verifying ring: removal from the ring
	// invalidates every token it ever signed.
	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAcceptsSecondaryKey(t *testing.T) {
	oldKey := config.SigningKey{ID: "old", Secret: "alpha"}
	newKey := config.SigningKey{ID: "new", Secret: "beta"}

	oldIssuer := NewTokenIssuer(testRing(t, oldKey), "avialex")
	raw, _, err := oldIssuer.Issue(model.User{ID: 7, Type: model.UserTypeClient})
	require.NoError(t, err)

	// After rotation the new key signs, but the old key still verifies.
	rotated := testRing(t, newKey, oldKey)
	verifier := NewTokenVerifier(rotated, "avialex", time.Minute)
	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ring := testRing(t, config.SigningKey{ID: "k1", Secret: "alpha"})
	verifier := NewTokenVerifier(ring, "avialex", time.Minute)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := verifier.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestIssueFailsOnEmptyRing(t *testing.T) {
	ring, err := config.NewKeyRing(nil)
	require.NoError(t, err)
	issuer := NewTokenIssuer(ring, "avialex")

	_, _, err = issuer.Issue(model.User{ID: 1, Type: model.UserTypeClient})
	assert.Error(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}

func TestRefreshTokenHashStability(t *testing.T) {
	tok, err := NewRefreshToken(60)
	require.NoError(t, err)
	assert.Len(t, tok.Raw, 96)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), tok.Exp, 5*time.Second)

	assert.Equal(t, HashRefreshRaw(tok.Raw), HashRefreshRaw(tok.Raw))
	assert.NotEqual(t, tok.Raw, HashRefreshRaw(tok.Raw))
}
