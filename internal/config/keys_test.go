package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyRing(t *testing.T) {
	ring, err := ParseKeyRing("k1:alpha, k2:beta", "")
	require.NoError(t, err)
	assert.Equal(t, 2, ring.Len())

	primary, err := ring.Primary()
	require.NoError(t, err)
	assert.Equal(t, "k1", primary.ID)
	assert.Equal(t, "alpha", primary.Secret)

	k2, ok := ring.Lookup("k2")
	require.True(t, ok)
	assert.Equal(t, "beta", k2.Secret)

	_, ok = ring.Lookup("k3")
	assert.False(t, ok)
}

func TestParseKeyRingLegacyFallback(t *testing.T) {
	ring, err := ParseKeyRing("", "old-secret")
	require.NoError(t, err)
	require.Equal(t, 1, ring.Len())

	primary, err := ring.Primary()
	require.NoError(t, err)
	assert.Equal(t, "legacy", primary.ID)
	assert.Equal(t, "old-secret", primary.Secret)
}

func TestParseKeyRingKeysWinOverLegacy(t *testing.T) {
	ring, err := ParseKeyRing("k1:alpha", "old-secret")
	require.NoError(t, err)
	require.Equal(t, 1, ring.Len())

	primary, err := ring.Primary()
	require.NoError(t, err)
	assert.Equal(t, "k1", primary.ID)
}

func TestParseKeyRingMalformed(t *testing.T) {
	for _, spec := range []string{"k1", "k1:", ":alpha", "k1:alpha,k2"} {
		_, err := ParseKeyRing(spec, "")
		assert.Error(t, err, "spec %q", spec)
	}
}

func TestNewKeyRingRejectsDuplicates(t *testing.T) {
	_, err := NewKeyRing([]SigningKey{
		{ID: "k1", Secret: "a"},
		{ID: "k1", Secret: "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestEmptyRingFailsOnIssueNotParse(t *testing.T) {
	ring, err := ParseKeyRing("", "")
	require.NoError(t, err)
	assert.Equal(t, 0, ring.Len())

	_, err = ring.Primary()
	assert.Error(t, err)
}
