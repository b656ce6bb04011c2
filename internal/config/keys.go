package config

import (
	"fmt"
	"strings"
)

// SigningKey pairs a key identifier (the JWT "kid" header value) with the
// operator-supplied secret. The secret is never used as HMAC key material
// directly; the auth package digests it first.
type SigningKey struct {
	ID     string
	Secret string
}

// KeyRing is an immutable, ordered set of signing keys. The first key is the
// primary one used to sign new tokens; all keys remain valid for
// verification, looked up by id. Built once at startup.
type KeyRing struct {
	keys []SigningKey
	byID map[string]SigningKey
}

// ParseKeyRing builds a KeyRing from the TOKEN_KEYS specification, a
// comma-separated list of "id:secret" pairs, e.g. "k1:alpha,k2:beta".
// When the list is empty, a non-empty legacySecret is wrapped as a single
// key with id "legacy". An empty ring is allowed here; issuing a token from
// an empty ring fails instead, so verification-only deployments stay valid.
// Duplicate ids are a configuration error, not a silent first-match.
func ParseKeyRing(spec, legacySecret string) (KeyRing, error) {
	var keys []SigningKey
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, secret, ok := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" || secret == "" {
			return KeyRing{}, fmt.Errorf("malformed signing key entry %q, want id:secret", part)
		}
		keys = append(keys, SigningKey{ID: id, Secret: secret})
	}
	if len(keys) == 0 && legacySecret != "" {
		keys = append(keys, SigningKey{ID: "legacy", Secret: legacySecret})
	}
	return NewKeyRing(keys)
}

// NewKeyRing validates the ordered key list and indexes it by id.
func NewKeyRing(keys []SigningKey) (KeyRing, error) {
	byID := make(map[string]SigningKey, len(keys))
	for _, k := range keys {
		if k.ID == "" || k.Secret == "" {
			return KeyRing{}, fmt.Errorf("signing key with empty id or secret")
		}
		if _, dup := byID[k.ID]; dup {
			return KeyRing{}, fmt.Errorf("duplicate signing key id %q", k.ID)
		}
		byID[k.ID] = k
	}
	return KeyRing{keys: append([]SigningKey(nil), keys...), byID: byID}, nil
}

// Primary returns the key used to sign new tokens. An empty ring is a
// configuration error surfaced at first use.
func (r KeyRing) Primary() (SigningKey, error) {
	if len(r.keys) == 0 {
		return SigningKey{}, fmt.Errorf("no signing keys configured: set TOKEN_KEYS or TOKEN_SECRET")
	}
	return r.keys[0], nil
}

// Lookup returns the key with the given id, if present.
func (r KeyRing) Lookup(id string) (SigningKey, bool) {
	k, ok := r.byID[id]
	return k, ok
}

// Len reports the number of configured keys.
func (r KeyRing) Len() int { return len(r.keys) }
