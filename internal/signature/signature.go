// Package signature implements the request signing scheme the push-delivery
// provider uses on worker deliveries: an HMAC-SHA256 over the raw request
// body, carried base64-encoded in a header. Verification accepts the current
// and the next signing key so keys can rotate without dropping deliveries.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// Header is the HTTP header carrying the body signature.
const Header = "X-Relay-Signature"

var (
	// ErrMissingSignature is returned when the header is absent or empty.
	ErrMissingSignature = errors.New("signature: missing signature")

	// ErrInvalidSignature is returned when the signature matches neither
	// the current nor the next signing key.
	ErrInvalidSignature = errors.New("signature: invalid signature")
)

// Signer computes body signatures under a single key. The provider signs
// deliveries; in this codebase the Signer is used by tests and by the fake
// provider to construct authentic requests.
type Signer struct {
	key []byte
}

// NewSigner creates a signer for the given key.
func NewSigner(key string) *Signer {
	return &Signer{key: []byte(key)}
}

// Sign returns the base64-encoded HMAC-SHA256 of body.
func (s *Signer) Sign(body []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verifier checks body signatures against the current signing key and,
// when configured, the next one.
type Verifier struct {
	keys [][]byte
}

// NewVerifier creates a verifier. The current key is required; the next key
// is optional and only used during rotation windows.
func NewVerifier(currentKey, nextKey string) (*Verifier, error) {
	if currentKey == "" {
		return nil, errors.New("signature: current signing key is required")
	}
	keys := [][]byte{[]byte(currentKey)}
	if nextKey != "" {
		keys = append(keys, []byte(nextKey))
	}
	return &Verifier{keys: keys}, nil
}

// Fingerprint returns a short SHA-256 hash of the key, safe to log.
// Operators compare fingerprints across services to confirm both sides
// hold the same key during a rotation.
func Fingerprint(key string) string {
	key = strings.TrimSpace(key)

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])[:8]
}

// Verify checks sig against body. A signature valid under either configured
// key is accepted. Comparison is constant-time.
func (v *Verifier) Verify(body []byte, sig string) error {
	if sig == "" {
		return ErrMissingSignature
	}
	decoded, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	for _, key := range v.keys {
		mac := hmac.New(sha256.New, key)
		mac.Write(body)
		if hmac.Equal(decoded, mac.Sum(nil)) {
			return nil
		}
	}
	return ErrInvalidSignature
}
