package ingest

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"io"
)

// SecretField is the payload key carrying the connector's shared secret.
// It is stripped before mapping so it can never leak into contact data.
const SecretField = "webhook_secret"

const secretLength = 32

// SecretSource generates shared secrets for connectors. Injected so tests
// can substitute a deterministic source.
type SecretSource interface {
	Generate() (string, error)
}

// CryptoSecretSource produces 32 random bytes, hex encoded.
type CryptoSecretSource struct {
	Reader io.Reader
}

// NewSecretSource returns a SecretSource backed by crypto/rand.
func NewSecretSource() CryptoSecretSource {
	return CryptoSecretSource{Reader: rand.Reader}
}

// Generate returns a new shared secret.
func (s CryptoSecretSource) Generate() (string, error) {
	buf := make([]byte, secretLength)
	if _, err := io.ReadFull(s.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// VerifySecret compares a claimed secret against the stored one in
// constant time. Empty claims never match.
func VerifySecret(stored, claimed string) bool {
	if stored == "" || claimed == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(claimed)) == 1
}
