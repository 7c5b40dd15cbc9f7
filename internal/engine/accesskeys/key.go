package accesskeys

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// KeyPrefix is the human-recognizable prefix on every plaintext secret.
const KeyPrefix = "lr_"

const secretBytes = 32

var ErrMalformedHash = errors.New("malformed key hash")

// Hasher derives and verifies Argon2id hashes of access-key secrets.
// The fingerprint (fast SHA-256) and the slow hash are deliberately two
// layers: the fingerprint keeps lookup O(1), the slow hash keeps a leaked
// database resistant to offline brute force.
type Hasher struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}

func NewHasher(time, memory uint32, threads uint8) *Hasher {
	return &Hasher{
		time:    time,
		memory:  memory,
		threads: threads,
		keyLen:  32,
		saltLen: 16,
	}
}

// GenerateSecret produces a new high-entropy plaintext secret.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

// Fingerprint returns the deterministic SHA-256 hex digest of a secret.
// It is a lookup index, not a security hash.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Preview returns the display form of a secret: prefix, ellipsis, last 4.
func Preview(secret string) string {
	last4 := secret
	if len(secret) > 4 {
		last4 = secret[len(secret)-4:]
	}
	return KeyPrefix + "…" + last4
}

// Hash derives an Argon2id hash of the secret with a fresh random salt,
// encoded in the standard $argon2id$ form.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to read salt: %w", err)
	}

	derived := argon2.IDKey([]byte(secret), salt, h.time, h.memory, h.threads, h.keyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(derived))
	return encoded, nil
}

// Verify re-derives the candidate with the stored parameters and compares
// in constant time.
func (h *Hasher) Verify(encoded, candidate string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, ErrMalformedHash
	}
	if version != argon2.Version {
		return false, ErrMalformedHash
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrMalformedHash
	}

	derived := argon2.IDKey([]byte(candidate), salt, time, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(expected, derived) == 1, nil
}
