// Package pinpkg hashes and verifies numeric PINs with PBKDF2-HMAC-SHA256.
package pinpkg

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor used for new hashes.
	DefaultIterations = 600_000
	// MinIterations is the lowest work factor a Hasher accepts.
	MinIterations = 100_000
	// Length is the number of digits of a valid PIN.
	Length = 4

	scheme   = "pbkdf2_sha256"
	saltSize = 8
	keySize  = sha256.Size
)

var (
	// ErrMismatchedPIN indicates that the PIN does not match the stored hash.
	ErrMismatchedPIN = errors.New("pin does not match")
	// ErrMalformedHash indicates that the stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed pin hash")
	// ErrWeakIterations indicates a work factor below MinIterations.
	ErrWeakIterations = fmt.Errorf("iterations must be at least %d", MinIterations)
)

// Hasher hashes PINs with a fixed work factor.
type Hasher struct {
	iterations int
}

// NewHasher returns Hasher using the given number of PBKDF2 iterations.
func NewHasher(iterations int) (*Hasher, error) {
	if iterations < MinIterations {
		return nil, ErrWeakIterations
	}

	return &Hasher{iterations: iterations}, nil
}

// Hash returns the encoded salted hash of pin.
//
// The encoding is pbkdf2_sha256$<iterations>$<salt hex>$<digest hex>.
func (h *Hasher) Hash(pin string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	digest := derive(pin, salt, h.iterations)

	return fmt.Sprintf("%s$%d$%s$%s", scheme, h.iterations, hex.EncodeToString(salt), hex.EncodeToString(digest)), nil
}

// Check recomputes the hash of pin with the stored salt and compares digests in constant time.
//
// Besides its own encoding it accepts the two part <salt hex>$<digest hex> form,
// which is always derived with DefaultIterations. A hash recording fewer than
// MinIterations is reported as ErrMalformedHash.
func (h *Hasher) Check(pin, encoded string) error {
	iterations, salt, want, err := decode(encoded)
	if err != nil {
		return err
	}

	got := derive(pin, salt, iterations)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrMismatchedPIN
	}

	return nil
}

func derive(pin string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(pin), salt, iterations, keySize, sha256.New)
}

func decode(encoded string) (int, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")

	iterations := DefaultIterations

	switch {
	case len(parts) == 4 && parts[0] == scheme:
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < MinIterations {
			return 0, nil, nil, ErrMalformedHash
		}

		iterations = n
		parts = parts[2:]
	case len(parts) == 2:
	default:
		return 0, nil, nil, ErrMalformedHash
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, ErrMalformedHash
	}

	digest, err := hex.DecodeString(parts[1])
	if err != nil || len(digest) == 0 {
		return 0, nil, nil, ErrMalformedHash
	}

	return iterations, salt, digest, nil
}

// Valid reports whether pin consists of exactly Length digits.
func Valid(pin string) bool {
	if len(pin) != Length {
		return false
	}

	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}
