package pinpkg

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func TestPIN(t *testing.T) {
	t.Parallel()

	hasher, err := NewHasher(MinIterations)
	require.NoError(t, err)

	pin := "1234"
	hashedPIN1, err := hasher.Hash(pin)
	require.NoError(t, err)
	require.NotEmpty(t, hashedPIN1)
	require.True(t, strings.HasPrefix(hashedPIN1, "pbkdf2_sha256$100000$"))

	err = hasher.Check(pin, hashedPIN1)
	require.NoError(t, err)

	err = hasher.Check("4321", hashedPIN1)
	require.ErrorIs(t, err, ErrMismatchedPIN)

	// Test for random salt generation
	hashedPIN2, err := hasher.Hash(pin)
	require.NoError(t, err)
	require.NotEqual(t, hashedPIN1, hashedPIN2)
}

func TestCheckLegacyEncoding(t *testing.T) {
	t.Parallel()

	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	digest := pbkdf2.Key([]byte("0000"), salt, DefaultIterations, sha256.Size, sha256.New)
	encoded := hex.EncodeToString(salt) + "$" + hex.EncodeToString(digest)

	hasher, err := NewHasher(MinIterations)
	require.NoError(t, err)

	require.NoError(t, hasher.Check("0000", encoded))
	require.ErrorIs(t, hasher.Check("0001", encoded), ErrMismatchedPIN)
}

func TestCheckMalformed(t *testing.T) {
	t.Parallel()

	hasher, err := NewHasher(MinIterations)
	require.NoError(t, err)

	testCases := []string{
		"",
		"nodollar",
		"zz$zz",
		"pbkdf2_sha256$abc$0102$0304",
		"pbkdf2_sha256$0$0102$0304",
		"pbkdf2_sha256$1000$0102$0304",
		"pbkdf2_sha256$" + strconv.Itoa(MinIterations-1) + "$0102$0304",
		"a$b$c",
	}

	for _, encoded := range testCases {
		require.ErrorIs(t, hasher.Check("1234", encoded), ErrMalformedHash, "encoded %q", encoded)
	}
}

func TestNewHasherWeakIterations(t *testing.T) {
	t.Parallel()

	got, err := NewHasher(MinIterations - 1)
	require.ErrorIs(t, err, ErrWeakIterations)
	require.Nil(t, got)
}

func TestValid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		pin  string
		want bool
	}{
		{"1234", true},
		{"0000", true},
		{"123", false},
		{"12345", false},
		{"12a4", false},
		{"", false},
		{"١٢٣٤", false},
	}

	for _, tc := range testCases {
		if got := Valid(tc.pin); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.pin, got, tc.want)
		}
	}
}
