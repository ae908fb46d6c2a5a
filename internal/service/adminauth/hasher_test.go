package adminauth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := BcryptHasher{}

	t.Run("hash and compare", func(t *testing.T) {
		hash, err := hasher.Hash("password123")

		require.NoError(t, err, "hashing should not fail")
		require.NotEqual(t, "password123", hash, "hash must not be the password itself")
		require.NoError(t, hasher.Compare(hash, "password123"), "correct password should compare ok")
	})

	t.Run("wrong password", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)

		require.Error(t, hasher.Compare(hash, "wrong-password"), "wrong password should not compare")
	})

	t.Run("long password", func(t *testing.T) {
		// Over bcrypt's 72 byte input limit, covered by the sha256 pre-hash
		long := strings.Repeat("a", 100)

		hash, err := hasher.Hash(long)

		require.NoError(t, err, "long passwords should hash ok")
		require.NoError(t, hasher.Compare(hash, long))
		require.Error(t, hasher.Compare(hash, long+"b"), "every byte of a long password still matters")
	})

	t.Run("same password different hashes", func(t *testing.T) {
		first, err := hasher.Hash("password123")
		require.NoError(t, err)
		second, err := hasher.Hash("password123")
		require.NoError(t, err)

		require.NotEqual(t, first, second, "bcrypt salts every hash")
	})
}
