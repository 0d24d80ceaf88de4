package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := BcryptHasher{}

	t.Run("hash and compare ok", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		require.NotEqual(t, "password", hash, "hash must not be the plaintext")

		require.NoError(t, hasher.Compare(hash, "password"))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)

		require.Error(t, hasher.Compare(hash, "other"))
	})

	t.Run("hashes are salted", func(t *testing.T) {
		first, err := hasher.Hash("password")
		require.NoError(t, err)
		second, err := hasher.Hash("password")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("long passwords supported", func(t *testing.T) {
		long := strings.Repeat("x", 200)

		hash, err := hasher.Hash(long)
		require.NoError(t, err)
		require.NoError(t, hasher.Compare(hash, long))
		require.Error(t, hasher.Compare(hash, long+"y"))
	})
}
