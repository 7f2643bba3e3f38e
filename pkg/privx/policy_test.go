package privx

import (
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleartext(t *testing.T) {
	t.Parallel()

	var p Cleartext
	stored, err := p.Protect("04821")
	require.NoError(t, err)
	require.Equal(t, "04821", stored)

	plain, err := p.Reveal(stored)
	require.NoError(t, err)
	require.Equal(t, "04821", plain)

	ok, err := p.Matches(stored, "04821")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Matches(stored, "11111")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	var p Fingerprint
	stored, err := p.Protect("04821")
	require.NoError(t, err)
	require.NotEqual(t, "04821", stored)

	_, err = p.Reveal(stored)
	require.ErrorIs(t, err, ErrIrreversible)

	ok, err := p.Matches(stored, "04821")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Matches(stored, "04822")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSealed(t *testing.T) {
	t.Parallel()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	p, err := NewSealed(key)
	require.NoError(t, err)

	stored, err := p.Protect("tg:contact:12345")
	require.NoError(t, err)
	require.NotContains(t, stored, "12345")

	plain, err := p.Reveal(stored)
	require.NoError(t, err)
	require.Equal(t, "tg:contact:12345", plain)

	ok, err := p.Matches(stored, "tg:contact:12345")
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("distinct ciphertexts per call", func(t *testing.T) {
		again, err := p.Protect("tg:contact:12345")
		require.NoError(t, err)
		require.NotEqual(t, stored, again)
	})

	t.Run("wrong key fails closed", func(t *testing.T) {
		otherKey := make([]byte, 32)
		_, err := rand.Read(otherKey)
		require.NoError(t, err)

		other, err := NewSealed(otherKey)
		require.NoError(t, err)

		_, err = other.Reveal(stored)
		require.ErrorIs(t, err, ErrSealedCorrupt)
	})
}

func TestLoadOrCreateKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "privacy.key")

	key, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	require.Len(t, key, 32)

	again, err := LoadOrCreateKey(path)
	require.NoError(t, err)
	require.Equal(t, key, again)
}

func TestFromName(t *testing.T) {
	t.Parallel()

	_, err := FromName("cleartext", "")
	require.NoError(t, err)

	_, err = FromName("fingerprint", "")
	require.NoError(t, err)

	_, err = FromName("sealed", filepath.Join(t.TempDir(), "k"))
	require.NoError(t, err)

	_, err = FromName("rot13", "")
	require.ErrorIs(t, err, ErrUnknownPolicy)
}
