package payment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	s, err := NewSealerFromHex(strings.Repeat("ab", 32))
	require.NoError(t, err)

	a, err := s.Seal("4111111111111111")
	require.NoError(t, err)
	b, err := s.Seal("4111111111111111")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(a, "v1:"))
	assert.NotContains(t, a, "4111")
	assert.NotEqual(t, a, b, "nonce must differ per seal")

	plain, err := s.Open(a)
	require.NoError(t, err)
	assert.Equal(t, "4111111111111111", plain)
}

func TestOpen_Rejects(t *testing.T) {
	s, err := NewEphemeralSealer()
	require.NoError(t, err)
	other, err := NewEphemeralSealer()
	require.NoError(t, err)
	sealed, err := other.Seal("123")
	require.NoError(t, err)

	_, err = s.Open("4111111111111111")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = s.Open("v1:%%%")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = s.Open("v1:AAAA")
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = s.Open(sealed)
	assert.Error(t, err)
}

func TestNewSealerFromHex_BadKey(t *testing.T) {
	_, err := NewSealerFromHex("zz")
	assert.Error(t, err)
	_, err = NewSealerFromHex(strings.Repeat("ab", 16))
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "************1111", Mask("4111 1111 1111 1111"))
	assert.Equal(t, "***********0005", Mask("378282246310005"))
	assert.Equal(t, "123", Mask("123"))
}
