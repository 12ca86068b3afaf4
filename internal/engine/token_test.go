package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := encodeToken(callbackToken{Game: 42, OriginalSender: "alice"})
	require.NoError(t, err)

	decoded, err := decodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, callbackToken{Game: 42, OriginalSender: "alice"}, decoded)
}

func TestDecodeTokenGarbage(t *testing.T) {
	for _, raw := range []string{"", "not base64 !!", "bm90IGpzb24="} {
		_, err := decodeToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", raw)
	}
}
