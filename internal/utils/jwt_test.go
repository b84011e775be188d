package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "worker", 60)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)

	id, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
}

func TestParseAccessToken_RejectsWrongSecret(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "worker", 60)
	require.NoError(t, err)

	_, err = ParseAccessToken("other", tok.Token)
	assert.Error(t, err)
}

func TestParseAccessToken_RejectsExpired(t *testing.T) {
	tok, err := NewAccessToken("secret", 42, "worker", -1)
	require.NoError(t, err)

	_, err = ParseAccessToken("secret", tok.Token)
	assert.Error(t, err)
}

func TestParseAccessToken_RejectsGarbage(t *testing.T) {
	_, err := ParseAccessToken("secret", "not-a-token")
	assert.Error(t, err)
}
