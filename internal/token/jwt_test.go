package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundtrip(t *testing.T) {
	codec := NewCodec([]byte("test-secret"))

	signed, exp, err := codec.Issue("user-123", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	userID, err := codec.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestVerifyExpired(t *testing.T) {
	codec := NewCodec([]byte("test-secret"))

	past := time.Now().Add(-2 * time.Hour)
	codec.now = func() time.Time { return past }
	signed, _, err := codec.Issue("user-123", time.Hour)
	require.NoError(t, err)

	codec.now = time.Now
	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyBadSignature(t *testing.T) {
	codec := NewCodec([]byte("secret-a"))
	other := NewCodec([]byte("secret-b"))

	signed, _, err := other.Issue("user-123", time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(signed)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyMalformed(t *testing.T) {
	codec := NewCodec([]byte("test-secret"))

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := codec.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformedToken, "input %q", raw)
	}
}
