package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions(testSecret)

	token, jti, exp, err := Generate(opts, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)
	require.True(t, exp.After(time.Now()))

	id, err := Verify(opts, token)
	require.NoError(t, err)
	require.Equal(t, "alice", id.Username)
	require.Equal(t, jti, id.JTI)
}

func TestJTIDiffersPerLogin(t *testing.T) {
	opts := DefaultOptions(testSecret)

	_, jti1, _, err := Generate(opts, "alice")
	require.NoError(t, err)
	_, jti2, _, err := Generate(opts, "alice")
	require.NoError(t, err)

	require.NotEqual(t, jti1, jti2)
}

func TestVerifyExpired(t *testing.T) {
	opts := DefaultOptions(testSecret)
	opts.TTL = -time.Minute

	token, _, _, err := Generate(opts, "bob")
	require.NoError(t, err)

	_, err = Verify(opts, token)
	require.Error(t, err)
}

func TestVerifyWrongSecret(t *testing.T) {
	opts := DefaultOptions(testSecret)

	token, _, _, err := Generate(opts, "bob")
	require.NoError(t, err)

	other := DefaultOptions([]byte("another-secret-another-secret-00"))
	_, err = Verify(other, token)
	require.Error(t, err)
}
