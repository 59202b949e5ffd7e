package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

func TestPasswordHashVerify(t *testing.T) {
	hash, err := HashPasswordWithParams("correct horse", fastParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$t=1,m=1024,p=1$"))

	ok, err := VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("battery staple", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordWithoutHash(t *testing.T) {
	ok, err := VerifyPassword("anything", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordMalformed(t *testing.T) {
	_, err := VerifyPassword("x", []byte("$bcrypt$whatever"))
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestSessionIDEncoding(t *testing.T) {
	sid, err := NewSessionID()
	require.NoError(t, err)

	encoded := sid.Encode()
	assert.Len(t, encoded, EncodedSessionIDLen)
	assert.NotContains(t, encoded, "=")

	parsed, err := ParseSessionID(encoded)
	require.NoError(t, err)
	assert.Equal(t, sid, parsed)
	assert.Len(t, sid.Hash(), 32)

	other, err := NewSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, sid, other)
}

func TestParseSessionIDRejectsBadInput(t *testing.T) {
	_, err := ParseSessionID("short")
	assert.Error(t, err)

	_, err = ParseSessionID(strings.Repeat("!", EncodedSessionIDLen))
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	sid, err := NewSessionID()
	require.NoError(t, err)

	token, err := GenerateBearerToken("secret", sid.Encode(), "alice", time.Hour)
	require.NoError(t, err)

	claims, err := ParseBearerToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, sid.Encode(), claims.SessionID)
	assert.Equal(t, "alice", claims.Subject)

	_, err = ParseBearerToken(token, "other-secret")
	assert.Error(t, err)
}

func TestBearerTokenWithoutTTL(t *testing.T) {
	token, err := GenerateBearerToken("secret", "sid", "alice", -time.Minute)
	require.NoError(t, err)
	_, err = ParseBearerToken(token, "secret")
	assert.NoError(t, err)
}

func TestCSRFToken(t *testing.T) {
	hash := []byte("0123456789abcdef0123456789abcdef")
	a := CSRFToken("secret", hash)
	assert.Equal(t, a, CSRFToken("secret", hash))
	assert.NotEqual(t, a, CSRFToken("other", hash))
	assert.NotEqual(t, a, CSRFToken("secret", []byte("another session hash..........")))

	assert.True(t, CheckCSRF(a, a))
	assert.False(t, CheckCSRF(a, a+"x"))
	assert.False(t, CheckCSRF(a, ""))
	assert.False(t, CheckCSRF("", ""))
}
