package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskctl/internal/testutil"
)

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token := testutil.SignedToken("alice", "u-1", exp, 1)

	c, ok := ParseClaims(token)
	require.True(t, ok)
	assert.Equal(t, "alice", c.Subject)
	assert.Equal(t, "u-1", c.UserID)
	assert.True(t, exp.Equal(c.ExpiresAt))
}

func TestParseClaims_Opaque(t *testing.T) {
	_, ok := ParseClaims("tok1")
	assert.False(t, ok)
	_, ok = TokenExpiry("tok1")
	assert.False(t, ok)
	assert.False(t, tokenExpired("tok1"), "opaque tokens never count as expired")
}

func TestTokenExpired(t *testing.T) {
	assert.True(t, tokenExpired(testutil.SignedToken("a", "u", time.Now().Add(-time.Minute), 1)))
	assert.False(t, tokenExpired(testutil.SignedToken("a", "u", time.Now().Add(time.Hour), 2)))
}
