package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpired(t *testing.T) {
	assert.False(t, IsExpired(nil, 1000))
	assert.False(t, IsExpired(&Expiration{ExpiresAt: 2000}, 1000))
	assert.True(t, IsExpired(&Expiration{ExpiresAt: 1000}, 1000))
	assert.True(t, IsExpired(&Expiration{ExpiresAt: 1000}, 2000))
}

func TestNewExpiration(t *testing.T) {
	assert.Nil(t, NewExpiration(0, 1000))
	assert.Nil(t, NewExpiration(-100, 1000))

	exp := NewExpiration(500, 1000)
	require.NotNil(t, exp)
	assert.Equal(t, int64(1500), exp.ExpiresAt)

	oneYear := int64(365 * 24 * 60 * 60)
	exp = NewExpiration(oneYear, 1000)
	require.NotNil(t, exp)
	assert.Equal(t, 1000+oneYear, exp.ExpiresAt)
}
