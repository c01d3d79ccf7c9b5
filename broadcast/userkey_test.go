package broadcast_test

import (
	"testing"

	"github.com/AOSIP-old/platform-frameworks-base/broadcast"

	"github.com/stretchr/testify/assert"
)

func TestUserKeyFor(t *testing.T) {
	assert := assert.New(t)

	k, ok := broadcast.UserKeyFor(0)
	assert.True(ok)
	assert.False(k.All())
	assert.Equal(0, k.UserID())
	assert.Equal("0", k.String())

	k, ok = broadcast.UserKeyFor(10)
	assert.True(ok)
	assert.Equal(10, k.UserID())

	k, ok = broadcast.UserKeyFor(broadcast.AllUsers)
	assert.True(ok)
	assert.True(k.All())
	assert.Equal(broadcast.AllUsers, k.UserID())
	assert.Equal("all", k.String())
	assert.Equal(broadcast.AllUsersKey(), k)

	_, ok = broadcast.UserKeyFor(-2)
	assert.False(ok)
}
