package flagstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemFlagStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fs := NewMemFlagStore()

	l, err := fs.Get(ctx, "guild-1/user-1")
	assert.NoError(err)
	assert.Empty(l)

	assert.NoError(fs.Add(ctx, "guild-1/user-1", []string{"flood-warned", "repeat-offender"}))
	assert.NoError(fs.Add(ctx, "guild-1/user-1", []string{"flood-warned", "bad-words"}))
	l, err = fs.Get(ctx, "guild-1/user-1")
	assert.NoError(err)
	assert.Equal(3, len(l))

	assert.NoError(fs.Remove(ctx, "guild-1/user-1", []string{"flood-warned", "bad-words", "missing"}))
	l, err = fs.Get(ctx, "guild-1/user-1")
	assert.NoError(err)
	assert.Equal([]string{"repeat-offender"}, l)
}

func TestRedisFlagStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	fs, err := NewRedisFlagStore("redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}

	assert.NoError(fs.Add(ctx, "guild-1/user-1", []string{"flood-warned"}))
	l, err := fs.Get(ctx, "guild-1/user-1")
	assert.NoError(err)
	assert.Equal([]string{"flood-warned"}, l)
	assert.NoError(fs.Remove(ctx, "guild-1/user-1", []string{"flood-warned"}))
}
