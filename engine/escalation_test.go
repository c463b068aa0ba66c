package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/policystore"
)

func TestNextActionBoundaries(t *testing.T) {
	assert := assert.New(t)
	policy := policystore.DefaultPolicy("g1")

	_, ok := NextAction(StateClean, 0, policy)
	assert.False(ok)
	_, ok = NextAction(StateClean, policy.WarnAt-0.001, policy)
	assert.False(ok)

	kind, ok := NextAction(StateClean, policy.WarnAt, policy)
	assert.True(ok)
	assert.Equal(dispatcher.ActionWarn, kind)

	kind, ok = NextAction(StateWarned, policy.TimeoutAt, policy)
	assert.True(ok)
	assert.Equal(dispatcher.ActionTimeout, kind)

	kind, ok = NextAction(StateTimedOut, policy.KickAt, policy)
	assert.True(ok)
	assert.Equal(dispatcher.ActionKick, kind)

	kind, ok = NextAction(StateKicked, policy.BanAt, policy)
	assert.True(ok)
	assert.Equal(dispatcher.ActionBan, kind)
}

func TestNextActionMonotonic(t *testing.T) {
	assert := assert.New(t)
	policy := policystore.DefaultPolicy("g1")

	// score hovering at an already-reached boundary is a no-op
	_, ok := NextAction(StateWarned, policy.WarnAt, policy)
	assert.False(ok)
	_, ok = NextAction(StateWarned, policy.WarnAt+0.5, policy)
	assert.False(ok)

	// decay below a reached boundary never walks the state back
	_, ok = NextAction(StateTimedOut, 0.1, policy)
	assert.False(ok)

	// banned is terminal, whatever the score does
	_, ok = NextAction(StateBanned, policy.BanAt*10, policy)
	assert.False(ok)
}

func TestNextActionMultiBoundaryJump(t *testing.T) {
	assert := assert.New(t)
	policy := policystore.DefaultPolicy("g1")

	// a single update crossing several boundaries yields the one highest
	// action, not a warn-timeout-kick sequence
	kind, ok := NextAction(StateClean, policy.KickAt, policy)
	assert.True(ok)
	assert.Equal(dispatcher.ActionKick, kind)

	kind, ok = NextAction(StateWarned, policy.BanAt+5, policy)
	assert.True(ok)
	assert.Equal(dispatcher.ActionBan, kind)
}

func TestStateForAction(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(StateClean, StateForAction(""))
	assert.Equal(StateWarned, StateForAction("warn"))
	assert.Equal(StateTimedOut, StateForAction("timeout"))
	assert.Equal(StateKicked, StateForAction("kick"))
	assert.Equal(StateBanned, StateForAction("ban"))
	assert.Equal(StateClean, StateForAction("bogus"))
}
