package engine

import (
	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/policystore"
)

// Enforcement states a user moves through within one escalation episode.
// Progression is monotonic: score decay lowers future risk but never
// retroactively undoes an applied action.
type EscalationState int

const (
	StateClean EscalationState = iota
	StateWarned
	StateTimedOut
	StateKicked
	StateBanned
)

func (s EscalationState) String() string {
	switch s {
	case StateClean:
		return "clean"
	case StateWarned:
		return "warned"
	case StateTimedOut:
		return "timed-out"
	case StateKicked:
		return "kicked"
	case StateBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// StateForAction maps a ledger's last-action kind back to an escalation
// state. An empty (never-actioned) ledger entry is Clean.
func StateForAction(kind string) EscalationState {
	switch dispatcher.ActionKind(kind) {
	case dispatcher.ActionWarn:
		return StateWarned
	case dispatcher.ActionTimeout:
		return StateTimedOut
	case dispatcher.ActionKick:
		return StateKicked
	case dispatcher.ActionBan:
		return StateBanned
	default:
		return StateClean
	}
}

// NextAction is the escalation transition function: given the current state
// and the new aggregate score, it returns the enforcement action to take,
// or false for no-op. It is pure and deterministic; actual enforcement (and
// all side effects) happen in the dispatcher.
//
// If the score jumps multiple boundaries in one update, the single
// highest-severity reachable action is returned, never a sequence of
// incremental ones. Banned is terminal: no further automated action.
func NextAction(state EscalationState, score float64, policy policystore.Policy) (dispatcher.ActionKind, bool) {
	if state >= StateBanned {
		return "", false
	}

	var kind dispatcher.ActionKind
	var target EscalationState
	switch {
	case score >= policy.BanAt:
		kind, target = dispatcher.ActionBan, StateBanned
	case score >= policy.KickAt:
		kind, target = dispatcher.ActionKick, StateKicked
	case score >= policy.TimeoutAt:
		kind, target = dispatcher.ActionTimeout, StateTimedOut
	case score >= policy.WarnAt:
		kind, target = dispatcher.ActionWarn, StateWarned
	default:
		return "", false
	}

	// only move forward; a decayed score below an already-reached boundary
	// is a no-op, and re-issuing the current tier is left to failure
	// recovery (a failed action never advances state)
	if target <= state {
		return "", false
	}
	return kind, true
}
