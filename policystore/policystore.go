package policystore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Configuration write rejected because a field was out of bounds.
var ErrInvalidPolicy = errors.New("invalid moderation policy")

// Per-guild moderation configuration. Every threshold and weight is a policy
// choice, not a structural constant; the zero guild gets DefaultPolicy().
type Policy struct {
	GuildID string `json:"guild_id"`

	// per-detector enable flags
	ProfanityEnabled bool `json:"profanity_enabled"`
	FloodEnabled     bool `json:"flood_enabled"`
	DuplicateEnabled bool `json:"duplicate_enabled"`
	MentionEnabled   bool `json:"mention_enabled"`
	LinkScamEnabled  bool `json:"link_scam_enabled"`

	// flood: more than FloodMaxMessages from one user in one channel within
	// FloodWindow is a violation
	FloodMaxMessages int           `json:"flood_max_messages"`
	FloodWindow      time.Duration `json:"flood_window"`

	// duplicate: normalized token-set similarity cutoff, 0 < cutoff <= 1
	DuplicateCutoff float64 `json:"duplicate_cutoff"`

	// mention/emoji flood, counted within a single message
	MentionMax int `json:"mention_max"`
	EmojiMax   int `json:"emoji_max"`

	// severity weights per detector kind
	ProfanityWeight float64 `json:"profanity_weight"`
	FloodWeight     float64 `json:"flood_weight"`
	DuplicateWeight float64 `json:"duplicate_weight"`
	MentionWeight   float64 `json:"mention_weight"`
	LinkScamWeight  float64 `json:"link_scam_weight"`
	IdentityWeight  float64 `json:"identity_weight"`

	// escalation boundaries over the aggregate score; must be strictly
	// increasing
	WarnAt    float64 `json:"warn_at"`
	TimeoutAt float64 `json:"timeout_at"`
	KickAt    float64 `json:"kick_at"`
	BanAt     float64 `json:"ban_at"`

	TimeoutDuration time.Duration `json:"timeout_duration"`

	// a violation record stops contributing to the aggregate at this age
	DecayHorizon time.Duration `json:"decay_horizon"`

	// after an action is dispatched, suppress further identical actions for
	// this long
	ActionDebounce time.Duration `json:"action_debounce"`

	ExemptRoles    []string `json:"exempt_roles"`
	ExemptChannels []string `json:"exempt_channels"`
}

// Sparse update for Set; nil fields are left unchanged.
type PolicyPatch struct {
	ProfanityEnabled *bool `json:"profanity_enabled,omitempty"`
	FloodEnabled     *bool `json:"flood_enabled,omitempty"`
	DuplicateEnabled *bool `json:"duplicate_enabled,omitempty"`
	MentionEnabled   *bool `json:"mention_enabled,omitempty"`
	LinkScamEnabled  *bool `json:"link_scam_enabled,omitempty"`

	FloodMaxMessages *int           `json:"flood_max_messages,omitempty"`
	FloodWindow      *time.Duration `json:"flood_window,omitempty"`
	DuplicateCutoff  *float64       `json:"duplicate_cutoff,omitempty"`
	MentionMax       *int           `json:"mention_max,omitempty"`
	EmojiMax         *int           `json:"emoji_max,omitempty"`

	ProfanityWeight *float64 `json:"profanity_weight,omitempty"`
	FloodWeight     *float64 `json:"flood_weight,omitempty"`
	DuplicateWeight *float64 `json:"duplicate_weight,omitempty"`
	MentionWeight   *float64 `json:"mention_weight,omitempty"`
	LinkScamWeight  *float64 `json:"link_scam_weight,omitempty"`
	IdentityWeight  *float64 `json:"identity_weight,omitempty"`

	WarnAt    *float64 `json:"warn_at,omitempty"`
	TimeoutAt *float64 `json:"timeout_at,omitempty"`
	KickAt    *float64 `json:"kick_at,omitempty"`
	BanAt     *float64 `json:"ban_at,omitempty"`

	TimeoutDuration *time.Duration `json:"timeout_duration,omitempty"`
	DecayHorizon    *time.Duration `json:"decay_horizon,omitempty"`
	ActionDebounce  *time.Duration `json:"action_debounce,omitempty"`

	ExemptRoles    []string `json:"exempt_roles,omitempty"`
	ExemptChannels []string `json:"exempt_channels,omitempty"`
}

type PolicyStore interface {
	// Get never fails: unconfigured guilds (and store outages, for backends
	// with one) resolve to the default policy.
	Get(ctx context.Context, guildID string) Policy
	// Set applies a sparse patch, validates the result, persists it, and
	// returns the updated policy. Returns ErrInvalidPolicy (wrapped) if any
	// bound is violated.
	Set(ctx context.Context, guildID string, patch PolicyPatch) (Policy, error)
	// Reset restores the guild to the default policy. Policies are never
	// deleted outright.
	Reset(ctx context.Context, guildID string) error
}

func DefaultPolicy(guildID string) Policy {
	return Policy{
		GuildID: guildID,

		ProfanityEnabled: true,
		FloodEnabled:     true,
		DuplicateEnabled: true,
		MentionEnabled:   true,
		LinkScamEnabled:  true,

		FloodMaxMessages: 5,
		FloodWindow:      10 * time.Second,
		DuplicateCutoff:  0.9,
		MentionMax:       8,
		EmojiMax:         12,

		ProfanityWeight: 1.0,
		FloodWeight:     1.0,
		DuplicateWeight: 1.0,
		MentionWeight:   1.0,
		LinkScamWeight:  3.0,
		IdentityWeight:  0.5,

		WarnAt:    3.0,
		TimeoutAt: 5.0,
		KickAt:    8.0,
		BanAt:     10.0,

		TimeoutDuration: 60 * time.Second,
		DecayHorizon:    time.Hour,
		ActionDebounce:  5 * time.Second,
	}
}

func (p *Policy) apply(patch PolicyPatch) {
	if patch.ProfanityEnabled != nil {
		p.ProfanityEnabled = *patch.ProfanityEnabled
	}
	if patch.FloodEnabled != nil {
		p.FloodEnabled = *patch.FloodEnabled
	}
	if patch.DuplicateEnabled != nil {
		p.DuplicateEnabled = *patch.DuplicateEnabled
	}
	if patch.MentionEnabled != nil {
		p.MentionEnabled = *patch.MentionEnabled
	}
	if patch.LinkScamEnabled != nil {
		p.LinkScamEnabled = *patch.LinkScamEnabled
	}
	if patch.FloodMaxMessages != nil {
		p.FloodMaxMessages = *patch.FloodMaxMessages
	}
	if patch.FloodWindow != nil {
		p.FloodWindow = *patch.FloodWindow
	}
	if patch.DuplicateCutoff != nil {
		p.DuplicateCutoff = *patch.DuplicateCutoff
	}
	if patch.MentionMax != nil {
		p.MentionMax = *patch.MentionMax
	}
	if patch.EmojiMax != nil {
		p.EmojiMax = *patch.EmojiMax
	}
	if patch.ProfanityWeight != nil {
		p.ProfanityWeight = *patch.ProfanityWeight
	}
	if patch.FloodWeight != nil {
		p.FloodWeight = *patch.FloodWeight
	}
	if patch.DuplicateWeight != nil {
		p.DuplicateWeight = *patch.DuplicateWeight
	}
	if patch.MentionWeight != nil {
		p.MentionWeight = *patch.MentionWeight
	}
	if patch.LinkScamWeight != nil {
		p.LinkScamWeight = *patch.LinkScamWeight
	}
	if patch.IdentityWeight != nil {
		p.IdentityWeight = *patch.IdentityWeight
	}
	if patch.WarnAt != nil {
		p.WarnAt = *patch.WarnAt
	}
	if patch.TimeoutAt != nil {
		p.TimeoutAt = *patch.TimeoutAt
	}
	if patch.KickAt != nil {
		p.KickAt = *patch.KickAt
	}
	if patch.BanAt != nil {
		p.BanAt = *patch.BanAt
	}
	if patch.TimeoutDuration != nil {
		p.TimeoutDuration = *patch.TimeoutDuration
	}
	if patch.DecayHorizon != nil {
		p.DecayHorizon = *patch.DecayHorizon
	}
	if patch.ActionDebounce != nil {
		p.ActionDebounce = *patch.ActionDebounce
	}
	if patch.ExemptRoles != nil {
		p.ExemptRoles = patch.ExemptRoles
	}
	if patch.ExemptChannels != nil {
		p.ExemptChannels = patch.ExemptChannels
	}
}

func (p *Policy) Validate() error {
	if p.FloodMaxMessages <= 0 {
		return fmt.Errorf("%w: flood_max_messages must be positive", ErrInvalidPolicy)
	}
	if p.FloodWindow <= 0 {
		return fmt.Errorf("%w: flood_window must be positive", ErrInvalidPolicy)
	}
	if p.DuplicateCutoff <= 0 || p.DuplicateCutoff > 1 {
		return fmt.Errorf("%w: duplicate_cutoff must be in (0, 1]", ErrInvalidPolicy)
	}
	if p.MentionMax <= 0 || p.EmojiMax <= 0 {
		return fmt.Errorf("%w: mention_max and emoji_max must be positive", ErrInvalidPolicy)
	}
	for name, w := range map[string]float64{
		"profanity_weight": p.ProfanityWeight,
		"flood_weight":     p.FloodWeight,
		"duplicate_weight": p.DuplicateWeight,
		"mention_weight":   p.MentionWeight,
		"link_scam_weight": p.LinkScamWeight,
		"identity_weight":  p.IdentityWeight,
	} {
		if w <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidPolicy, name)
		}
	}
	if p.WarnAt <= 0 {
		return fmt.Errorf("%w: warn_at must be positive", ErrInvalidPolicy)
	}
	if !(p.WarnAt < p.TimeoutAt && p.TimeoutAt < p.KickAt && p.KickAt < p.BanAt) {
		return fmt.Errorf("%w: escalation boundaries must be strictly increasing", ErrInvalidPolicy)
	}
	if p.TimeoutDuration <= 0 {
		return fmt.Errorf("%w: timeout_duration must be positive", ErrInvalidPolicy)
	}
	if p.DecayHorizon <= 0 {
		return fmt.Errorf("%w: decay_horizon must be positive", ErrInvalidPolicy)
	}
	if p.ActionDebounce < 0 {
		return fmt.Errorf("%w: action_debounce must not be negative", ErrInvalidPolicy)
	}
	return nil
}

func (p *Policy) ChannelExempt(channelID string) bool {
	for _, c := range p.ExemptChannels {
		if c == channelID {
			return true
		}
	}
	return false
}

func (p *Policy) RolesExempt(roles []string) bool {
	for _, r := range roles {
		for _, e := range p.ExemptRoles {
			if r == e {
				return true
			}
		}
	}
	return false
}
