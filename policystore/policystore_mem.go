package policystore

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// In-process policy store. The read path is a lock-free concurrent map
// lookup; writes are infrequent administrative operations serialized by a
// mutex so patch application is atomic per guild.
type MemPolicyStore struct {
	policies *xsync.MapOf[string, Policy]
	writeLk  sync.Mutex
}

var _ PolicyStore = (*MemPolicyStore)(nil)

func NewMemPolicyStore() *MemPolicyStore {
	return &MemPolicyStore{
		policies: xsync.NewMapOf[string, Policy](),
	}
}

func (s *MemPolicyStore) Get(ctx context.Context, guildID string) Policy {
	p, ok := s.policies.Load(guildID)
	if !ok {
		return DefaultPolicy(guildID)
	}
	return p
}

func (s *MemPolicyStore) Set(ctx context.Context, guildID string, patch PolicyPatch) (Policy, error) {
	s.writeLk.Lock()
	defer s.writeLk.Unlock()

	p, ok := s.policies.Load(guildID)
	if !ok {
		p = DefaultPolicy(guildID)
	}
	p.apply(patch)
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	s.policies.Store(guildID, p)
	return p, nil
}

func (s *MemPolicyStore) Reset(ctx context.Context, guildID string) error {
	s.writeLk.Lock()
	defer s.writeLk.Unlock()
	s.policies.Store(guildID, DefaultPolicy(guildID))
	return nil
}
