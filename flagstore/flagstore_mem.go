package flagstore

import (
	"context"
	"slices"
	"sync"
)

type MemFlagStore struct {
	lk   sync.RWMutex
	data map[string][]string
}

var _ FlagStore = (*MemFlagStore)(nil)

func NewMemFlagStore() *MemFlagStore {
	return &MemFlagStore{
		data: make(map[string][]string),
	}
}

func (s *MemFlagStore) Get(ctx context.Context, key string) ([]string, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return []string{}, nil
	}
	return slices.Clone(v), nil
}

func (s *MemFlagStore) Add(ctx context.Context, key string, flags []string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	v := s.data[key]
	for _, f := range flags {
		if !slices.Contains(v, f) {
			v = append(v, f)
		}
	}
	s.data[key] = v
	return nil
}

// does not error if flags are not present
func (s *MemFlagStore) Remove(ctx context.Context, key string, flags []string) error {
	if len(flags) == 0 {
		return nil
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	v := s.data[key]
	out := v[:0]
	for _, f := range v {
		if !slices.Contains(flags, f) {
			out = append(out, f)
		}
	}
	s.data[key] = out
	return nil
}
