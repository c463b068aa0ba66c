// Package setstore holds named string sets used by detectors, most
// importantly the profanity wordlists ("bad-words", "worst-words").
package setstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
}

type MemSetStore struct {
	lk   sync.RWMutex
	sets map[string]map[string]bool
}

var _ SetStore = (*MemSetStore)(nil)

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		sets: make(map[string]map[string]bool),
	}
}

func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	set, ok := s.sets[name]
	if !ok {
		// an entirely missing set is treated as empty
		return false, nil
	}
	return set[val], nil
}

func (s *MemSetStore) AddToSet(name string, vals ...string) {
	s.lk.Lock()
	defer s.lk.Unlock()
	set, ok := s.sets[name]
	if !ok {
		set = make(map[string]bool)
		s.sets[name] = set
	}
	for _, v := range vals {
		set[v] = true
	}
}

// Members returns the values of the named set, in no particular order.
func (s *MemSetStore) Members(name string) []string {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make([]string, 0, len(s.sets[name]))
	for v := range s.sets[name] {
		out = append(out, v)
	}
	return out
}

// Loads wordlists from a JSON file of the shape {"set-name": ["word", ...]}.
func (s *MemSetStore) LoadFromFileJSON(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var lists map[string][]string
	if err := json.Unmarshal(raw, &lists); err != nil {
		return err
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	for name, l := range lists {
		m := make(map[string]bool, len(l))
		for _, val := range l {
			m[val] = true
		}
		s.sets[name] = m
	}
	return nil
}
