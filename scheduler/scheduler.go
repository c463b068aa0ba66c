// Package scheduler is a fixed-size worker pool which serializes work
// per key while running unrelated keys in parallel. The ingestion pipeline
// keys events by (guild, user), so one user's events are always processed in
// arrival order but users and guilds never block each other.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Scheduler[T any] struct {
	maxConcurrency int

	do func(context.Context, T) error

	feeder chan *task[T]
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*task[T]

	ident string

	itemsAdded     prometheus.Counter
	itemsProcessed prometheus.Counter

	log *slog.Logger
}

type task[T any] struct {
	key  string
	val  T
	stop bool
}

func NewScheduler[T any](maxC int, ident string, do func(context.Context, T) error) *Scheduler[T] {
	s := &Scheduler[T]{
		maxConcurrency: maxC,

		do: do,

		feeder: make(chan *task[T]),
		active: make(map[string][]*task[T]),
		out:    make(chan struct{}),

		ident: ident,

		itemsAdded:     workItemsAdded.WithLabelValues(ident),
		itemsProcessed: workItemsProcessed.WithLabelValues(ident),

		log: slog.Default().With("system", "scheduler", "pool", ident),
	}

	for i := 0; i < maxC; i++ {
		go s.worker()
	}
	workersActive.WithLabelValues(ident).Set(float64(maxC))

	return s
}

// Shutdown drains the workers. AddWork must not be called afterwards.
func (s *Scheduler[T]) Shutdown() {
	s.log.Info("shutting down scheduler")

	for i := 0; i < s.maxConcurrency; i++ {
		s.feeder <- &task[T]{stop: true}
	}
	close(s.feeder)
	for i := 0; i < s.maxConcurrency; i++ {
		<-s.out
	}

	s.log.Info("scheduler shutdown complete")
}

// AddWork submits an item. Items sharing a key are processed strictly in
// submission order; if a worker is already busy on the key the item is
// appended to that key's backlog instead of being handed to another worker.
func (s *Scheduler[T]) AddWork(ctx context.Context, key string, val T) error {
	s.itemsAdded.Inc()
	t := &task[T]{
		key: key,
		val: val,
	}
	s.lk.Lock()

	a, ok := s.active[key]
	if ok {
		s.active[key] = append(a, t)
		s.lk.Unlock()
		return nil
	}

	s.active[key] = []*task[T]{}
	s.lk.Unlock()

	select {
	case s.feeder <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler[T]) worker() {
	for work := range s.feeder {
		for work != nil {
			if work.stop {
				s.out <- struct{}{}
				return
			}

			if err := s.do(context.TODO(), work.val); err != nil {
				s.log.Error("event handler failed", "err", err)
			}
			s.itemsProcessed.Inc()

			s.lk.Lock()
			rem, ok := s.active[work.key]
			if !ok {
				s.log.Error("should always have an 'active' entry if a worker is processing a job")
			}

			if len(rem) == 0 {
				delete(s.active, work.key)
				work = nil
			} else {
				work = rem[0]
				s.active[work.key] = rem[1:]
			}
			s.lk.Unlock()
		}
	}
}
