// Package flagstore records private per-user moderation flags (eg,
// "repeat-offender") applied by detectors. Flags are operator-visible
// metadata, distinct from violation records: they carry no weight and never
// decay.
package flagstore

import (
	"context"
)

type FlagStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, flags []string) error
	Remove(ctx context.Context, key string, flags []string) error
}
