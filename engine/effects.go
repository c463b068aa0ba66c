package engine

var (
	// number of kicks automod may apply per guild per day (circuit breaker)
	QuotaKickDay = 25
	// number of bans automod may apply per guild per day (circuit breaker)
	QuotaBanDay = 10
)

type CounterRef struct {
	Name string
	Val  string
}

// One detector finding against the current event.
type ViolationEffect struct {
	Kind   string
	Weight float64
	Note   string
}

// Mutable container for all the possible side-effects from detector
// execution. Detectors only append here; persistence happens in bulk after
// all detectors have run, so a single event with several findings is scored
// once against the combined aggregate.
type Effects struct {
	// Violations found by detectors during this event. Each is recorded to
	// the ledger separately; they are never merged.
	Violations []ViolationEffect
	// Flags (private operator-visible markers) to apply to the user.
	UserFlags []string
	// Counters to increment as part of processing this event.
	CounterIncrements []CounterRef
	// If true, a detector asked for the offending message to be deleted as
	// part of whatever enforcement follows.
	DeleteMessage bool
}

// Enqueues a violation to be recorded at the end of detector processing.
func (e *Effects) AddViolation(kind string, weight float64, note string) {
	e.Violations = append(e.Violations, ViolationEffect{Kind: kind, Weight: weight, Note: note})
}

// Enqueues the provided flag (string value) to be recorded against the user
// at the end of detector processing.
func (e *Effects) AddUserFlag(val string) {
	e.UserFlags = append(e.UserFlags, val)
}

// Enqueues the named counter to be incremented at the end of detector
// processing. Will automatically increment for all time periods.
func (e *Effects) Increment(name, val string) {
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val})
}

func (e *Effects) RequestDeleteMessage() {
	e.DeleteMessage = true
}

func (e *Effects) totalWeight() float64 {
	var sum float64
	for _, v := range e.Violations {
		sum += v.Weight
	}
	return sum
}
