package engine

import (
	"log/slog"
	"os"
	"sync"

	"github.com/kurumi-project/warden/countstore"
	"github.com/kurumi-project/warden/dispatcher"
	"github.com/kurumi-project/warden/flagstore"
	"github.com/kurumi-project/warden/ledger"
	"github.com/kurumi-project/warden/policystore"
	"github.com/kurumi-project/warden/setstore"
)

var _ MessageRuleFunc = simpleBadWordRule

func simpleBadWordRule(c *MessageContext) error {
	for _, tok := range c.Norm.Tokens {
		if c.InSet("bad-words", tok) {
			c.AddViolation(ledger.KindProfanity, c.Policy.ProfanityWeight, "matched wordlist")
			break
		}
	}
	return nil
}

// CaptureEnqueuer collects enqueued actions instead of dispatching them.
type CaptureEnqueuer struct {
	lk      sync.Mutex
	Actions []dispatcher.Action
}

func (q *CaptureEnqueuer) Enqueue(a dispatcher.Action) error {
	q.lk.Lock()
	defer q.lk.Unlock()
	q.Actions = append(q.Actions, a)
	return nil
}

func (q *CaptureEnqueuer) All() []dispatcher.Action {
	q.lk.Lock()
	defer q.lk.Unlock()
	out := make([]dispatcher.Action, len(q.Actions))
	copy(out, q.Actions)
	return out
}

func EngineTestFixture() (*Engine, *CaptureEnqueuer) {
	rules := RuleSet{
		MessageRules: []MessageRuleFunc{
			simpleBadWordRule,
		},
	}
	sets := setstore.NewMemSetStore()
	sets.AddToSet("bad-words", "slur")
	capture := &CaptureEnqueuer{}
	eng := &Engine{
		Logger:     slog.New(slog.NewTextHandler(os.Stdout, nil)),
		Policies:   policystore.NewMemPolicyStore(),
		Ledger:     ledger.NewMemLedger(),
		Rules:      rules,
		Sets:       sets,
		Counters:   countstore.NewMemCountStore(),
		Flags:      flagstore.NewMemFlagStore(),
		Dispatcher: capture,
	}
	return eng, capture
}
