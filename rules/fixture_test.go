package rules

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kurumi-project/warden/countstore"
	"github.com/kurumi-project/warden/engine"
	"github.com/kurumi-project/warden/flagstore"
	"github.com/kurumi-project/warden/keyword"
	"github.com/kurumi-project/warden/ledger"
	"github.com/kurumi-project/warden/policystore"
	"github.com/kurumi-project/warden/setstore"
)

func engineFixture() (*engine.Engine, *engine.CaptureEnqueuer) {
	sets := setstore.NewMemSetStore()
	sets.AddToSet("bad-words", "slur", "worstword")
	capture := &engine.CaptureEnqueuer{}
	eng := &engine.Engine{
		Logger:     slog.New(slog.NewTextHandler(os.Stdout, nil)),
		Policies:   policystore.NewMemPolicyStore(),
		Ledger:     ledger.NewMemLedger(),
		Rules:      DefaultRules(),
		Sets:       sets,
		Counters:   countstore.NewMemCountStore(),
		Flags:      flagstore.NewMemFlagStore(),
		Dispatcher: capture,
		SlugWords:  keyword.NewSlugMatcher([]string{"slur", "worstword"}),
	}
	return eng, capture
}

var msgSeq int

func nextMessage(guild, user, channel, text string, at time.Time) engine.MessageEvent {
	msgSeq++
	return engine.MessageEvent{
		GuildID:   guild,
		ChannelID: channel,
		UserID:    user,
		MessageID: fmt.Sprintf("m-%d", msgSeq),
		Text:      text,
		Timestamp: at,
	}
}
