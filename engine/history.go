package engine

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kurumi-project/warden/keyword"
)

// hard cap on buffered messages per (guild, user) pair
const windowCap = 32

// default cap on tracked (guild, user) pairs; oldest-touched entries are
// evicted first so memory stays bounded no matter how many users pass
// through
const defaultMaxTrackedUsers = 10_000

// One buffered recent message, pre-normalized for the duplicate detector.
type RecentMessage struct {
	ChannelID string
	MessageID string
	NormText  string
	Tokens    []string
	At        time.Time
}

// Short per-(guild, user) buffer of recent messages, used by the flood and
// duplicate detectors. Mutated only from the per-key serialized ingestion
// path, so no internal locking is needed.
type RecentWindow struct {
	msgs []RecentMessage
}

func (w *RecentWindow) Append(m RecentMessage) {
	w.msgs = append(w.msgs, m)
	if len(w.msgs) > windowCap {
		w.msgs = w.msgs[len(w.msgs)-windowCap:]
	}
}

// All returns buffered messages oldest-first, including the current one.
func (w *RecentWindow) All() []RecentMessage {
	return w.msgs
}

func normalizeMessage(evt *MessageEvent) RecentMessage {
	tokens := keyword.TokenizeText(evt.Text)
	return RecentMessage{
		ChannelID: evt.ChannelID,
		MessageID: evt.MessageID,
		NormText:  strings.Join(tokens, " "),
		Tokens:    tokens,
		At:        evt.Timestamp,
	}
}

type windowTable struct {
	once sync.Once
	lru  *lru.Cache[string, *RecentWindow]
}

func (t *windowTable) get(key string, max int) *RecentWindow {
	t.once.Do(func() {
		if max <= 0 {
			max = defaultMaxTrackedUsers
		}
		cache, err := lru.New[string, *RecentWindow](max)
		if err != nil {
			panic(err)
		}
		t.lru = cache
	})
	w, ok := t.lru.Get(key)
	if !ok {
		w = &RecentWindow{}
		t.lru.Add(key, w)
	}
	return w
}

func (t *windowTable) drop(key string) {
	if t.lru != nil {
		t.lru.Remove(key)
	}
}
