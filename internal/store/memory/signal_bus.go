package memory

import (
	"context"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

const (
	subscriberBuffer = 128
	streamMaxLen     = 10000
)

// SignalBus is an in-process domain.SignalBus. Patterns use path.Match
// globs, which cover the "*" and "?" forms Redis accepts. Slow subscribers
// miss messages rather than block publishers.
type SignalBus struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	nextSub int
	streams map[string][]domain.StreamMessage
	seq     map[string]int64
}

type subscriber struct {
	pattern string
	out     chan []byte
}

// NewSignalBus returns an empty SignalBus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subs:    make(map[int]subscriber),
		streams: make(map[string][]domain.StreamMessage),
		seq:     make(map[string]int64),
	}
}

// Publish delivers payload to every matching subscriber.
func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	_ = ctx
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if ok, _ := path.Match(s.pattern, channel); !ok {
			continue
		}
		select {
		case s.out <- slices.Clone(payload):
		default:
		}
	}
	return nil
}

// Subscribe listens on channel or pattern until ctx is done.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if _, err := path.Match(channel, ""); err != nil {
		return nil, domain.Invalid("channel", "bad pattern %q", channel)
	}
	out := make(chan []byte, subscriberBuffer)
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = subscriber{pattern: channel, out: out}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(out)
		b.mu.Unlock()
	}()
	return out, nil
}

// StreamAppend adds payload to stream, trimming the oldest entries past
// the cap.
func (b *SignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	_ = ctx
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq[stream]++
	msgs := append(b.streams[stream], domain.StreamMessage{
		ID:      strconv.FormatInt(b.seq[stream], 10) + "-0",
		Payload: slices.Clone(payload),
	})
	if len(msgs) > streamMaxLen {
		msgs = slices.Delete(msgs, 0, len(msgs)-streamMaxLen)
	}
	b.streams[stream] = msgs
	return nil
}

// StreamRead returns up to count entries after lastID. An empty lastID or
// "0" reads from the start.
func (b *SignalBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	_ = ctx
	after := streamSeq(lastID)
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.StreamMessage
	for _, m := range b.streams[stream] {
		if streamSeq(m.ID) <= after {
			continue
		}
		out = append(out, m)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}

func streamSeq(id string) int64 {
	head, _, _ := strings.Cut(id, "-")
	n, _ := strconv.ParseInt(head, 10, 64)
	return n
}

var _ domain.SignalBus = (*SignalBus)(nil)
