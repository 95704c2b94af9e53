// Package snapshot holds the process-wide view of the active template.
// Readers get lock-free access to an immutable snapshot; updates swap the
// whole snapshot atomically and notify subscribers of the new ETag.
package snapshot

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/TimurManjosov/goconfigship/internal/template"
)

// Snapshot is one immutable view of the active template. The template must
// not be mutated after the snapshot is built.
type Snapshot struct {
	ETag      string             `json:"etag"`
	Template  *template.Template `json:"template"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Holder stores the current snapshot behind an atomic pointer and fans out
// update notifications. The zero value is not usable; use NewHolder.
type Holder struct {
	current atomic.Pointer[Snapshot]

	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewHolder creates an empty holder. Load returns an empty snapshot until
// the first Update.
func NewHolder() *Holder {
	return &Holder{subs: make(map[chan string]struct{})}
}

// Load returns the current snapshot. Never nil: before the first update it
// returns an empty snapshot with no template and an empty ETag.
func (h *Holder) Load() *Snapshot {
	if s := h.current.Load(); s != nil {
		return s
	}
	return &Snapshot{}
}

// Update swaps in a new snapshot built from tpl and notifies subscribers.
// Returns the stored snapshot.
func (h *Holder) Update(tpl *template.Template) (*Snapshot, error) {
	etag, err := ETag(tpl)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{ETag: etag, Template: tpl, UpdatedAt: time.Now().UTC()}
	h.current.Store(s)
	h.publish(s.ETag)
	return s, nil
}

// Subscribe registers a listener for new ETags and returns its channel and
// an unsubscribe func. The channel is buffered; slow listeners miss
// intermediate updates instead of blocking publishers.
func (h *Holder) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	unsub := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, unsub
}

// publish notifies all listeners without blocking on any of them.
func (h *Holder) publish(etag string) {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- etag:
		default:
		}
	}
	h.mu.Unlock()
}

// ETag computes the weak entity tag for a template: xxh3 over its canonical
// JSON form. encoding/json orders map keys, so equal templates always hash
// equal.
func ETag(tpl *template.Template) (string, error) {
	data, err := tpl.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode template for etag: %w", err)
	}
	return fmt.Sprintf(`W/"%016x"`, xxh3.Hash(data)), nil
}
