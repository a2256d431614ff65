package server

import (
	"encoding/json"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpose/internal/result"
)

// Update is one annotated frame as served to HTTP clients.
type Update struct {
	Index int
	JPEG  []byte
	JSON  []byte
}

// Hub hands the pipeline's latest annotated frame to any number of HTTP
// clients. Each subscriber has a one-slot mailbox: a slow client skips
// frames, it never blocks the pipeline.
type Hub struct {
	mu     sync.Mutex
	latest *Update
	subs   map[chan Update]struct{}
	closed bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Update]struct{})}
}

// Write encodes frame as JPEG and publishes it together with r.
func (h *Hub) Write(frame *gocv.Mat, r *result.Frame) error {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases the native buffer, which is freed on return.
	jpeg := append([]byte(nil), buf.GetBytes()...)
	return h.Publish(jpeg, r)
}

// Publish stores the update as the latest frame and offers it to every
// subscriber.
func (h *Hub) Publish(jpeg []byte, r *result.Frame) error {
	msg, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	u := Update{Index: r.Index, JPEG: jpeg, JSON: msg}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.latest = &u

	for ch := range h.subs {
		select {
		case ch <- u:
		default:
			// Replace the stale frame in the mailbox.
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
	return nil
}

// Subscribe returns a channel of updates, primed with the latest frame if
// there is one, and a function that cancels the subscription. The channel
// is closed when the Hub closes or the subscription is cancelled.
func (h *Hub) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.latest != nil {
		ch <- *h.latest
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Latest returns the most recent update, if any.
func (h *Hub) Latest() (Update, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return Update{}, false
	}
	return *h.latest, true
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Further publishes are dropped.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
	return nil
}
