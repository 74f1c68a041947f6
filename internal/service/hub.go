package service

import (
	"context"
	"sync"

	"aquaponics_monitor/internal/models"
)

// Hub fans DeviceStatus snapshots out to push subscribers.
// Each subscriber holds at most one unread snapshot; a newer one replaces it.
type Hub struct {
	mu   sync.Mutex
	subs map[chan models.DeviceStatus]struct{}
	last *models.DeviceStatus
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan models.DeviceStatus]struct{})}
}

// Subscribe returns a channel that receives the latest snapshot (if any) and every
// later one. The channel is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context) <-chan models.DeviceStatus {
	ch := make(chan models.DeviceStatus, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.last != nil {
		ch <- *h.last
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

// Publish never blocks.
func (h *Hub) Publish(s models.DeviceStatus) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = &s
	for ch := range h.subs {
		select {
		case ch <- s:
		default:
			// drop the stale snapshot, keep the newest
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}

// Subscribers is the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
