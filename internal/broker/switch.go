package broker

import (
	"context"
	"sync"
)

// Switch routes broker calls to the emulator while it runs, else to the remote channel.
type Switch struct {
	remote Broker

	mu       sync.RWMutex
	emulated Broker
}

var _ Broker = (*Switch)(nil)

// NewSwitch wraps the remote broker. remote may be nil when no channel is configured.
func NewSwitch(remote Broker) *Switch {
	return &Switch{remote: remote}
}

// UseEmulator routes all calls to b until UseRemote is called.
func (s *Switch) UseEmulator(b Broker) {
	s.mu.Lock()
	s.emulated = b
	s.mu.Unlock()
}

// UseRemote routes calls back to the remote channel.
func (s *Switch) UseRemote() {
	s.mu.Lock()
	s.emulated = nil
	s.mu.Unlock()
}

// Source reports which backend is active.
func (s *Switch) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.emulated != nil {
		return SourceEmulator
	}
	return SourceThingSpeak
}

func (s *Switch) active() (Broker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.emulated != nil {
		return s.emulated, nil
	}
	if s.remote == nil {
		return nil, ErrNotConfigured
	}
	return s.remote, nil
}

func (s *Switch) Latest(ctx context.Context) (Entry, error) {
	b, err := s.active()
	if err != nil {
		return Entry{}, err
	}
	return b.Latest(ctx)
}

func (s *Switch) Feeds(ctx context.Context, q FeedQuery) ([]Entry, error) {
	b, err := s.active()
	if err != nil {
		return nil, err
	}
	return b.Feeds(ctx, q)
}

func (s *Switch) Write(ctx context.Context, u Update) (int64, error) {
	b, err := s.active()
	if err != nil {
		return 0, err
	}
	return b.Write(ctx, u)
}
