package services

import (
	"context"
	"log"
	"sync"
	"time"

	"tokflow/internal/coordinator"
	"tokflow/internal/protocol"
)

// PresenceService polls the driven page's login state and pushes
// changes to the panel, so an expired session is noticed before the
// next task fails on it.
type PresenceService struct {
	coord    *coordinator.Coordinator
	interval time.Duration
	running  bool
	ticker   *time.Ticker
	done     chan struct{}

	mu   sync.Mutex
	last protocol.LoginState
}

var GlobalPresence *PresenceService

func InitPresence(coord *coordinator.Coordinator, intervalSeconds int) {
	GlobalPresence = &PresenceService{
		coord:    coord,
		interval: time.Duration(intervalSeconds) * time.Second,
		last:     protocol.LoginUnknown,
	}
	GlobalPresence.Start()
}

func (s *PresenceService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	s.running = true
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})

	go s.pollLoop()
	log.Println("Presence service started")
}

func (s *PresenceService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.running = false
	s.ticker.Stop()
	close(s.done)
	log.Println("Presence service stopped")
}

func (s *PresenceService) pollLoop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.checkPresence()
		}
	}
}

func (s *PresenceService) checkPresence() {
	resp := s.coord.Dispatch(context.Background(), protocol.Request{
		Action: protocol.ActionCheckLoginStatus,
	})
	status, ok := resp.(protocol.LoginStatus)
	if !ok {
		return
	}

	s.mu.Lock()
	changed := status.State != s.last
	prev := s.last
	if changed {
		s.last = status.State
	}
	s.mu.Unlock()

	if changed {
		log.Printf("Login state changed: %s -> %s", prev, status.State)
		GlobalEvents.Broadcast("presence", status)
	}
}

// Current returns the last observed login state.
func (s *PresenceService) Current() protocol.LoginState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
