package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tokflow/internal/protocol"
)

func TestPresenceStopReleasesPollLoop(t *testing.T) {
	s := &PresenceService{interval: time.Hour, last: protocol.LoginUnknown}

	s.Start()
	s.Stop()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("poll loop not released after Stop")
	}

	// Stop is idempotent.
	s.Stop()
	assert.False(t, s.running)
}

func TestPresenceStartIsIdempotent(t *testing.T) {
	s := &PresenceService{interval: time.Hour, last: protocol.LoginUnknown}

	s.Start()
	first := s.done
	s.Start()
	assert.Equal(t, first, s.done)

	s.Stop()
}
