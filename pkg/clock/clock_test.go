package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualSleepAdvancesImmediately(t *testing.T) {
	start := time.Unix(1700000000, 0)
	clk := NewManual(start)

	err := clk.Sleep(context.Background(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Second), clk.Now())
	assert.Equal(t, []time.Duration{2 * time.Second}, clk.Slept)
}

func TestManualSleepHonorsCancellation(t *testing.T) {
	clk := NewManual(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := clk.Sleep(ctx, time.Second)
	assert.Error(t, err)
}

func TestManualAdvance(t *testing.T) {
	start := time.Unix(0, 0)
	clk := NewManual(start)

	clk.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), clk.Now())
}

func TestRealClockNow(t *testing.T) {
	clk := New()
	before := time.Now()
	now := clk.Now()
	assert.False(t, now.Before(before.Add(-time.Second)))
}
