package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/gasebb/gas-forecast-etl/internal/domain"
)

func TestSleepWithContext(t *testing.T) {
	t.Run("wakes when the clock advances past the duration", func(t *testing.T) {
		fc := clockwork.NewFakeClock()
		domain.SetClock(fc)
		t.Cleanup(func() { domain.SetClock(nil) })

		done := make(chan bool, 1)
		go func() { done <- sleepWithContext(context.Background(), time.Hour) }()

		fc.BlockUntil(1)
		fc.Advance(time.Hour)
		assert.True(t, <-done)
	})

	t.Run("cancellation wins without advancing time", func(t *testing.T) {
		fc := clockwork.NewFakeClock()
		domain.SetClock(fc)
		t.Cleanup(func() { domain.SetClock(nil) })

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan bool, 1)
		go func() { done <- sleepWithContext(ctx, time.Hour) }()

		fc.BlockUntil(1)
		cancel()
		assert.False(t, <-done)
	})

	t.Run("non-positive duration returns immediately", func(t *testing.T) {
		assert.True(t, sleepWithContext(context.Background(), 0))
	})
}
