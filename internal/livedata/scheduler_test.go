package livedata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	svc := newTestService(&memStore{}, "", "", "")

	t.Run("Invalid cron spec falls back to hourly", func(t *testing.T) {
		sched := NewScheduler(svc, "not a cron", nil)

		base := time.Date(2026, 8, 23, 10, 30, 0, 0, time.UTC)
		next := sched.expr.Next(base)
		assert.Equal(t, time.Date(2026, 8, 23, 11, 0, 0, 0, time.UTC), next)
	})

	t.Run("Valid spec is honored", func(t *testing.T) {
		sched := NewScheduler(svc, "*/15 * * * *", nil)

		base := time.Date(2026, 8, 23, 10, 3, 0, 0, time.UTC)
		next := sched.expr.Next(base)
		assert.Equal(t, time.Date(2026, 8, 23, 10, 15, 0, 0, time.UTC), next)
	})

	t.Run("Start and Stop terminate cleanly", func(t *testing.T) {
		sched := NewScheduler(svc, "0 * * * *", []string{"Chennai"})
		sched.Start()

		done := make(chan struct{})
		go func() {
			sched.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			require.FailNow(t, "scheduler did not stop in time")
		}
	})
}
