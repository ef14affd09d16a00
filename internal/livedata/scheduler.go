package livedata

import (
	"context"
	"time"

	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"

	"github.com/RithikaDevaraj/Prakriti/internal/metrics"
	"github.com/RithikaDevaraj/Prakriti/pkg/logger"
)

const refreshBackoff = 5 * time.Minute

// Scheduler runs the background refresh loop: on each cron tick it refreshes
// weather for every configured region, refreshes the market feed and sweeps
// expired snapshots. A failed run is retried once after a short backoff.
// Failures are logged and counted, never propagated.
type Scheduler struct {
	service *Service
	expr    *cronexpr.Expression
	regions []string
	stop    chan struct{}
	done    chan struct{}
	now     func() time.Time
}

// NewScheduler parses the cron spec and prepares the refresh loop. The spec
// defaults to hourly when it does not parse.
func NewScheduler(service *Service, cronSpec string, regions []string) *Scheduler {
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		logger.Warn("Invalid refresh cron spec, defaulting to hourly",
			zap.String("spec", cronSpec),
			zap.Error(err),
		)
		expr = cronexpr.MustParse("0 * * * *")
	}

	return &Scheduler{
		service: service,
		expr:    expr,
		regions: regions,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

func (s *Scheduler) Start() {
	go s.loop()
	logger.Info("Live data refresh scheduler started",
		zap.Int("regions", len(s.regions)),
		zap.Time("next_run", s.expr.Next(s.now())),
	)
}

// Stop signals the loop to exit and waits for the current run to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)

	for {
		next := s.expr.Next(s.now())
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		if ok := s.runOnce(); !ok {
			// One retry after backoff; the next cron tick covers the rest.
			select {
			case <-s.stop:
				return
			case <-time.After(refreshBackoff):
				s.runOnce()
			}
		}
	}
}

func (s *Scheduler) runOnce() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	failed := false

	for _, region := range s.regions {
		if err := s.service.RefreshWeather(ctx, region); err != nil {
			logger.Error("Scheduled weather refresh failed",
				zap.String("region", region),
				zap.Error(err),
			)
			failed = true
		}
	}

	if err := s.service.RefreshMarket(ctx); err != nil {
		logger.Error("Scheduled market refresh failed", zap.Error(err))
		failed = true
	}

	s.service.SweepExpired(ctx)

	if failed {
		metrics.ScheduledRefreshes.WithLabelValues("failure").Inc()
		return false
	}

	metrics.ScheduledRefreshes.WithLabelValues("success").Inc()
	logger.Info("Scheduled live data refresh complete", zap.Int("regions", len(s.regions)))
	return true
}
