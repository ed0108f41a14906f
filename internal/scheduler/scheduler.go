package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-co-op/gocron"
	"github.com/smallbiznis/frontdesk/internal/autocheckout/domain"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/lock"
	obsmetrics "github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const fallbackJob = "auto_checkout_fallback"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log      *zap.Logger
	Service  domain.Service
	Locker   lock.Locker
	Clock    clock.Clock
	Settings *config.AutoCheckoutHolder
	GenID    *snowflake.Node
	Config   Config `optional:"true"`
}

// Scheduler drives the fallback trigger on a cron cadence. Replicas share
// a per-day lock so only one of them runs a given tick.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	svc      domain.Service
	locker   lock.Locker
	clock    clock.Clock
	settings *config.AutoCheckoutHolder
	genID    *snowflake.Node

	mu   sync.Mutex
	cron *gocron.Scheduler
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Service == nil || p.Locker == nil || p.Clock == nil || p.Settings == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		svc:      p.Service,
		locker:   p.Locker,
		clock:    p.Clock,
		settings: p.Settings,
		genID:    p.GenID,
	}, nil
}

// Start registers the fallback job in the configured timezone. Timezone
// changes in the settings file take effect on the next process start.
func (s *Scheduler) Start() error {
	loc, err := s.settings.Get().Location()
	if err != nil {
		return fmt.Errorf("scheduler timezone: %w", err)
	}

	cron := gocron.NewScheduler(loc)
	cron.SingletonModeAll()
	if _, err := cron.Cron(s.cfg.Cron).Tag(fallbackJob).Do(s.tick); err != nil {
		return fmt.Errorf("schedule %s: %w", fallbackJob, err)
	}

	s.mu.Lock()
	s.cron = cron
	s.mu.Unlock()

	cron.StartAsync()
	s.log.Info("scheduler.start",
		zap.String("cron", s.cfg.Cron),
		zap.String("timezone", loc.String()),
	)
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	cron := s.cron
	s.cron = nil
	s.mu.Unlock()

	if cron != nil {
		cron.Stop()
		s.log.Info("scheduler.stop")
	}
}

func (s *Scheduler) tick() {
	if err := s.RunOnce(context.Background()); err != nil {
		s.log.Warn("scheduler run failed", zap.Error(err))
	}
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, fallbackJob, s.cfg.JobTimeout, s.FallbackJob)
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// FallbackJob takes the per-day lock and runs the fallback trigger once.
func (s *Scheduler) FallbackJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	schedMetrics := obsmetrics.Scheduler()

	settings := s.settings.Get()
	if !settings.Enabled {
		schedMetrics.IncJobSkipped(fallbackJob, obsmetrics.SchedulerSkipReasonDisabled)
		s.logger(ctx).Debug("scheduler.fallback.skipped", zap.String("reason", obsmetrics.SchedulerSkipReasonDisabled))
		return nil
	}
	loc, err := settings.Location()
	if err != nil {
		return err
	}
	date := s.clock.Now().In(loc).Format(domain.DateLayout)
	key := lock.FallbackKey(date)

	token, acquired, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		schedMetrics.IncJobSkipped(fallbackJob, obsmetrics.SchedulerSkipReasonLockError)
		s.logSchedulerError(ctx, run, "scheduler.fallback.lock_failed", fallbackJob, err, zap.String("date", date))
		return nil
	}
	if !acquired {
		schedMetrics.IncJobSkipped(fallbackJob, obsmetrics.SchedulerSkipReasonLockHeld)
		s.logger(ctx).Debug("scheduler.fallback.skipped",
			zap.String("reason", obsmetrics.SchedulerSkipReasonLockHeld),
			zap.String("date", date),
		)
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger(ctx).Warn("scheduler.fallback.unlock_failed", zap.String("date", date), zap.Error(err))
		}
	}()

	result, err := s.svc.RunFallback(ctx)
	if err != nil {
		return err
	}
	if result.Result != nil {
		run.AddProcessed(result.Result.Found)
		run.AddErrors(result.Result.Failed)
	}
	s.logFallbackResult(ctx, result)
	return nil
}
