package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	catalogdomain "github.com/smallbiznis/streamgate/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/streamgate/internal/checkout/domain"
	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/smallbiznis/streamgate/internal/config"
	identitydomain "github.com/smallbiznis/streamgate/internal/identity/domain"
	"github.com/smallbiznis/streamgate/internal/modal"
	obsmetrics "github.com/smallbiznis/streamgate/internal/observability/metrics"
	"github.com/smallbiznis/streamgate/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrUnknownJob = errors.New("unknown_job")

const (
	JobCheckoutExpire = "checkout.expire"
	JobCatalogWarm    = "catalog.warm"
	JobIdentityPurge  = "identity.purge"
	JobModalEvict     = "modal.evict"

	defaultLockTTL   = 50 * time.Second
	identitySchedule = "@every 1h"
	modalSchedule    = "@every 5m"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Config   config.Config
	Checkout checkoutdomain.Service
	Catalog  catalogdomain.Service
	Identity identitydomain.Service
	Modals   *modal.Registry         `optional:"true"`
	Locker   *ratelimit.JobLocker    `optional:"true"`
	Metrics  *obsmetrics.GateMetrics `optional:"true"`
	Clock    clock.Clock
}

// Job is one periodic maintenance task.
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Sweeper runs maintenance jobs on cron schedules. With Redis configured each
// run is guarded by a lock so only one instance executes a job at a time.
type Sweeper struct {
	log     *zap.Logger
	locker  *ratelimit.JobLocker
	metrics *obsmetrics.GateMetrics
	clock   clock.Clock
	lockTTL time.Duration
	jobs    []Job
	cron    *cron.Cron
}

func New(p Params) (*Sweeper, error) {
	if p.Checkout == nil || p.Catalog == nil || p.Identity == nil || p.Clock == nil {
		return nil, errors.New("sweeper: missing dependency")
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Gate()
	}
	lockTTL := p.Config.Sweeper.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	jobs := []Job{
		{
			Name:     JobCheckoutExpire,
			Schedule: p.Config.Sweeper.ExpireSchedule,
			Timeout:  30 * time.Second,
			Run: func(ctx context.Context) error {
				_, err := p.Checkout.ExpireStale(ctx)
				return err
			},
		},
		{
			Name:     JobCatalogWarm,
			Schedule: p.Config.Sweeper.WarmSchedule,
			Timeout:  2 * time.Minute,
			Run:      p.Catalog.Warm,
		},
		{
			Name:     JobIdentityPurge,
			Schedule: identitySchedule,
			Timeout:  30 * time.Second,
			Run: func(ctx context.Context) error {
				_, err := p.Identity.PurgeExpired(ctx)
				return err
			},
		},
	}
	if p.Modals != nil {
		jobs = append(jobs, Job{
			Name:     JobModalEvict,
			Schedule: modalSchedule,
			Timeout:  5 * time.Second,
			Run: func(context.Context) error {
				p.Modals.EvictIdle()
				return nil
			},
		})
	}

	return newSweeper(p.Log, p.Locker, metrics, p.Clock, lockTTL, jobs), nil
}

func newSweeper(log *zap.Logger, locker *ratelimit.JobLocker, metrics *obsmetrics.GateMetrics, clk clock.Clock, lockTTL time.Duration, jobs []Job) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("sweeper").With(zap.String("component", "sweeper"))
	return &Sweeper{
		log:     log,
		locker:  locker,
		metrics: metrics,
		clock:   clk,
		lockTTL: lockTTL,
		jobs:    jobs,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
			cron.WithLogger(cronLogger{log}),
		),
	}
}

func (s *Sweeper) Jobs() []Job {
	return append([]Job(nil), s.jobs...)
}

// Start schedules every job with a non-empty schedule and starts the cron.
func (s *Sweeper) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		if job.Schedule == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.Schedule, func() {
			if err := s.runJob(ctx, job); err != nil {
				s.log.Warn("sweeper job failed", zap.String("job", job.Name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name, err)
		}
		s.log.Info("sweeper job scheduled", zap.String("job", job.Name), zap.String("schedule", job.Schedule))
	}
	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for running jobs or ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs every job immediately, in order, and joins their errors.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	var err error
	for _, job := range s.jobs {
		err = errors.Join(err, s.runJob(ctx, job))
	}
	return err
}

func (s *Sweeper) RunJob(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.runJob(ctx, job)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

func (s *Sweeper) runJob(parent context.Context, job Job) error {
	log := s.log.With(zap.String("job", job.Name))

	if s.locker != nil {
		lease, err := s.locker.Acquire(parent, job.Name, s.lockTTL)
		if err != nil {
			return fmt.Errorf("%s: acquire lock: %w", job.Name, err)
		}
		if lease == nil {
			log.Debug("sweeper job held by another instance")
			return nil
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(parent)); err != nil {
				log.Warn("failed to release sweeper lock", zap.Error(err))
			}
		}()
	}

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := s.clock.Now()
	err := job.Run(ctx)
	s.metrics.ObserveJob(job.Name, s.clock.Now().Sub(start), err)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("sweeper job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", job.Name, err)
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
