package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/streamgate/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *recorder) job(name string, err error) Job {
	return Job{
		Name:     name,
		Schedule: "@every 1m",
		Run: func(context.Context) error {
			r.mu.Lock()
			r.runs = append(r.runs, name)
			r.mu.Unlock()
			return err
		},
	}
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func TestRunOnceRunsEveryJobAndJoinsErrors(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("boom")
	s := newSweeper(zap.NewNop(), nil, nil, clock.New(), time.Minute, []Job{
		rec.job(JobCheckoutExpire, nil),
		rec.job(JobCatalogWarm, boom),
		rec.job(JobIdentityPurge, nil),
	})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), JobCatalogWarm)
	assert.Equal(t, []string{JobCheckoutExpire, JobCatalogWarm, JobIdentityPurge}, rec.names())
}

func TestRunJobByName(t *testing.T) {
	rec := &recorder{}
	s := newSweeper(zap.NewNop(), nil, nil, clock.New(), time.Minute, []Job{
		rec.job(JobCheckoutExpire, nil),
		rec.job(JobModalEvict, nil),
	})

	require.NoError(t, s.RunJob(context.Background(), JobModalEvict))
	assert.Equal(t, []string{JobModalEvict}, rec.names())
	assert.ErrorIs(t, s.RunJob(context.Background(), "nope"), ErrUnknownJob)
}

func TestRunJobTreatsTimeoutAsSoft(t *testing.T) {
	s := newSweeper(zap.NewNop(), nil, nil, clock.New(), time.Minute, []Job{{
		Name:    JobCatalogWarm,
		Timeout: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}})

	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := newSweeper(zap.NewNop(), nil, nil, clock.New(), time.Minute, []Job{{
		Name:     JobCheckoutExpire,
		Schedule: "every now and then",
		Run:      func(context.Context) error { return nil },
	}})

	assert.Error(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestStartRunsScheduledJobs(t *testing.T) {
	rec := &recorder{}
	job := rec.job(JobCheckoutExpire, nil)
	job.Schedule = "@every 1s"
	s := newSweeper(zap.NewNop(), nil, nil, clock.New(), time.Minute, []Job{job})

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	assert.Eventually(t, func() bool { return len(rec.names()) > 0 }, 3*time.Second, 20*time.Millisecond)
}
