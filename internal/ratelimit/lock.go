package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const jobLockPrefix = "streamgate:sweeper:"

// Compare-and-delete so a lease that outlived its TTL never drops a newer holder.
const releaseLeaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockNotConfigured = errors.New("job_lock_not_configured")
	ErrInvalidLockJob    = errors.New("invalid_lock_job")
	ErrInvalidLockTTL    = errors.New("invalid_lock_ttl")
)

// JobLocker hands out per-job leases so a maintenance job runs on one
// instance at a time.
type JobLocker struct {
	client *redis.Client
	script *redis.Script
	log    *zap.Logger
}

// Lease is a held job lock. It expires on its own after the TTL.
type Lease struct {
	Job       string
	ExpiresAt time.Time

	key    string
	token  string
	locker *JobLocker
}

// NewJobLocker returns nil when Redis is not configured.
func NewJobLocker(client *redis.Client, log *zap.Logger) *JobLocker {
	if client == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &JobLocker{
		client: client,
		script: redis.NewScript(releaseLeaseScript),
		log:    log.Named("ratelimit.joblock"),
	}
}

// LockKey is the Redis key guarding job.
func LockKey(job string) string {
	return jobLockPrefix + strings.TrimSpace(job)
}

// Acquire takes the lease for job. A nil lease with a nil error means another
// instance holds it.
func (l *JobLocker) Acquire(ctx context.Context, job string, ttl time.Duration) (*Lease, error) {
	if l == nil || l.client == nil {
		return nil, ErrLockNotConfigured
	}
	job = strings.TrimSpace(job)
	if job == "" {
		return nil, ErrInvalidLockJob
	}
	if ttl <= 0 {
		return nil, ErrInvalidLockTTL
	}

	key := LockKey(job)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		l.log.Debug("job lease held elsewhere", zap.String("job", job), zap.Duration("ttl", ttl))
		return nil, nil
	}
	return &Lease{
		Job:       job,
		ExpiresAt: time.Now().Add(ttl),
		key:       key,
		token:     token,
		locker:    l,
	}, nil
}

// Release gives the lease back early. Releasing a nil or expired lease is a no-op.
func (ls *Lease) Release(ctx context.Context) error {
	if ls == nil || ls.locker == nil || ls.locker.client == nil {
		return nil
	}
	if time.Now().After(ls.ExpiresAt) {
		ls.locker.log.Warn("job outlived its lease", zap.String("job", ls.Job))
	}
	return ls.locker.script.Run(ctx, ls.locker.client, []string{ls.key}, ls.token).Err()
}
