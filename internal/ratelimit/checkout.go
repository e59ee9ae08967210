package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/streamgate/internal/config"
	"go.uber.org/zap"
)

const keyCheckoutPrincipal = "checkout:create:principal:%s"

// CheckoutLimiter caps how often one principal can open checkout or portal sessions.
type CheckoutLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCheckoutLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) (*CheckoutLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		log.Info("checkout rate limit disabled",
			zap.Bool("enabled", limitCfg.Enabled),
			zap.Bool("redis", client != nil),
		)
		return nil, nil
	}
	if limitCfg.CheckoutRate <= 0 || limitCfg.CheckoutBurst <= 0 {
		return nil, fmt.Errorf("checkout rate limit must be positive")
	}

	return &CheckoutLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.CheckoutRate,
		burst:  limitCfg.CheckoutBurst,
	}, nil
}

func (l *CheckoutLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow consumes one token for principalID; a disabled limiter always allows.
func (l *CheckoutLimiter) Allow(ctx context.Context, principalID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutPrincipal, strings.TrimSpace(principalID)), l.rate, l.burst)
}
