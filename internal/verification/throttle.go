package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	dErrors "membergate/pkg/domain-errors"
)

// Throttle rate-limits deliveries per target over a sliding window so a bad
// actor cannot use resends to spam someone's inbox or phone. A nil Throttle
// allows everything, matching the nil-client convention of the redis
// platform package.
type Throttle struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
}

// NewThrottle builds a delivery throttle. Returns nil when the client is
// nil so unconfigured environments skip throttling.
func NewThrottle(client redis.Cmdable, limit int64, window time.Duration) *Throttle {
	if client == nil {
		return nil
	}
	return &Throttle{client: client, limit: limit, window: window}
}

// Allow records a delivery against the target and fails once the window
// limit is exceeded. Redis outages fail open: throttling is a hardening
// layer, not a correctness requirement.
func (t *Throttle) Allow(ctx context.Context, target string) error {
	if t == nil || target == "" {
		return nil
	}

	key := fmt.Sprintf("verification:deliveries:%s", target)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return nil
	}
	if count == 1 {
		t.client.Expire(ctx, key, t.window)
	}
	if count > t.limit {
		return dErrors.New(dErrors.CodeInvalidState, "too many deliveries requested")
	}
	return nil
}
