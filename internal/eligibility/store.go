package eligibility

import (
	"context"
	"time"
)

// Store resolves eligibility rows. Implementations return
// sentinel.ErrNotFound for misses; a miss on FindByMember is how the
// pipeline learns a member-id/birthday pair is wrong, so implementations
// must not distinguish "unknown member id" from "birthday mismatch".
type Store interface {
	FindByID(ctx context.Context, eligibleID string) (Record, error)
	FindByMember(ctx context.Context, accountID, memberID string, birthday time.Time) (Record, error)
}
