package verification

import "context"

// Store persists verification records. Implementations return
// sentinel.ErrNotFound for misses and sentinel.ErrInvalidState when an
// attempt increment would exceed the cap.
//
// FindByIDAndCode looks up by the pair, never by id alone: a wrong code and
// a wrong id must be the same miss.
//
// NextFakeID draws the next value from the same id sequence real records
// use, without inserting a row. Failure paths that must return some id use
// it so a fake id is statistically indistinguishable from a real one.
type Store interface {
	Create(ctx context.Context, rec Record) (Record, error)
	FindByID(ctx context.Context, id int64) (Record, error)
	FindByIDAndCode(ctx context.Context, id int64, code string) (Record, error)
	IncrementAttempts(ctx context.Context, id int64, max int) (Record, error)
	NextFakeID(ctx context.Context) (int64, error)
}
