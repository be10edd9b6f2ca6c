// Package service implements the operations callers invoke on rooms and
// reservations.  Services own transaction boundaries; repositories own SQL.
// Nothing in this package logs: every failure is returned to the caller as
// one of the sentinel errors of this package or of the repository package.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/building-management/internal/queue"
	"github.com/iliyamo/building-management/internal/repository"
)

// ErrInvalidArgument is returned for malformed input such as a
// non-positive transfer count, a self-transfer or an invalid date.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// EventPublisher receives a notification after a change was committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// CalendarCache caches ReservedDays results per room and month.  Get
// reports the room's generation even on a miss; Set only stores days whose
// generation is still current, so a fill that raced with Invalidate or
// InvalidateRoom is dropped.
type CalendarCache interface {
	Get(ctx context.Context, roomID uint64, year int, month time.Month) (days []int, gen uint64, hit bool)
	Set(ctx context.Context, roomID uint64, year int, month time.Month, gen uint64, days []int) (bool, error)
	Invalidate(ctx context.Context, roomID uint64, year int, month time.Month) error
	InvalidateRoom(ctx context.Context, roomID uint64) error
}

var tracer = otel.Tracer("github.com/iliyamo/building-management/internal/service")

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// inTx runs fn inside a transaction and commits when fn returns nil.  Any
// error, a panic or a cancelled ctx rolls everything back.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return repository.Classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return repository.Classify(err)
	}
	committed = true
	return nil
}

// afterCommit returns a context for follow-up work (events, cache
// invalidation) that must not be skipped because the caller went away
// right after the commit.
func afterCommit(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}

func timestamp() string { return time.Now().UTC().Format(time.RFC3339) }
