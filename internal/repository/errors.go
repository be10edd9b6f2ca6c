// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors. Not-found errors all wrap
// ErrNotFound so callers may match either the specific or the general
// value.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is the umbrella error for missing rows.
var ErrNotFound = errors.New("not found")

var (
	ErrRoomNotFound        = fmt.Errorf("room %w", ErrNotFound)
	ErrReservationNotFound = fmt.Errorf("reservation %w", ErrNotFound)
	ErrProjectorNotFound   = fmt.Errorf("projector %w", ErrNotFound)
)

// ErrCapacityViolation is returned when a write would leave a room with a
// negative occupancy or more people than its capacity. The transaction
// carrying the write must be rolled back.
var ErrCapacityViolation = errors.New("capacity violation")

// ErrAlreadyReserved is returned when the room already has a reservation
// on the requested date.
var ErrAlreadyReserved = errors.New("room already reserved on this date")

// ErrConcurrencyConflict is returned when the storage engine aborted the
// statement because of lock contention (deadlock victim or lock wait
// timeout). It carries no other meaning and the call may be retried.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// ErrConflict is returned when an insert collides with existing state,
// such as attaching a second projector to a room.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers the repositories translate.
const (
	errDupEntry              = 1062
	errNoReferencedRow       = 1452
	errLockWaitTimeout       = 1205
	errLockDeadlock          = 1213
	errWarnDataOutOfRange    = 1264
	errDataOutOfRange        = 1690
	errCheckConstraintFailed = 3819
)

// mysqlErrorNumber extracts the server error number from err.
func mysqlErrorNumber(err error) (uint16, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number, true
	}
	return 0, false
}

// classify translates contention and invariant failures reported by MySQL
// into the sentinels above. The driver error stays in the chain so callers
// can still tell a deadlock from a lock wait timeout. Errors it does not
// recognise are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	n, ok := mysqlErrorNumber(err)
	if !ok {
		return err
	}
	switch n {
	case errLockDeadlock, errLockWaitTimeout:
		return fmt.Errorf("%w: %w", ErrConcurrencyConflict, err)
	case errCheckConstraintFailed, errWarnDataOutOfRange, errDataOutOfRange:
		return fmt.Errorf("%w: %w", ErrCapacityViolation, err)
	}
	return err
}

// Classify is the exported form of classify for callers that own the
// transaction, such as services committing a multi-row write.
func Classify(err error) error { return classify(err) }
