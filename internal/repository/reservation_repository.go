package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/building-management/internal/model"
)

// ReservationRepo provides CRUD operations for room reservations.  The
// (room_id, date) unique index is the only guard against double booking:
// Create is a single INSERT and a duplicate key error is reported as
// ErrAlreadyReserved, so two concurrent bookings of one slot can never
// both succeed.  Dates are stored as DATE columns and exchanged in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, room_id, date, user_id, created_at`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	if err := row.Scan(&res.ID, &res.RoomID, &res.Date, &res.UserID, &res.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	res.Date = model.CalendarDate(res.Date)
	return &res, nil
}

// Create books the room for the given day.  It returns ErrAlreadyReserved
// when the slot is taken and ErrRoomNotFound when the room does not exist.
// The INSERT is the whole operation: the returned reservation is built from
// the inserted values, so once it succeeds the booking is reported as made.
func (r *ReservationRepo) Create(ctx context.Context, roomID uint64, date time.Time, userID string) (*model.Reservation, error) {
	day := model.CalendarDate(date)
	now := time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO reservations (room_id, date, user_id, created_at) VALUES (?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q, roomID, day.Format(model.DateLayout), userID, now)
	if err != nil {
		if n, ok := mysqlErrorNumber(err); ok {
			switch n {
			case errDupEntry:
				return nil, ErrAlreadyReserved
			case errNoReferencedRow:
				return nil, ErrRoomNotFound
			}
		}
		return nil, classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Reservation{ID: uint64(id), RoomID: roomID, Date: day, UserID: userID, CreatedAt: now}, nil
}

// GetByID returns a single reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, id))
}

// ListByRoom returns every reservation of a room ordered by date.
func (r *ReservationRepo) ListByRoom(ctx context.Context, roomID uint64) ([]*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE room_id = ? ORDER BY date`
	rows, err := r.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReservedDays returns the days of the month (1-31) on which the room is
// reserved, ascending.  The query is a range scan over the
// (room_id, date) index between the first day of the month and the first
// day of the next one.  No reservations yields an empty slice.
func (r *ReservationRepo) ReservedDays(ctx context.Context, roomID uint64, year int, month time.Month) ([]int, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	const q = `SELECT DAY(date) FROM reservations
               WHERE room_id = ? AND date >= ? AND date < ?
               ORDER BY date`
	rows, err := r.db.QueryContext(ctx, q, roomID, from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	days := make([]int, 0)
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return days, nil
}

// Delete removes a reservation.  It returns ErrReservationNotFound when
// nothing was deleted, which also covers a concurrent cancellation that
// won the race.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}
