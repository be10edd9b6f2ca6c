package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/building-management/internal/model"
)

// RoomRepo provides methods to create, read, lock and update rooms.  It is
// the storage boundary of the capacity invariant: every occupancy write
// goes through CommitOccupancyTx, which re-checks the new value against the
// room's capacity inside the UPDATE itself.
type RoomRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// DB exposes the handle so that services can open transactions spanning
// several repository calls.
func (r *RoomRepo) DB() *sql.DB { return r.db }

const roomColumns = `id, name, people_count, max_people_count, image_ref, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*model.Room, error) {
	var (
		rm       model.Room
		imageRef sql.NullString
	)
	if err := row.Scan(&rm.ID, &rm.Name, &rm.PeopleCount, &rm.MaxPeopleCount, &imageRef, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if imageRef.Valid {
		ref := imageRef.String
		rm.ImageRef = &ref
	}
	return &rm, nil
}

// Create inserts a new empty room.  The returned room is built from the
// inserted values and the generated ID.
func (r *RoomRepo) Create(ctx context.Context, name string, maxPeopleCount uint32, imageRef *string) (*model.Room, error) {
	now := time.Now().UTC().Truncate(time.Second)
	const qInsert = `INSERT INTO rooms (name, people_count, max_people_count, image_ref, created_at, updated_at) VALUES (?, 0, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, name, maxPeopleCount, imageRef, now, now)
	if err != nil {
		return nil, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Room{
		ID:             uint64(id),
		Name:           name,
		MaxPeopleCount: maxPeopleCount,
		ImageRef:       imageRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// GetByID retrieves a room without locking it.  It returns ErrRoomNotFound
// when no row is found.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`
	return scanRoom(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx reads a room and takes an exclusive lock on its row that
// is held until tx commits or rolls back.  Callers locking more than one
// room must do so in ascending ID order.
func (r *RoomRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ? FOR UPDATE`
	rm, err := scanRoom(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, classify(err)
	}
	return rm, nil
}

// CommitOccupancyTx writes a new head count for a room inside tx.  The
// count is validated here regardless of what the caller computed: a
// negative value is refused before reaching the database and the UPDATE
// only matches while the value fits the stored capacity.  When it does not
// match, ErrCapacityViolation is returned and the caller must roll back.
func (r *RoomRepo) CommitOccupancyTx(ctx context.Context, tx *sql.Tx, id uint64, newCount int64) error {
	if newCount < 0 || newCount > model.MaxCapacityLimit {
		return fmt.Errorf("%w: room %d cannot hold %d people", ErrCapacityViolation, id, newCount)
	}
	const q = `UPDATE rooms SET people_count = ? WHERE id = ? AND ? <= max_people_count`
	res, err := tx.ExecContext(ctx, q, newCount, id, newCount)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: room %d cannot hold %d people", ErrCapacityViolation, id, newCount)
	}
	return nil
}

// List returns all rooms ordered by ID.
func (r *RoomRepo) List(ctx context.Context) ([]*model.Room, error) {
	const q = `SELECT ` + roomColumns + ` FROM rooms ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SetImageRef replaces the stored image reference; nil clears it.
func (r *RoomRepo) SetImageRef(ctx context.Context, id uint64, imageRef *string) error {
	const q = `UPDATE rooms SET image_ref = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, imageRef, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// Delete removes a room.  Its reservations and projector are removed by
// the ON DELETE CASCADE foreign keys in the same statement.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}
