package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/building-management/internal/model"
)

// ProjectorRepo stores the projector installed in a room.  The unique key
// on room_id keeps it to one per room.
type ProjectorRepo struct{ db *sql.DB }

func NewProjectorRepo(db *sql.DB) *ProjectorRepo { return &ProjectorRepo{db: db} }

// Create attaches a projector to a room.  A second projector for the same
// room yields ErrConflict; an unknown room yields ErrRoomNotFound.
func (r *ProjectorRepo) Create(ctx context.Context, roomID uint64, producer, serial string) (*model.Projector, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO projectors (room_id, producer, serial_number, created_at) VALUES (?,?,?,?)",
		roomID, producer, serial, now)
	if err != nil {
		if n, ok := mysqlErrorNumber(err); ok {
			switch n {
			case errDupEntry:
				return nil, ErrConflict
			case errNoReferencedRow:
				return nil, ErrRoomNotFound
			}
		}
		return nil, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Projector{ID: uint64(id), RoomID: roomID, Producer: producer, SerialNumber: serial, CreatedAt: now}, nil
}

// GetByRoom fetches the projector of a room.
func (r *ProjectorRepo) GetByRoom(ctx context.Context, roomID uint64) (*model.Projector, error) {
	var p model.Projector
	err := r.db.QueryRowContext(ctx,
		"SELECT id,room_id,producer,serial_number,created_at FROM projectors WHERE room_id=? LIMIT 1",
		roomID).Scan(&p.ID, &p.RoomID, &p.Producer, &p.SerialNumber, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectorNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DeleteByRoom detaches the projector of a room.
func (r *ProjectorRepo) DeleteByRoom(ctx context.Context, roomID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM projectors WHERE room_id=?", roomID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProjectorNotFound
	}
	return nil
}
