package model

import "time"

// Projector is equipment installed in a room.  A room has at most one
// projector and the projector row disappears together with its room.
type Projector struct {
    ID           uint64    // projectors.id
    RoomID       uint64    // projectors.room_id (unique)
    Producer     string    // projectors.producer
    SerialNumber string    // projectors.serial_number
    CreatedAt    time.Time // projectors.created_at
}
