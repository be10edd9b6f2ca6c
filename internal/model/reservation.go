package model

import "time"

// Reservation records that a room is booked for a whole calendar day.
// Only one reservation may exist for a given room and date; the
// `unique_room_reservation` index on (room_id, date) enforces this.
// Reservations are never updated: they are created by a booking and
// removed by a cancellation or when their room is deleted.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room being reserved.
//  Date      – reserved calendar day (midnight UTC).
//  UserID    – opaque identifier of the external user who booked.
//  CreatedAt – creation timestamp.
type Reservation struct {
    ID        uint64    // reservations.id
    RoomID    uint64    // reservations.room_id
    Date      time.Time // reservations.date
    UserID    string    // reservations.user_id
    CreatedAt time.Time // reservations.created_at
}

// DateLayout is the wire and storage format of a reservation date.
const DateLayout = "2006-01-02"

// CalendarDate strips the clock from t and returns midnight UTC of the
// same calendar day as seen in t's own location.
func CalendarDate(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
