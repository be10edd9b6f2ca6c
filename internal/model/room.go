package model

import "time"

// Room represents a shared physical room with a bounded occupancy.  The
// current head count lives on the room itself and is only ever changed
// through the occupancy operations, which validate it against the
// capacity before committing.  This struct corresponds to a row in the
// `rooms` table.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display label.
//  PeopleCount    – current occupancy.
//  MaxPeopleCount – capacity ceiling; PeopleCount never exceeds it.
//  ImageRef       – opaque reference to an externally stored photo (nil if none).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Room struct {
    ID             uint64    // rooms.id
    Name           string    // rooms.name
    PeopleCount    uint32    // rooms.people_count
    MaxPeopleCount uint32    // rooms.max_people_count
    ImageRef       *string   // rooms.image_ref (nullable)
    CreatedAt      time.Time // rooms.created_at
    UpdatedAt      time.Time // rooms.updated_at
}

// MaxCapacityLimit is the largest capacity a room column can store
// (SMALLINT UNSIGNED).
const MaxCapacityLimit = 65535

// CanHold reports whether n people fit in the room without breaking the
// capacity invariant 0 <= n <= MaxPeopleCount.
func (r Room) CanHold(n int64) bool {
    return n >= 0 && n <= int64(r.MaxPeopleCount)
}

// FreePlaces returns how many more people the room can take.
func (r Room) FreePlaces() uint32 {
    if r.PeopleCount >= r.MaxPeopleCount {
        return 0
    }
    return r.MaxPeopleCount - r.PeopleCount
}
