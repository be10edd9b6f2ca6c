// Package queue defines message payloads exchanged over the message broker
// and the AMQP plumbing that publishes and consumes them.
package queue

// ExchangeName is the durable topic exchange every domain event goes to.
// The routing key of a message is the event's RoutingKey.
const ExchangeName = "building.events"

// Routing keys.
const (
	KeyOccupancyTransferred = "occupancy.transferred"
	KeyOccupancyAdjusted    = "occupancy.adjusted"
	KeyReservationBooked    = "reservation.booked"
	KeyReservationCancelled = "reservation.cancelled"
	KeyRoomCreated          = "room.created"
	KeyRoomDeleted          = "room.deleted"
)

// Event is implemented by every payload that can be published.
type Event interface {
	RoutingKey() string
}

// OccupancyTransferredEvent is published after people moved between two
// rooms.  The counts are the committed values after the move.
type OccupancyTransferredEvent struct {
	SourceRoomID           uint64 `json:"source_room_id"`
	DestinationRoomID      uint64 `json:"destination_room_id"`
	Count                  int    `json:"count"`
	SourcePeopleCount      uint32 `json:"source_people_count"`
	DestinationPeopleCount uint32 `json:"destination_people_count"`
	OccurredAt             string `json:"occurred_at"`
}

func (OccupancyTransferredEvent) RoutingKey() string { return KeyOccupancyTransferred }

// OccupancyAdjustedEvent is published after people entered (positive
// Delta) or left (negative Delta) a single room.
type OccupancyAdjustedEvent struct {
	RoomID      uint64 `json:"room_id"`
	Delta       int    `json:"delta"`
	PeopleCount uint32 `json:"people_count"`
	OccurredAt  string `json:"occurred_at"`
}

func (OccupancyAdjustedEvent) RoutingKey() string { return KeyOccupancyAdjusted }

// ReservationEvent describes a booking or a cancellation.
type ReservationEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	RoomID        uint64 `json:"room_id"`
	Date          string `json:"date"`
	UserID        string `json:"user_id"`
	OccurredAt    string `json:"occurred_at"`
	Cancelled     bool   `json:"cancelled"`
}

func (e ReservationEvent) RoutingKey() string {
	if e.Cancelled {
		return KeyReservationCancelled
	}
	return KeyReservationBooked
}

// RoomEvent describes a room being created or deleted.
type RoomEvent struct {
	RoomID         uint64 `json:"room_id"`
	Name           string `json:"name,omitempty"`
	MaxPeopleCount uint32 `json:"max_people_count,omitempty"`
	OccurredAt     string `json:"occurred_at"`
	Deleted        bool   `json:"deleted"`
}

func (e RoomEvent) RoutingKey() string {
	if e.Deleted {
		return KeyRoomDeleted
	}
	return KeyRoomCreated
}
