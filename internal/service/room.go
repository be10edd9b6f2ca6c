package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/building-management/internal/model"
	"github.com/iliyamo/building-management/internal/queue"
	"github.com/iliyamo/building-management/internal/repository"
)

const (
	maxRoomNameLen = 100
	maxImageRefLen = 255
	maxProducerLen = 100
	maxSerialLen   = 100
)

// RoomService manages rooms and their projectors.  Occupancy is not
// changed here; see OccupancyService.
type RoomService struct {
	rooms      *repository.RoomRepo
	projectors *repository.ProjectorRepo
	cache      CalendarCache
	events     EventPublisher
}

// NewRoomService wires the service.  cache and events may be nil.
func NewRoomService(rooms *repository.RoomRepo, projectors *repository.ProjectorRepo, cache CalendarCache, events EventPublisher) *RoomService {
	if cache == nil {
		cache = noCache{}
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &RoomService{rooms: rooms, projectors: projectors, cache: cache, events: events}
}

// CreateRoom adds an empty room that can hold up to maxPeopleCount people.
// imageRef is optional; an empty string means no image.
func (s *RoomService) CreateRoom(ctx context.Context, name string, maxPeopleCount int, imageRef string) (room *model.Room, err error) {
	ctx, span := tracer.Start(ctx, "RoomService.CreateRoom", trace.WithAttributes(
		attribute.Int("room.max_people_count", maxPeopleCount),
	))
	defer func() { endSpan(span, err) }()

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, invalidArg("name is required")
	case utf8.RuneCountInString(name) > maxRoomNameLen:
		return nil, invalidArg("name must be at most %d characters", maxRoomNameLen)
	case maxPeopleCount < 0 || maxPeopleCount > model.MaxCapacityLimit:
		return nil, invalidArg("max people count must be between 0 and %d, got %d", model.MaxCapacityLimit, maxPeopleCount)
	}
	ref, err := optionalRef(imageRef)
	if err != nil {
		return nil, err
	}

	room, err = s.rooms.Create(ctx, name, uint32(maxPeopleCount), ref)
	if err != nil {
		return nil, err
	}
	pctx, cancel := afterCommit(ctx)
	defer cancel()
	_ = s.events.Publish(pctx, queue.RoomEvent{
		RoomID:         room.ID,
		Name:           room.Name,
		MaxPeopleCount: room.MaxPeopleCount,
		OccurredAt:     timestamp(),
	})
	return room, nil
}

// GetRoom returns a room with its current occupancy.
func (s *RoomService) GetRoom(ctx context.Context, id uint64) (*model.Room, error) {
	if id == 0 {
		return nil, invalidArg("room id is required")
	}
	return s.rooms.GetByID(ctx, id)
}

// ListRooms returns all rooms ordered by ID.
func (s *RoomService) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.rooms.List(ctx)
}

// DeleteRoom removes a room together with its reservations and projector
// and drops its cached calendars.
func (s *RoomService) DeleteRoom(ctx context.Context, id uint64) (err error) {
	ctx, span := tracer.Start(ctx, "RoomService.DeleteRoom", trace.WithAttributes(
		attribute.Int64("room.id", int64(id)),
	))
	defer func() { endSpan(span, err) }()

	if id == 0 {
		return invalidArg("room id is required")
	}
	if err := s.rooms.Delete(ctx, id); err != nil {
		return err
	}
	pctx, cancel := afterCommit(ctx)
	defer cancel()
	_ = s.cache.InvalidateRoom(pctx, id)
	_ = s.events.Publish(pctx, queue.RoomEvent{RoomID: id, OccurredAt: timestamp(), Deleted: true})
	return nil
}

// SetImage stores an opaque reference to the room's photo.  The photo
// itself lives in external storage.  An empty ref clears it.
func (s *RoomService) SetImage(ctx context.Context, id uint64, imageRef string) (*model.Room, error) {
	if id == 0 {
		return nil, invalidArg("room id is required")
	}
	ref, err := optionalRef(imageRef)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.SetImageRef(ctx, id, ref); err != nil {
		return nil, err
	}
	return s.rooms.GetByID(ctx, id)
}

// AttachProjector installs a projector in a room.  A room holds at most one
// projector; a second attach fails with repository.ErrConflict.
func (s *RoomService) AttachProjector(ctx context.Context, roomID uint64, producer, serialNumber string) (*model.Projector, error) {
	producer = strings.TrimSpace(producer)
	serialNumber = strings.TrimSpace(serialNumber)
	switch {
	case roomID == 0:
		return nil, invalidArg("room id is required")
	case producer == "" || utf8.RuneCountInString(producer) > maxProducerLen:
		return nil, invalidArg("producer must be 1 to %d characters", maxProducerLen)
	case serialNumber == "" || utf8.RuneCountInString(serialNumber) > maxSerialLen:
		return nil, invalidArg("serial number must be 1 to %d characters", maxSerialLen)
	}
	return s.projectors.Create(ctx, roomID, producer, serialNumber)
}

// GetProjector returns the projector installed in a room.
func (s *RoomService) GetProjector(ctx context.Context, roomID uint64) (*model.Projector, error) {
	if roomID == 0 {
		return nil, invalidArg("room id is required")
	}
	return s.projectors.GetByRoom(ctx, roomID)
}

// DetachProjector removes the projector from a room.
func (s *RoomService) DetachProjector(ctx context.Context, roomID uint64) error {
	if roomID == 0 {
		return invalidArg("room id is required")
	}
	return s.projectors.DeleteByRoom(ctx, roomID)
}

func optionalRef(ref string) (*string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	if len(ref) > maxImageRefLen {
		return nil, invalidArg("image reference must be at most %d bytes", maxImageRefLen)
	}
	return &ref, nil
}
