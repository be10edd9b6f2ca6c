package service

import (
	"context"
	"iter"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/building-management/internal/model"
	"github.com/iliyamo/building-management/internal/queue"
	"github.com/iliyamo/building-management/internal/repository"
)

const maxUserIDLen = 64

// ReservationService books rooms for whole days and answers which days of
// a month are taken.  Double booking is prevented by the store: Book is a
// single insert against the (room, date) unique index.
type ReservationService struct {
	rooms        *repository.RoomRepo
	reservations *repository.ReservationRepo
	cache        CalendarCache
	events       EventPublisher
}

// NewReservationService wires the service.  cache and events may be nil.
func NewReservationService(rooms *repository.RoomRepo, reservations *repository.ReservationRepo, cache CalendarCache, events EventPublisher) *ReservationService {
	if cache == nil {
		cache = noCache{}
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &ReservationService{rooms: rooms, reservations: reservations, cache: cache, events: events}
}

// Book reserves the room for the calendar day of date on behalf of userID.
// It returns repository.ErrAlreadyReserved when the day is taken and
// repository.ErrRoomNotFound when the room does not exist.
func (s *ReservationService) Book(ctx context.Context, roomID uint64, date time.Time, userID string) (res *model.Reservation, err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Book", trace.WithAttributes(
		attribute.Int64("room.id", int64(roomID)),
		attribute.String("date", date.Format(model.DateLayout)),
	))
	defer func() { endSpan(span, err) }()

	userID = strings.TrimSpace(userID)
	switch {
	case roomID == 0:
		return nil, invalidArg("room id is required")
	case date.IsZero():
		return nil, invalidArg("date is required")
	case userID == "":
		return nil, invalidArg("user id is required")
	case len(userID) > maxUserIDLen:
		return nil, invalidArg("user id must be at most %d bytes", maxUserIDLen)
	}

	res, err = s.reservations.Create(ctx, roomID, model.CalendarDate(date), userID)
	if err != nil {
		return nil, err
	}
	s.afterChange(ctx, res, false)
	return res, nil
}

// Cancel deletes a reservation, freeing its day.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uint64) (err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.Cancel", trace.WithAttributes(
		attribute.Int64("reservation.id", int64(reservationID)),
	))
	defer func() { endSpan(span, err) }()

	if reservationID == 0 {
		return invalidArg("reservation id is required")
	}
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if err := s.reservations.Delete(ctx, reservationID); err != nil {
		return err
	}
	s.afterChange(ctx, res, true)
	return nil
}

// Get returns a single reservation.
func (s *ReservationService) Get(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	if reservationID == 0 {
		return nil, invalidArg("reservation id is required")
	}
	return s.reservations.GetByID(ctx, reservationID)
}

// ListByRoom returns the reservations of an existing room ordered by date.
func (s *ReservationService) ListByRoom(ctx context.Context, roomID uint64) ([]*model.Reservation, error) {
	if roomID == 0 {
		return nil, invalidArg("room id is required")
	}
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.reservations.ListByRoom(ctx, roomID)
}

// ReservedDays returns the reserved day numbers of the room in the given
// month, ascending.  The sequence is finite and may be ranged over any
// number of times; a month without reservations yields nothing.
func (s *ReservationService) ReservedDays(ctx context.Context, roomID uint64, month, year int) (seq iter.Seq[int], err error) {
	ctx, span := tracer.Start(ctx, "ReservationService.ReservedDays", trace.WithAttributes(
		attribute.Int64("room.id", int64(roomID)),
		attribute.Int("month", month),
		attribute.Int("year", year),
	))
	defer func() { endSpan(span, err) }()

	switch {
	case roomID == 0:
		return nil, invalidArg("room id is required")
	case month < 1 || month > 12:
		return nil, invalidArg("month must be between 1 and 12, got %d", month)
	case year < 1 || year > 9999:
		return nil, invalidArg("year must be between 1 and 9999, got %d", year)
	}
	m := time.Month(month)

	// gen is read before MySQL so that a booking committed during the
	// query makes the fill below a no-op.
	days, gen, ok := s.cache.Get(ctx, roomID, year, m)
	span.SetAttributes(attribute.Bool("cache.hit", ok))
	if ok {
		return slices.Values(days), nil
	}
	if _, err := s.rooms.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	days, err = s.reservations.ReservedDays(ctx, roomID, year, m)
	if err != nil {
		return nil, err
	}
	_, _ = s.cache.Set(ctx, roomID, year, m, gen, days)
	return slices.Values(days), nil
}

func (s *ReservationService) afterChange(ctx context.Context, res *model.Reservation, cancelled bool) {
	pctx, cancel := afterCommit(ctx)
	defer cancel()
	y, m, _ := res.Date.Date()
	_ = s.cache.Invalidate(pctx, res.RoomID, y, m)
	_ = s.events.Publish(pctx, queue.ReservationEvent{
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		Date:          res.Date.Format(model.DateLayout),
		UserID:        res.UserID,
		OccurredAt:    timestamp(),
		Cancelled:     cancelled,
	})
}

type noCache struct{}

func (noCache) Get(context.Context, uint64, int, time.Month) ([]int, uint64, bool) { return nil, 0, false }
func (noCache) Set(context.Context, uint64, int, time.Month, uint64, []int) (bool, error) { return false, nil }
func (noCache) Invalidate(context.Context, uint64, int, time.Month) error { return nil }
func (noCache) InvalidateRoom(context.Context, uint64) error { return nil }
