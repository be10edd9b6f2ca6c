package service

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/building-management/internal/model"
	"github.com/iliyamo/building-management/internal/queue"
	"github.com/iliyamo/building-management/internal/repository"
)

// OccupancyService moves people between rooms and in or out of a single
// room.  Every change runs in one transaction that locks the affected room
// rows first, so concurrent callers serialise per room and never observe a
// half-applied transfer.
type OccupancyService struct {
	rooms  *repository.RoomRepo
	events EventPublisher
}

// NewOccupancyService wires the service to the room store.  events may be
// nil, in which case nothing is published.
func NewOccupancyService(rooms *repository.RoomRepo, events EventPublisher) *OccupancyService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &OccupancyService{rooms: rooms, events: events}
}

// TransferResult holds both rooms as committed by a transfer.
type TransferResult struct {
	Source      model.Room
	Destination model.Room
}

// Transfer moves count people from sourceID to destinationID.  Both rows
// are locked in ascending ID order regardless of the direction of the
// transfer, which rules out lock-order deadlocks between concurrent
// transfers over overlapping rooms.  On any failure neither room changes.
func (s *OccupancyService) Transfer(ctx context.Context, sourceID, destinationID uint64, count int) (res TransferResult, err error) {
	ctx, span := tracer.Start(ctx, "OccupancyService.Transfer", trace.WithAttributes(
		attribute.Int64("room.source_id", int64(sourceID)),
		attribute.Int64("room.destination_id", int64(destinationID)),
		attribute.Int("count", count),
	))
	defer func() { endSpan(span, err) }()

	switch {
	case count < 1:
		return res, invalidArg("count must be at least 1, got %d", count)
	case sourceID == 0 || destinationID == 0:
		return res, invalidArg("source and destination room ids are required")
	case sourceID == destinationID:
		return res, invalidArg("cannot transfer room %d to itself", sourceID)
	}

	err = inTx(ctx, s.rooms.DB(), func(tx *sql.Tx) error {
		locked, err := s.lockRooms(ctx, tx, sourceID, destinationID)
		if err != nil {
			return err
		}
		src, dst := locked[sourceID], locked[destinationID]

		newSrc := int64(src.PeopleCount) - int64(count)
		newDst := int64(dst.PeopleCount) + int64(count)
		if !src.CanHold(newSrc) {
			return fmt.Errorf("%w: room %d has %d people, cannot send %d",
				repository.ErrCapacityViolation, src.ID, src.PeopleCount, count)
		}
		if !dst.CanHold(newDst) {
			return fmt.Errorf("%w: room %d holds %d of %d people, cannot receive %d",
				repository.ErrCapacityViolation, dst.ID, dst.PeopleCount, dst.MaxPeopleCount, count)
		}

		updates := map[uint64]int64{sourceID: newSrc, destinationID: newDst}
		for _, id := range sortedIDs(sourceID, destinationID) {
			if err := s.rooms.CommitOccupancyTx(ctx, tx, id, updates[id]); err != nil {
				return err
			}
		}
		src.PeopleCount = uint32(newSrc)
		dst.PeopleCount = uint32(newDst)
		res = TransferResult{Source: *src, Destination: *dst}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	pctx, cancel := afterCommit(ctx)
	defer cancel()
	_ = s.events.Publish(pctx, queue.OccupancyTransferredEvent{
		SourceRoomID:           res.Source.ID,
		DestinationRoomID:      res.Destination.ID,
		Count:                  count,
		SourcePeopleCount:      res.Source.PeopleCount,
		DestinationPeopleCount: res.Destination.PeopleCount,
		OccurredAt:             timestamp(),
	})
	return res, nil
}

// Admit records count people entering the room from outside the building.
func (s *OccupancyService) Admit(ctx context.Context, roomID uint64, count int) (*model.Room, error) {
	if count < 1 {
		return nil, invalidArg("count must be at least 1, got %d", count)
	}
	return s.adjust(ctx, "OccupancyService.Admit", roomID, count)
}

// Release records count people leaving the room for outside the building.
func (s *OccupancyService) Release(ctx context.Context, roomID uint64, count int) (*model.Room, error) {
	if count < 1 {
		return nil, invalidArg("count must be at least 1, got %d", count)
	}
	return s.adjust(ctx, "OccupancyService.Release", roomID, -count)
}

func (s *OccupancyService) adjust(ctx context.Context, spanName string, roomID uint64, delta int) (room *model.Room, err error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.Int64("room.id", int64(roomID)),
		attribute.Int("delta", delta),
	))
	defer func() { endSpan(span, err) }()

	if roomID == 0 {
		return nil, invalidArg("room id is required")
	}

	err = inTx(ctx, s.rooms.DB(), func(tx *sql.Tx) error {
		rm, err := s.rooms.GetForUpdateTx(ctx, tx, roomID)
		if err != nil {
			return err
		}
		next := int64(rm.PeopleCount) + int64(delta)
		if !rm.CanHold(next) {
			return fmt.Errorf("%w: room %d holds %d of %d people, cannot apply %+d",
				repository.ErrCapacityViolation, rm.ID, rm.PeopleCount, rm.MaxPeopleCount, delta)
		}
		if err := s.rooms.CommitOccupancyTx(ctx, tx, roomID, next); err != nil {
			return err
		}
		rm.PeopleCount = uint32(next)
		room = rm
		return nil
	})
	if err != nil {
		return nil, err
	}

	pctx, cancel := afterCommit(ctx)
	defer cancel()
	_ = s.events.Publish(pctx, queue.OccupancyAdjustedEvent{
		RoomID:      room.ID,
		Delta:       delta,
		PeopleCount: room.PeopleCount,
		OccurredAt:  timestamp(),
	})
	return room, nil
}

// lockRooms takes FOR UPDATE locks on the given rooms in ascending ID order.
func (s *OccupancyService) lockRooms(ctx context.Context, tx *sql.Tx, ids ...uint64) (map[uint64]*model.Room, error) {
	locked := make(map[uint64]*model.Room, len(ids))
	for _, id := range sortedIDs(ids...) {
		rm, err := s.rooms.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = rm
	}
	return locked, nil
}

func sortedIDs(ids ...uint64) []uint64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
