package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/building-management/internal/model"
	"github.com/iliyamo/building-management/internal/service"
)

// OccupancyManager moves people between rooms.
type OccupancyManager interface {
	Transfer(ctx context.Context, sourceID, destinationID uint64, count int) (service.TransferResult, error)
	Admit(ctx context.Context, roomID uint64, count int) (*model.Room, error)
	Release(ctx context.Context, roomID uint64, count int) (*model.Room, error)
}

// OccupancyHandler serves the transfer, admit and release endpoints.
type OccupancyHandler struct {
	Occupancy OccupancyManager
	Timeout   time.Duration
}

func NewOccupancyHandler(occ OccupancyManager, timeout time.Duration) *OccupancyHandler {
	if occ == nil {
		panic("nil occupancy manager passed to NewOccupancyHandler")
	}
	return &OccupancyHandler{Occupancy: occ, Timeout: timeout}
}

// Transfer handles POST /v1/transfers.  A 422 means one of the rooms would
// leave its bounds and nothing changed; a 503 carries Retry-After and may
// be retried as is.
func (h *OccupancyHandler) Transfer(c echo.Context) error {
	var req transferReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	res, err := h.Occupancy.Transfer(ctx, req.SourceRoomID, req.DestinationRoomID, req.Count)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transferResp{
		Source:      toRoomResp(&res.Source),
		Destination: toRoomResp(&res.Destination),
	})
}

// Admit handles POST /v1/rooms/:id/admit.
func (h *OccupancyHandler) Admit(c echo.Context) error {
	return h.adjust(c, h.Occupancy.Admit)
}

// Release handles POST /v1/rooms/:id/release.
func (h *OccupancyHandler) Release(c echo.Context) error {
	return h.adjust(c, h.Occupancy.Release)
}

func (h *OccupancyHandler) adjust(c echo.Context, op func(context.Context, uint64, int) (*model.Room, error)) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req countReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	room, err := op(ctx, id, req.Count)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}
