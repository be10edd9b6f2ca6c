package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/building-management/internal/model"
)

// RoomManager is the room side of the service layer used by RoomHandler.
type RoomManager interface {
	CreateRoom(ctx context.Context, name string, maxPeopleCount int, imageRef string) (*model.Room, error)
	GetRoom(ctx context.Context, id uint64) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	DeleteRoom(ctx context.Context, id uint64) error
	SetImage(ctx context.Context, id uint64, imageRef string) (*model.Room, error)
	AttachProjector(ctx context.Context, roomID uint64, producer, serialNumber string) (*model.Projector, error)
	GetProjector(ctx context.Context, roomID uint64) (*model.Projector, error)
	DetachProjector(ctx context.Context, roomID uint64) error
}

// RoomHandler serves /v1/rooms and the projector sub-resource.
type RoomHandler struct {
	Rooms   RoomManager
	Timeout time.Duration
}

// NewRoomHandler panics when rooms is nil.
func NewRoomHandler(rooms RoomManager, timeout time.Duration) *RoomHandler {
	if rooms == nil {
		panic("nil room manager passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Timeout: timeout}
}

// Create handles POST /v1/rooms.
func (h *RoomHandler) Create(c echo.Context) error {
	var req createRoomReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	room, err := h.Rooms.CreateRoom(ctx, req.Name, *req.MaxPeopleCount, req.ImageRef)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toRoomResp(room))
}

// List handles GET /v1/rooms.
func (h *RoomHandler) List(c echo.Context) error {
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	rooms, err := h.Rooms.ListRooms(ctx)
	if err != nil {
		return err
	}
	out := make([]roomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": out})
}

// Get handles GET /v1/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	room, err := h.Rooms.GetRoom(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// Delete handles DELETE /v1/rooms/:id.  Reservations and the projector of
// the room go with it.
func (h *RoomHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	if err := h.Rooms.DeleteRoom(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetImage handles PUT /v1/rooms/:id/image.  The body carries a reference
// to an already uploaded photo; an empty reference removes it.
func (h *RoomHandler) SetImage(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req setImageReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	room, err := h.Rooms.SetImage(ctx, id, req.ImageRef)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// AttachProjector handles PUT /v1/rooms/:id/projector.
func (h *RoomHandler) AttachProjector(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req projectorReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	p, err := h.Rooms.AttachProjector(ctx, id, req.Producer, req.SerialNumber)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toProjectorResp(p))
}

// GetProjector handles GET /v1/rooms/:id/projector.
func (h *RoomHandler) GetProjector(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	p, err := h.Rooms.GetProjector(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProjectorResp(p))
}

// DetachProjector handles DELETE /v1/rooms/:id/projector.
func (h *RoomHandler) DetachProjector(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	if err := h.Rooms.DetachProjector(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
