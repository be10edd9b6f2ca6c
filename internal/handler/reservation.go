package handler

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/building-management/internal/middleware"
	"github.com/iliyamo/building-management/internal/model"
)

// ReservationManager books rooms and reports reserved days.
type ReservationManager interface {
	Book(ctx context.Context, roomID uint64, date time.Time, userID string) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID uint64) error
	Get(ctx context.Context, reservationID uint64) (*model.Reservation, error)
	ListByRoom(ctx context.Context, roomID uint64) ([]*model.Reservation, error)
	ReservedDays(ctx context.Context, roomID uint64, month, year int) (iter.Seq[int], error)
}

// ReservationHandler serves the reservation endpoints.
type ReservationHandler struct {
	Reservations ReservationManager
	Timeout      time.Duration
}

func NewReservationHandler(res ReservationManager, timeout time.Duration) *ReservationHandler {
	if res == nil {
		panic("nil reservation manager passed to NewReservationHandler")
	}
	return &ReservationHandler{Reservations: res, Timeout: timeout}
}

// Book handles POST /v1/rooms/:id/reservations with body {"date": "YYYY-MM-DD"}.
// The reservation is made for the calling user.
func (h *ReservationHandler) Book(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req bookReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	date, err := time.ParseInLocation(model.DateLayout, req.Date, time.UTC)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
	}
	userID := middleware.UserID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	res, err := h.Reservations.Book(ctx, roomID, date, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// ListByRoom handles GET /v1/rooms/:id/reservations.
func (h *ReservationHandler) ListByRoom(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	list, err := h.Reservations.ListByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	out := make([]reservationResp, 0, len(list))
	for _, r := range list {
		out = append(out, toReservationResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// ReservedDays handles GET /v1/rooms/:id/reserved-days?month=&year=.
func (h *ReservationHandler) ReservedDays(c echo.Context) error {
	roomID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req reservedDaysReq
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "month and year must be numbers")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	seq, err := h.Reservations.ReservedDays(ctx, roomID, req.Month, req.Year)
	if err != nil {
		return err
	}
	days := make([]int, 0, 31)
	for d := range seq {
		days = append(days, d)
	}
	return c.JSON(http.StatusOK, reservedDaysResp{RoomID: roomID, Year: req.Year, Month: req.Month, Days: days})
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	res, err := h.Reservations.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := opContext(c, h.Timeout)
	defer cancel()

	if err := h.Reservations.Cancel(ctx, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
