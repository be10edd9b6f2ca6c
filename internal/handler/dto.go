package handler

import (
	"time"

	"github.com/iliyamo/building-management/internal/model"
)

// ----- requests -----

type createRoomReq struct {
	Name           string `json:"name" validate:"required,max=100"`
	MaxPeopleCount *int   `json:"max_people_count" validate:"required,gte=0,lte=65535"`
	ImageRef       string `json:"image_ref" validate:"max=255"`
}

type setImageReq struct {
	ImageRef string `json:"image_ref" validate:"max=255"`
}

type projectorReq struct {
	Producer     string `json:"producer" validate:"required,max=100"`
	SerialNumber string `json:"serial_number" validate:"required,max=100"`
}

type transferReq struct {
	SourceRoomID      uint64 `json:"source_room_id" validate:"required"`
	DestinationRoomID uint64 `json:"destination_room_id" validate:"required,nefield=SourceRoomID"`
	Count             int    `json:"count" validate:"required,gte=1"`
}

type countReq struct {
	Count int `json:"count" validate:"required,gte=1"`
}

type bookReq struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

type reservedDaysReq struct {
	Month int `query:"month" validate:"required,min=1,max=12"`
	Year  int `query:"year" validate:"required,min=1,max=9999"`
}

// ----- responses -----

type roomResp struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	PeopleCount    uint32    `json:"people_count"`
	MaxPeopleCount uint32    `json:"max_people_count"`
	FreePlaces     uint32    `json:"free_places"`
	ImageRef       *string   `json:"image_ref"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toRoomResp(r *model.Room) roomResp {
	return roomResp{
		ID:             r.ID,
		Name:           r.Name,
		PeopleCount:    r.PeopleCount,
		MaxPeopleCount: r.MaxPeopleCount,
		FreePlaces:     r.FreePlaces(),
		ImageRef:       r.ImageRef,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type transferResp struct {
	Source      roomResp `json:"source"`
	Destination roomResp `json:"destination"`
}

type projectorResp struct {
	ID           uint64    `json:"id"`
	RoomID       uint64    `json:"room_id"`
	Producer     string    `json:"producer"`
	SerialNumber string    `json:"serial_number"`
	CreatedAt    time.Time `json:"created_at"`
}

func toProjectorResp(p *model.Projector) projectorResp {
	return projectorResp{
		ID:           p.ID,
		RoomID:       p.RoomID,
		Producer:     p.Producer,
		SerialNumber: p.SerialNumber,
		CreatedAt:    p.CreatedAt,
	}
}

type reservationResp struct {
	ID        uint64    `json:"id"`
	RoomID    uint64    `json:"room_id"`
	Date      string    `json:"date"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toReservationResp(r *model.Reservation) reservationResp {
	return reservationResp{
		ID:        r.ID,
		RoomID:    r.RoomID,
		Date:      r.Date.Format(model.DateLayout),
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
	}
}

type reservedDaysResp struct {
	RoomID uint64 `json:"room_id"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Days   []int  `json:"days"`
}
