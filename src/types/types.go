package types

import (
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type RoomType string
type HostelType string
type ReservationStatus string

const (
	ROOM_SINGLE RoomType = "single"
	ROOM_DOUBLE RoomType = "double"
	ROOM_FOURTH RoomType = "fourth"
	ROOM_SIXTH  RoomType = "sixth"

	HOSTEL_BOYS  HostelType = "boys"
	HOSTEL_GIRLS HostelType = "girls"

	RESERVATION_PENDING   ReservationStatus = "pending"
	RESERVATION_CONFIRMED ReservationStatus = "confirmed"
	RESERVATION_CANCELLED ReservationStatus = "cancelled"
	RESERVATION_COMPLETED ReservationStatus = "completed"
)

func (r RoomType) Valid() bool {
	switch r {
	case ROOM_SINGLE, ROOM_DOUBLE, ROOM_FOURTH, ROOM_SIXTH:
		return true
	}
	return false
}

func (h HostelType) Valid() bool {
	return h == HOSTEL_BOYS || h == HOSTEL_GIRLS
}

func (s ReservationStatus) Valid() bool {
	switch s {
	case RESERVATION_PENDING, RESERVATION_CONFIRMED, RESERVATION_CANCELLED, RESERVATION_COMPLETED:
		return true
	}
	return false
}

// ActiveStatuses are the statuses that consume capacity and count against
// the one-reservation-per-user rule.
func ActiveStatuses() []any {
	return []any{RESERVATION_PENDING, RESERVATION_CONFIRMED}
}

type AvailabilityQuery struct {
	RoomType   string `form:"room_type" binding:"required"`
	HostelType string `form:"hostel_type" binding:"required"`
	CheckIn    string `form:"check_in" binding:"required,bookabledate"`
	CheckOut   string `form:"check_out" binding:"required,bookabledate,gtdate=CheckIn"`
}

type AvailabilityStats struct {
	Available     bool `json:"available"`
	FreeUnits     uint `json:"free_units"`
	TotalCapacity uint `json:"total_capacity"`
	OccupiedUnits uint `json:"occupied_units"`
}

type CreateReservationRequestBody struct {
	RoomType        string `json:"room_type" binding:"required"`
	HostelType      string `json:"hostel_type" binding:"required"`
	CheckIn         string `json:"check_in" binding:"required,bookabledate"`
	CheckOut        string `json:"check_out" binding:"required,bookabledate,gtdate=CheckIn"`
	DurationMonths  uint   `json:"duration_months" binding:"required"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

type CancelReservationRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type UpdateReservationStatusRequestBody struct {
	NewStatus string `json:"new_status" binding:"required"`
	Notes     string `json:"notes,omitempty"`
}

type ListReservationsQuery struct {
	Status     string `form:"status"`
	RoomType   string `form:"room_type"`
	HostelType string `form:"hostel_type"`
	Page       int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit      int    `form:"limit,default=10" binding:"omitempty,min=1,max=100"`
}

// ReservationFilter narrows a ledger listing. Zero-valued fields are not
// applied.
type ReservationFilter struct {
	UserID     uint
	Status     ReservationStatus
	RoomType   RoomType
	HostelType HostelType
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}
