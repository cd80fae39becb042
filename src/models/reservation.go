package models

import (
	"hms/src/types"
	"time"
)

// Reservation is one reserved unit of a (room type, hostel type) pool over
// a date range. Rows are never hard-deleted; terminal statuses are kept for
// history.
type Reservation struct {
	ID             uint                    `gorm:"primarykey" json:"id"`
	UserID         uint                    `gorm:"index:idx_reservations_user_status" json:"user_id,omitempty"`
	RoomType       types.RoomType          `gorm:"index:idx_reservations_pool_status" json:"room_type,omitempty"`
	HostelType     types.HostelType        `gorm:"index:idx_reservations_pool_status" json:"hostel_type,omitempty"`
	RoomLabel      string                  `json:"room_label,omitempty"`
	CheckIn        time.Time               `json:"check_in,omitempty"`
	CheckOut       time.Time               `json:"check_out,omitempty"`
	DurationMonths uint                    `json:"duration_months,omitempty"`
	Status         types.ReservationStatus `gorm:"default:'pending';index:idx_reservations_user_status;index:idx_reservations_pool_status" json:"status,omitempty"`

	SpecialRequests    string `json:"special_requests,omitempty"`
	AdminNotes         string `json:"admin_notes,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`

	ApprovedBy  *uint      `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CancelledBy *uint      `json:"cancelled_by,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	User *User `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}

// Active reports whether the reservation consumes capacity.
func (r *Reservation) Active() bool {
	return r.Status == types.RESERVATION_PENDING || r.Status == types.RESERVATION_CONFIRMED
}
