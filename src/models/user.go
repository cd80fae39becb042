package models

import (
	"hms/src/types"
)

type User struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `gorm:"default:'student'" json:"role,omitempty"`

	Reservations []Reservation `gorm:"foreignKey:user_id" json:"reservations,omitempty"`

	types.Timestamps
}
