package models

import (
	"time"

	"github.com/google/uuid"
)

// Courier is a delivery partner orders can be assigned to.
type Courier struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name   string    `gorm:"column:name;not null;uniqueIndex"`
	Phone  string    `gorm:"column:phone"`
	Active bool      `gorm:"column:active;not null;default:true"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
