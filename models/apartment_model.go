package models

import (
	"time"

	"github.com/google/uuid"
)

type Apartment struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name       string    `gorm:"size:255;not null;unique" json:"name"`
	Address    string    `gorm:"size:255;not null" json:"address"`
	TotalUnits int       `gorm:"not null;default:0" json:"total_units"`

	Tenants []Tenant `gorm:"foreignkey:ApartmentID" json:"tenants,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
