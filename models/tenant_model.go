package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ApartmentID uuid.UUID  `gorm:"type:uuid;not null" json:"apartment_id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	Email       *string    `gorm:"size:255" json:"email,omitempty"`
	Phone       string     `gorm:"size:20;not null" json:"phone"`
	UnitNumber  string     `gorm:"size:20;not null" json:"unit_number"`
	RentAmount  float64    `gorm:"type:numeric(12,2);not null;default:0" json:"rent_amount"`
	DueDay      int        `gorm:"not null;default:5" json:"due_day"`
	MoveInDate  *time.Time `json:"move_in_date,omitempty"`

	// UserID is set once an admin provisions a portal account for the tenant.
	UserID *uuid.UUID `gorm:"type:uuid;unique" json:"user_id,omitempty"`

	Apartment Apartment `gorm:"foreignkey:ApartmentID" json:"apartment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
