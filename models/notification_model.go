package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a log row for each attempted channel send.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Channel   string    `gorm:"size:20;not null" json:"channel"`
	Recipient string    `gorm:"size:255;not null" json:"recipient"`
	Subject   *string   `gorm:"size:255" json:"subject,omitempty"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Status    string    `gorm:"size:20;not null" json:"status"`
	Error     *string   `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
