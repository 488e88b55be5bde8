package models

import (
	"time"

	"github.com/google/uuid"
)

type LeaseDocument struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null" json:"tenant_id"`
	Kind     string    `gorm:"size:20;not null;default:'lease'" json:"kind"`
	FileName string    `gorm:"size:255;not null" json:"file_name"`
	FileURL  string    `gorm:"size:512;not null" json:"file_url"`

	UploadedBy uuid.UUID `gorm:"type:uuid;not null" json:"uploaded_by"`

	Tenant Tenant `gorm:"foreignkey:TenantID" json:"tenant,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
