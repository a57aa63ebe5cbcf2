package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rep is a tenant-scoped sales profile. UserID links the rep to an
// auth-provider identity; a rep without one cannot act as itself through the
// authenticated surface.
type Rep struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  string    `json:"tenant_id" gorm:"type:uuid;index;not null"`
	UserID    *string   `json:"user_id,omitempty" gorm:"type:uuid;index"`
	FullName  string    `json:"full_name" gorm:"type:varchar(120);not null"`
	Role      string    `json:"role" gorm:"type:varchar(20);not null;default:'rep'"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Rep) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
