package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents a customer company stored in the database.
// This is the core of the multi-tenant architecture: every rep, address and
// disposition belongs to exactly one tenant, and every query is scoped by it.
type Tenant struct {
	ID                 string    `json:"id" gorm:"type:uuid;primaryKey"`
	Slug               string    `json:"slug" gorm:"type:varchar(63);uniqueIndex;not null"`
	Name               string    `json:"name" gorm:"type:varchar(100);not null"`
	LogoURL            string    `json:"logo_url" gorm:"type:text"`
	PrimaryColor       string    `json:"primary_color" gorm:"type:varchar(20)"`
	Config             string    `json:"config" gorm:"type:jsonb"` // support phones, sellable packages
	SubscriptionStatus string    `json:"subscription_status" gorm:"type:varchar(20);default:'active'"`
	Seats              int       `json:"seats" gorm:"default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// SubscriptionStatusCanceled blocks every endpoint with 402 when set.
const SubscriptionStatusCanceled = "canceled"

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
