package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a tenant-scoped door-knock target. Rows are created by import
// (out of band), mutated by claim and disposition actions, and never deleted.
//
// The first_touched_* fields are written exactly once, on the first claim or
// disposition, and never overwritten. touch_count goes up by one on every
// claim or disposition.
type Address struct {
	ID                  string     `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID            string     `json:"tenant_id" gorm:"type:uuid;index;not null"`
	Address             string     `json:"address" gorm:"type:varchar(255)"`
	City                string     `json:"city" gorm:"type:varchar(100)"`
	State               string     `json:"state" gorm:"type:varchar(50)"`
	Zip                 string     `json:"zip" gorm:"type:varchar(20)"`
	Lat                 float64    `json:"lat"`
	Lng                 float64    `json:"lng"`
	Status              string     `json:"status" gorm:"type:varchar(50);index;default:'pending'"`
	Territory           string     `json:"territory" gorm:"type:varchar(100);index"`
	AssignedRepID       *string    `json:"assigned_rep_id" gorm:"type:uuid;index"`
	CreatedSource       string     `json:"created_source" gorm:"type:varchar(50)"`
	FirstTouchedAt      *time.Time `json:"first_touched_at"`
	FirstTouchedByRepID *string    `json:"first_touched_by_rep_id" gorm:"type:uuid"`
	LastTouchedAt       *time.Time `json:"last_touched_at"`
	LastTouchedByRepID  *string    `json:"last_touched_by_rep_id" gorm:"type:uuid"`
	TouchCount          int        `json:"touch_count" gorm:"default:0"`
	LastOutcome         *string    `json:"last_outcome" gorm:"type:varchar(50)"`
	LastNote            *string    `json:"last_note" gorm:"type:text"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
