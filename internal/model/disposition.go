package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Door-knock outcomes accepted by the disposition endpoint.
const (
	OutcomeSold          = "sold"
	OutcomeNotHome       = "not_home"
	OutcomeNotInterested = "not_interested"
	OutcomeGoBack        = "go_back"
)

// ValidOutcome reports whether the outcome is one of the fixed enum values.
func ValidOutcome(outcome string) bool {
	switch outcome {
	case OutcomeSold, OutcomeNotHome, OutcomeNotInterested, OutcomeGoBack:
		return true
	}
	return false
}

// Disposition is an immutable append-only door-knock event. Territory is a
// denormalized copy of the address's territory at insert time so metrics can
// filter without joining back to addresses.
type Disposition struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    string    `json:"tenant_id" gorm:"type:uuid;index;not null"`
	AddressID   string    `json:"address_id" gorm:"type:uuid;index;not null"`
	RepID       string    `json:"rep_id" gorm:"type:uuid;index;not null"`
	Outcome     string    `json:"outcome" gorm:"type:varchar(50);not null"`
	Note        *string   `json:"note" gorm:"type:text"`
	SoldPackage *string   `json:"sold_package" gorm:"type:varchar(100)"` // only set when outcome = sold
	Territory   string    `json:"territory" gorm:"type:varchar(100);index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (d *Disposition) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
