package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const ViolationLateInstallation = "late_installation"

// SLAViolation records a detected timeline breach, independent of whether a
// penalty was ultimately collected. An unresolved violation (resolved_at NULL)
// blocks re-flagging the same quote on subsequent scans.
type SLAViolation struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	QuoteID           uuid.UUID  `gorm:"column:quote_id;type:uuid;not null;index" json:"quote_id"`
	ContractorID      uuid.UUID  `gorm:"column:contractor_id;type:uuid;not null;index" json:"contractor_id"`
	ViolationType     string     `gorm:"column:violation_type;size:50;not null" json:"violation_type"`
	DaysOverdue       int        `gorm:"column:days_overdue;not null" json:"days_overdue"`
	AutoDetected      bool       `gorm:"column:auto_detected;not null;default:false" json:"auto_detected"`
	PenaltyApplied    bool       `gorm:"column:penalty_applied;not null;default:false" json:"penalty_applied"`
	PenaltyInstanceID *uuid.UUID `gorm:"column:penalty_instance_id;type:uuid" json:"penalty_instance_id"`
	ResolvedAt        *time.Time `gorm:"column:resolved_at" json:"resolved_at"`
	CreatedAt         time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (SLAViolation) TableName() string {
	return "sla_violations"
}

func (v *SLAViolation) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
