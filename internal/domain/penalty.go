package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AmountCalculation selects how a penalty amount is derived from a rule.
type AmountCalculation string

const (
	CalculationFixed      AmountCalculation = "fixed"
	CalculationPercentage AmountCalculation = "percentage"
	CalculationDaily      AmountCalculation = "daily"
)

// PenaltyRule is administrator configuration, not a per-incident record.
// Rules referenced by an instance are never hard-deleted, only deactivated.
type PenaltyRule struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PenaltyType       string            `gorm:"column:penalty_type;size:50;not null;index" json:"penalty_type"`
	AmountCalculation AmountCalculation `gorm:"column:amount_calculation;size:20;not null" json:"amount_calculation"`
	AmountValue       decimal.Decimal   `gorm:"column:amount_value;type:decimal(18,2);not null" json:"amount_value"`
	MaximumAmount     *decimal.Decimal  `gorm:"column:maximum_amount;type:decimal(18,2)" json:"maximum_amount"`
	SeverityLevel     int               `gorm:"column:severity_level;not null;default:1" json:"severity_level"`
	GracePeriodDays   int               `gorm:"column:grace_period_days;not null;default:0" json:"grace_period_days"`
	IsActive          bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt         time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (PenaltyRule) TableName() string {
	return "penalty_rules"
}

func (r *PenaltyRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// PenaltyStatus of one applied penalty. Transitions are one-directional:
// pending → applied, applied → disputed, disputed → waived | reversed.
type PenaltyStatus string

const (
	PenaltyStatusPending  PenaltyStatus = "pending"
	PenaltyStatusApplied  PenaltyStatus = "applied"
	PenaltyStatusDisputed PenaltyStatus = "disputed"
	PenaltyStatusWaived   PenaltyStatus = "waived"
	PenaltyStatusReversed PenaltyStatus = "reversed"
)

// PenaltyEvidence is the typed evidence payload stored on an instance.
// Unknown fields are rejected at the boundary rather than passed through.
type PenaltyEvidence struct {
	ViolationType string    `json:"violation_type"`
	DaysOverdue   int       `json:"days_overdue"`
	DetectedAt    time.Time `json:"detected_at"`
	Notes         string    `json:"notes,omitempty"`
}

// DecodePenaltyEvidence validates and decodes a raw evidence document.
func DecodePenaltyEvidence(raw []byte) (PenaltyEvidence, error) {
	var ev PenaltyEvidence
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return PenaltyEvidence{}, err
	}
	return ev, nil
}

// PenaltyInstance is one penalty applied to one contractor for one quote.
// Once applied, a matching debit Transaction exists (TransactionID).
type PenaltyInstance struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ContractorID  uuid.UUID       `gorm:"column:contractor_id;type:uuid;not null;index" json:"contractor_id"`
	QuoteID       uuid.UUID       `gorm:"column:quote_id;type:uuid;not null;uniqueIndex:idx_penalty_once" json:"quote_id"`
	PenaltyRuleID uuid.UUID       `gorm:"column:penalty_rule_id;type:uuid;not null;uniqueIndex:idx_penalty_once" json:"penalty_rule_id"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Status        PenaltyStatus   `gorm:"column:status;size:10;not null;index" json:"status"`
	Evidence      datatypes.JSON  `gorm:"column:evidence;type:jsonb" json:"evidence"`
	TransactionID *uuid.UUID      `gorm:"column:transaction_id;type:uuid" json:"transaction_id"`
	DisputeReason *string         `gorm:"column:dispute_reason;type:text" json:"dispute_reason"`
	DisputedAt    *time.Time      `gorm:"column:disputed_at" json:"disputed_at"`
	ResolvedAt    *time.Time      `gorm:"column:resolved_at" json:"resolved_at"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (PenaltyInstance) TableName() string {
	return "penalty_instances"
}

func (p *PenaltyInstance) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
