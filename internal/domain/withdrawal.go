package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalStatus tracks the two-phase payout state machine:
// requested → reserved → completed | rejected.
type WithdrawalStatus string

const (
	WithdrawalStatusRequested WithdrawalStatus = "requested"
	WithdrawalStatusReserved  WithdrawalStatus = "reserved"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// WithdrawalRequest reserves funds for an admin-approved payout. Approval or
// rejection happens outside the engine; Finalize applies the outcome.
type WithdrawalRequest struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ContractorID uuid.UUID        `gorm:"column:contractor_id;type:uuid;not null;index" json:"contractor_id"`
	Amount       decimal.Decimal  `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Status       WithdrawalStatus `gorm:"column:status;size:10;not null;index" json:"status"`
	FinalizedAt  *time.Time       `gorm:"column:finalized_at" json:"finalized_at"`
	CreatedAt    time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

func (w *WithdrawalRequest) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
