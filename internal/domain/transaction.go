package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "credit"
	TransactionTypeDebit  TransactionType = "debit"
)

// TransactionSubtype names the business event behind a ledger entry.
type TransactionSubtype string

const (
	SubtypeQuotePayment TransactionSubtype = "quote_payment"
	SubtypePenalty      TransactionSubtype = "penalty"
	SubtypeWithdrawal   TransactionSubtype = "withdrawal"
	SubtypeReversal     TransactionSubtype = "reversal"
	// SubtypePayout marks a reservation paid out to the contractor. The
	// available balance was already reduced by the withdrawal entry at
	// reservation time, so a payout entry carries balance_before ==
	// balance_after; it exists to make the completed release replayable.
	SubtypePayout TransactionSubtype = "payout"
)

// TransactionStatus of a ledger entry. Only completed entries count toward
// the available balance.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// ReferenceType identifies the record a ledger entry originates from.
type ReferenceType string

const (
	ReferenceQuote      ReferenceType = "quote"
	ReferencePenalty    ReferenceType = "penalty"
	ReferenceWithdrawal ReferenceType = "withdrawal"
)

// Transaction is an immutable ledger entry. The composite unique index over
// (wallet_id, subtype, reference_type, reference_id) is the idempotency key:
// a retried operation finds the existing row instead of re-applying.
type Transaction struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	WalletID      uuid.UUID          `gorm:"column:wallet_id;type:uuid;not null;index;uniqueIndex:idx_tx_idempotency" json:"wallet_id"`
	ContractorID  uuid.UUID          `gorm:"column:contractor_id;type:uuid;not null;index" json:"contractor_id"`
	Type          TransactionType    `gorm:"column:type;size:10;not null" json:"type"`
	Subtype       TransactionSubtype `gorm:"column:subtype;size:20;not null;uniqueIndex:idx_tx_idempotency" json:"subtype"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	BalanceBefore decimal.Decimal    `gorm:"column:balance_before;type:decimal(18,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal    `gorm:"column:balance_after;type:decimal(18,2);not null" json:"balance_after"`
	ReferenceType ReferenceType      `gorm:"column:reference_type;size:20;not null;uniqueIndex:idx_tx_idempotency" json:"reference_type"`
	ReferenceID   uuid.UUID          `gorm:"column:reference_id;type:uuid;not null;uniqueIndex:idx_tx_idempotency" json:"reference_id"`
	Status        TransactionStatus  `gorm:"column:status;size:10;not null" json:"status"`
	CreatedAt     time.Time          `gorm:"column:created_at" json:"created_at"`
}

func (Transaction) TableName() string {
	return "wallet_transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
