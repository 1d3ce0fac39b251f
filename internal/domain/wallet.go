package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds a contractor's settlement balances. One wallet per contractor,
// created lazily on the first earning event and never deleted, only suspended.
// Version guards optimistic concurrency: every balance update must match the
// version it read and bump it by one.
type Wallet struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ContractorID        uuid.UUID       `gorm:"column:contractor_id;type:uuid;uniqueIndex;not null" json:"contractor_id"`
	AvailableBalance    decimal.Decimal `gorm:"column:available_balance;type:decimal(18,2);not null;default:0" json:"available_balance"`
	PendingBalance      decimal.Decimal `gorm:"column:pending_balance;type:decimal(18,2);not null;default:0" json:"pending_balance"`
	TotalEarned         decimal.Decimal `gorm:"column:total_earned;type:decimal(18,2);not null;default:0" json:"total_earned"`
	TotalCommissionPaid decimal.Decimal `gorm:"column:total_commission_paid;type:decimal(18,2);not null;default:0" json:"total_commission_paid"`
	TotalPenalties      decimal.Decimal `gorm:"column:total_penalties;type:decimal(18,2);not null;default:0" json:"total_penalties"`
	TotalWithdrawn      decimal.Decimal `gorm:"column:total_withdrawn;type:decimal(18,2);not null;default:0" json:"total_withdrawn"`
	IsSuspended         bool            `gorm:"column:is_suspended;not null;default:false" json:"is_suspended"`
	Version             int64           `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt           time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
