package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	QuoteStatusApproved = "approved"
	QuoteStatusPending  = "pending"
	QuoteStatusRejected = "rejected"
)

// Quote is the pricing-relevant subset of a solar installation quote. The
// quote lifecycle (submission, review, customer selection) is owned by the
// quoting module; the settlement engine only reads these rows. The
// installation clock starts at created_at once the quote is approved and
// selected by the customer.
type Quote struct {
	ID                       uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ContractorID             uuid.UUID       `gorm:"column:contractor_id;type:uuid;not null;index" json:"contractor_id"`
	BasePrice                decimal.Decimal `gorm:"column:base_price;type:decimal(18,2);not null" json:"base_price"`
	PricePerKwp              decimal.Decimal `gorm:"column:price_per_kwp;type:decimal(18,2);not null;default:0" json:"price_per_kwp"`
	InstallationTimelineDays int             `gorm:"column:installation_timeline_days;not null" json:"installation_timeline_days"`
	AdminStatus              string          `gorm:"column:admin_status;size:20;not null;index" json:"admin_status"`
	IsSelected               bool            `gorm:"column:is_selected;not null;default:false" json:"is_selected"`
	CreatedAt                time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt                time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Quote) TableName() string {
	return "quotes"
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
