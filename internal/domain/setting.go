package domain

import (
	"time"
)

// Business-rule keys read by the settlement engine. The table is owned by the
// admin module; the engine only reads it, once per operation.
const (
	SettingMarkupPercent     = "markup_percent"
	SettingCommissionPercent = "commission_percent"
	SettingMinWithdrawal     = "min_withdrawal_amount"
)

// BusinessSetting is an admin-configurable key/value row.
type BusinessSetting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:key;uniqueIndex;size:100;not null" json:"key"`
	Value     string    `gorm:"column:value;size:255;not null" json:"value"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (BusinessSetting) TableName() string {
	return "business_settings"
}
