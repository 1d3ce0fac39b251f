package settings

import (
	"context"
	"errors"
	"fmt"

	"sunvolt-backend/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Defaults used when an admin has not configured a key yet.
var (
	DefaultMarkupPercent     = decimal.NewFromInt(10)
	DefaultCommissionPercent = decimal.NewFromInt(15)
	DefaultMinWithdrawal     = decimal.NewFromInt(100)
)

// Service reads admin-owned business settings. The store is treated as
// eventually consistent: every operation re-reads the row it needs rather
// than caching.
type Service struct {
	DB *gorm.DB
}

func (s *Service) MarkupPercent(ctx context.Context) (decimal.Decimal, error) {
	return s.readDecimal(ctx, domain.SettingMarkupPercent, DefaultMarkupPercent)
}

func (s *Service) CommissionPercent(ctx context.Context) (decimal.Decimal, error) {
	return s.readDecimal(ctx, domain.SettingCommissionPercent, DefaultCommissionPercent)
}

func (s *Service) MinWithdrawal(ctx context.Context) (decimal.Decimal, error) {
	return s.readDecimal(ctx, domain.SettingMinWithdrawal, DefaultMinWithdrawal)
}

func (s *Service) readDecimal(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	var setting domain.BusinessSetting
	err := s.DB.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read setting %s: %w", key, err)
	}
	v, err := decimal.NewFromString(setting.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %s holds %q: %w", key, setting.Value, domain.ErrInvalidConfiguration)
	}
	return v, nil
}
