package sla

import (
	"context"
	"errors"
	"fmt"
	"time"

	penaltysvc "sunvolt-backend/internal/application/penalty"
	"sunvolt-backend/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	scanLockKey = "sla:scan:lock"
	scanLockTTL = 5 * time.Minute
)

// Report summarizes one scan pass.
type Report struct {
	Skipped           bool `json:"skipped"`
	QuotesScanned     int  `json:"quotes_scanned"`
	ViolationsCreated int  `json:"violations_created"`
	PenaltiesApplied  int  `json:"penalties_applied"`
	PenaltiesQueued   int  `json:"penalties_queued"`
}

// Detector scans approved, customer-selected quotes for installation
// timeline breaches. It carries no timing logic of its own; an external
// scheduler calls Scan with the current time, which keeps the boundary
// behavior testable with a fixed clock.
type Detector struct {
	DB        *gorm.DB
	Penalties *penaltysvc.Service
	// Rdb guards against overlapping scans across processes. Optional: with
	// a nil client the scan runs unguarded (single-node deployments, tests).
	Rdb *redis.Client
}

// Scan flags overdue quotes and feeds new violations through the penalty
// pipeline. Re-running is safe: a quote with an unresolved violation is not
// flagged again.
func (d *Detector) Scan(ctx context.Context, now time.Time) (*Report, error) {
	report := &Report{}

	if d.Rdb != nil {
		ok, err := d.Rdb.SetNX(ctx, scanLockKey, now.UTC().Format(time.RFC3339), scanLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire scan lock: %w", err)
		}
		if !ok {
			log.Info().Msg("sla scan already in progress, skipping")
			report.Skipped = true
			return report, nil
		}
		defer d.Rdb.Del(ctx, scanLockKey)
	}

	var quotes []domain.Quote
	if err := d.DB.WithContext(ctx).
		Where("admin_status = ? AND is_selected = ?", domain.QuoteStatusApproved, true).
		Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("load active quotes: %w", err)
	}
	report.QuotesScanned = len(quotes)

	for i := range quotes {
		if err := d.scanQuote(ctx, &quotes[i], now, report); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("quotes_scanned", report.QuotesScanned).
		Int("violations_created", report.ViolationsCreated).
		Int("penalties_applied", report.PenaltiesApplied).
		Int("penalties_queued", report.PenaltiesQueued).
		Msg("sla scan finished")
	return report, nil
}

func (d *Detector) scanQuote(ctx context.Context, quote *domain.Quote, now time.Time, report *Report) error {
	days := DaysOverdue(quote, now)
	if days <= 0 {
		return nil
	}

	var existing domain.SLAViolation
	err := d.DB.WithContext(ctx).
		Where("quote_id = ? AND resolved_at IS NULL", quote.ID).
		First(&existing).Error
	if err == nil {
		return nil // already flagged, unresolved
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("violation lookup: %w", err)
	}

	violation := &domain.SLAViolation{
		QuoteID:       quote.ID,
		ContractorID:  quote.ContractorID,
		ViolationType: domain.ViolationLateInstallation,
		DaysOverdue:   days,
		AutoDetected:  true,
	}
	if err := d.DB.WithContext(ctx).Create(violation).Error; err != nil {
		return fmt.Errorf("create violation: %w", err)
	}
	report.ViolationsCreated++
	log.Info().
		Str("quote_id", quote.ID.String()).
		Int("days_overdue", days).
		Msg("sla violation detected")

	rule, err := d.Penalties.DetectAndRank(ctx, violation.ViolationType)
	if err != nil {
		return err
	}
	if rule == nil {
		return nil // violation recorded, no active rule to enforce
	}

	amount := penaltysvc.ComputeAmount(rule, quote.BasePrice, days)
	if !amount.IsPositive() {
		return nil
	}
	instance, err := d.Penalties.Apply(ctx, quote.ContractorID, quote.ID, rule, amount, domain.PenaltyEvidence{
		ViolationType: violation.ViolationType,
		DaysOverdue:   days,
		DetectedAt:    now.UTC(),
	})
	if err != nil {
		return err
	}

	applied := instance.Status == domain.PenaltyStatusApplied
	updates := map[string]interface{}{
		"penalty_applied":     applied,
		"penalty_instance_id": instance.ID,
	}
	if err := d.DB.WithContext(ctx).Model(violation).Updates(updates).Error; err != nil {
		return fmt.Errorf("link violation to penalty: %w", err)
	}
	if applied {
		report.PenaltiesApplied++
	} else {
		report.PenaltiesQueued++
	}
	return nil
}

// DaysOverdue counts whole days past the quote's installation deadline
// (created_at + timeline). A quote due exactly today is not overdue.
func DaysOverdue(quote *domain.Quote, now time.Time) int {
	deadline := quote.CreatedAt.AddDate(0, 0, quote.InstallationTimelineDays)
	if !now.After(deadline) {
		return 0
	}
	return int(now.Sub(deadline).Hours() / 24)
}
