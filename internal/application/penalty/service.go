package penalty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	walletsvc "sunvolt-backend/internal/application/wallet"
	"sunvolt-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service evaluates penalty rules and applies penalties against contractor
// wallets through the ledger. Suspended wallets still accrue penalty debt as
// pending instances; the debt is tracked, never silently dropped.
type Service struct {
	DB     *gorm.DB
	Wallet *walletsvc.Service
}

// DetectAndRank selects the most severe active rule for a violation type.
// Ties break by severity_level, then amount_value, both descending. Returns
// nil when no active rule matches.
func (s *Service) DetectAndRank(ctx context.Context, violationType string) (*domain.PenaltyRule, error) {
	var rule domain.PenaltyRule
	err := s.DB.WithContext(ctx).
		Where("penalty_type = ? AND is_active = ?", violationType, true).
		Order("severity_level DESC, amount_value DESC").
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rank penalty rules: %w", err)
	}
	return &rule, nil
}

// ComputeAmount derives the penalty amount from a rule. Daily rules accrue
// only past the rule's grace period. The result is clamped to maximum_amount
// when set.
func ComputeAmount(rule *domain.PenaltyRule, basePrice decimal.Decimal, daysOverdue int) decimal.Decimal {
	var amount decimal.Decimal
	switch rule.AmountCalculation {
	case domain.CalculationFixed:
		amount = rule.AmountValue
	case domain.CalculationPercentage:
		amount = basePrice.Mul(rule.AmountValue).Div(decimal.NewFromInt(100)).RoundBank(2)
	case domain.CalculationDaily:
		chargeable := daysOverdue - rule.GracePeriodDays
		if chargeable < 0 {
			chargeable = 0
		}
		amount = rule.AmountValue.Mul(decimal.NewFromInt(int64(chargeable)))
	default:
		amount = decimal.Zero
	}
	if rule.MaximumAmount != nil && amount.GreaterThan(*rule.MaximumAmount) {
		amount = *rule.MaximumAmount
	}
	return amount
}

// Apply records a penalty instance for (contractor, quote, rule) and debits
// the wallet. Idempotent: a second call with the same triple returns the
// existing instance. When the wallet cannot cover the amount (or is
// suspended) the instance stays pending, queued for admin resolution.
func (s *Service) Apply(ctx context.Context, contractorID, quoteID uuid.UUID, rule *domain.PenaltyRule, amount decimal.Decimal, evidence domain.PenaltyEvidence) (*domain.PenaltyInstance, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("penalty %s: %w", amount, domain.ErrInvalidAmount)
	}

	var existing domain.PenaltyInstance
	err := s.DB.WithContext(ctx).
		Where("contractor_id = ? AND quote_id = ? AND penalty_rule_id = ?", contractorID, quoteID, rule.ID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("penalty lookup: %w", err)
	}

	raw, err := json.Marshal(evidence)
	if err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}
	instance := &domain.PenaltyInstance{
		ContractorID:  contractorID,
		QuoteID:       quoteID,
		PenaltyRuleID: rule.ID,
		Amount:        amount,
		Status:        domain.PenaltyStatusPending,
		Evidence:      datatypes.JSON(raw),
	}
	if err := s.DB.WithContext(ctx).Create(instance).Error; err != nil {
		return nil, fmt.Errorf("create penalty instance: %w", err)
	}

	return s.collect(ctx, instance)
}

// Collect retries the debit for a queued pending instance. Admins call this
// once the contractor has balance again.
func (s *Service) Collect(ctx context.Context, instanceID uuid.UUID) (*domain.PenaltyInstance, error) {
	instance, err := s.get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status != domain.PenaltyStatusPending {
		return nil, fmt.Errorf("collect from %s instance: %w", instance.Status, domain.ErrInvalidTransition)
	}
	return s.collect(ctx, instance)
}

// collect attempts the ledger debit and promotes the instance to applied.
// Insufficient balance and suspension leave it pending.
func (s *Service) collect(ctx context.Context, instance *domain.PenaltyInstance) (*domain.PenaltyInstance, error) {
	w, err := s.Wallet.GetBalance(ctx, instance.ContractorID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if w != nil && w.IsSuspended {
		log.Info().
			Str("instance_id", instance.ID.String()).
			Msg("wallet suspended, penalty queued as pending debt")
		return instance, nil
	}

	entry, err := s.Wallet.Debit(ctx, instance.ContractorID, instance.Amount, domain.SubtypePenalty, domain.ReferencePenalty, instance.ID)
	if errors.Is(err, domain.ErrInsufficientBalance) {
		log.Info().
			Str("instance_id", instance.ID.String()).
			Str("amount", instance.Amount.String()).
			Msg("insufficient balance, penalty queued for admin resolution")
		return instance, nil
	}
	if err != nil {
		return nil, fmt.Errorf("debit penalty: %w", err)
	}

	updates := map[string]interface{}{
		"status":         domain.PenaltyStatusApplied,
		"transaction_id": entry.ID,
	}
	if err := s.DB.WithContext(ctx).Model(instance).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark penalty applied: %w", err)
	}
	instance.Status = domain.PenaltyStatusApplied
	instance.TransactionID = &entry.ID
	return instance, nil
}

// Dispute moves an applied penalty to disputed. Disputed amounts are
// excluded from the contractor's withdrawable balance until resolved.
func (s *Service) Dispute(ctx context.Context, instanceID uuid.UUID, reason string) (*domain.PenaltyInstance, error) {
	instance, err := s.get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status != domain.PenaltyStatusApplied {
		return nil, fmt.Errorf("dispute from %s: %w", instance.Status, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":         domain.PenaltyStatusDisputed,
		"dispute_reason": reason,
		"disputed_at":    now,
	}
	if err := s.DB.WithContext(ctx).Model(instance).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark penalty disputed: %w", err)
	}
	instance.Status = domain.PenaltyStatusDisputed
	instance.DisputeReason = &reason
	instance.DisputedAt = &now
	return instance, nil
}

// Resolve closes a dispute. Waived refunds the collected amount with a
// reversal credit; reversed records the outcome without a monetary effect
// (used when the penalty was never collected).
func (s *Service) Resolve(ctx context.Context, instanceID uuid.UUID, outcome domain.PenaltyStatus) (*domain.PenaltyInstance, error) {
	if outcome != domain.PenaltyStatusWaived && outcome != domain.PenaltyStatusReversed {
		return nil, fmt.Errorf("resolve outcome %q: %w", outcome, domain.ErrInvalidTransition)
	}
	instance, err := s.get(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.Status != domain.PenaltyStatusDisputed {
		return nil, fmt.Errorf("resolve from %s: %w", instance.Status, domain.ErrInvalidTransition)
	}

	if outcome == domain.PenaltyStatusWaived && instance.TransactionID != nil {
		if _, err := s.Wallet.Credit(ctx, instance.ContractorID, instance.Amount, decimal.Zero, domain.SubtypeReversal, domain.ReferencePenalty, instance.ID); err != nil {
			return nil, fmt.Errorf("reverse penalty debit: %w", err)
		}
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      outcome,
		"resolved_at": now,
	}
	if err := s.DB.WithContext(ctx).Model(instance).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark penalty %s: %w", outcome, err)
	}
	instance.Status = outcome
	instance.ResolvedAt = &now
	return instance, nil
}

// GetPendingPenalties lists queued pending instances for a contractor.
func (s *Service) GetPendingPenalties(ctx context.Context, contractorID uuid.UUID) ([]domain.PenaltyInstance, error) {
	var instances []domain.PenaltyInstance
	err := s.DB.WithContext(ctx).
		Where("contractor_id = ? AND status = ?", contractorID, domain.PenaltyStatusPending).
		Order("created_at ASC").
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("load pending penalties: %w", err)
	}
	return instances, nil
}

// DisputedTotal sums the amounts currently under dispute for a contractor.
// The withdrawal workflow holds this back from the withdrawable balance.
func (s *Service) DisputedTotal(ctx context.Context, contractorID uuid.UUID) (decimal.Decimal, error) {
	var instances []domain.PenaltyInstance
	err := s.DB.WithContext(ctx).
		Where("contractor_id = ? AND status = ?", contractorID, domain.PenaltyStatusDisputed).
		Find(&instances).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("load disputed penalties: %w", err)
	}
	total := decimal.Zero
	for _, inst := range instances {
		total = total.Add(inst.Amount)
	}
	return total, nil
}

func (s *Service) get(ctx context.Context, instanceID uuid.UUID) (*domain.PenaltyInstance, error) {
	var instance domain.PenaltyInstance
	err := s.DB.WithContext(ctx).Where("id = ?", instanceID).First(&instance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("penalty instance %s: %w", instanceID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load penalty instance: %w", err)
	}
	return &instance, nil
}
