package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	penaltysvc "sunvolt-backend/internal/application/penalty"
	walletsvc "sunvolt-backend/internal/application/wallet"
	"sunvolt-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MinimumSource supplies the configured withdrawal floor, re-read per request.
type MinimumSource interface {
	MinWithdrawal(ctx context.Context) (decimal.Decimal, error)
}

// Service runs the payout state machine: requested → reserved → completed |
// rejected. Funds move through the wallet ledger's Reserve/Release; approval
// itself belongs to an external administrative actor.
type Service struct {
	DB        *gorm.DB
	Wallet    *walletsvc.Service
	Penalties *penaltysvc.Service
	Minimums  MinimumSource
}

// Request validates and reserves a payout. Disputed penalty amounts are held
// back from the withdrawable balance until their disputes resolve.
func (s *Service) Request(ctx context.Context, contractorID uuid.UUID, amount decimal.Decimal) (*domain.WithdrawalRequest, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("withdraw %s: %w", amount, domain.ErrInvalidAmount)
	}
	minimum, err := s.Minimums.MinWithdrawal(ctx)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(minimum) {
		return nil, fmt.Errorf("withdraw %s below minimum %s: %w", amount, minimum, domain.ErrBelowMinimum)
	}

	w, err := s.Wallet.GetBalance(ctx, contractorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInsufficientBalance
		}
		return nil, err
	}
	if w.IsSuspended {
		return nil, fmt.Errorf("contractor %s: %w", contractorID, domain.ErrWalletSuspended)
	}

	disputed, err := s.Penalties.DisputedTotal(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	withdrawable := w.AvailableBalance.Sub(disputed)
	if withdrawable.LessThan(amount) {
		return nil, fmt.Errorf("withdrawable %s (disputed hold %s): %w", withdrawable, disputed, domain.ErrInsufficientBalance)
	}

	request := &domain.WithdrawalRequest{
		ContractorID: contractorID,
		Amount:       amount,
		Status:       domain.WithdrawalStatusRequested,
	}
	if err := s.DB.WithContext(ctx).Create(request).Error; err != nil {
		return nil, fmt.Errorf("create withdrawal request: %w", err)
	}

	if _, err := s.Wallet.Reserve(ctx, contractorID, amount, request.ID); err != nil {
		// Lost a race between the balance check and the reservation.
		s.DB.WithContext(ctx).Model(request).Update("status", domain.WithdrawalStatusRejected)
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(request).Update("status", domain.WithdrawalStatusReserved).Error; err != nil {
		return nil, fmt.Errorf("mark request reserved: %w", err)
	}
	request.Status = domain.WithdrawalStatusReserved

	log.Info().
		Str("request_id", request.ID.String()).
		Str("contractor_id", contractorID.String()).
		Str("amount", amount.String()).
		Msg("withdrawal reserved")
	return request, nil
}

// Finalize applies the external approval decision. Idempotent per request:
// replaying the same outcome returns the stored request; a different outcome
// after finalization fails with ErrAlreadyFinalized.
func (s *Service) Finalize(ctx context.Context, requestID uuid.UUID, outcome domain.WithdrawalStatus) (*domain.WithdrawalRequest, error) {
	if outcome != domain.WithdrawalStatusCompleted && outcome != domain.WithdrawalStatusRejected {
		return nil, fmt.Errorf("finalize outcome %q: %w", outcome, domain.ErrInvalidTransition)
	}

	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	switch request.Status {
	case domain.WithdrawalStatusCompleted, domain.WithdrawalStatusRejected:
		if request.Status == outcome {
			return request, nil
		}
		return nil, fmt.Errorf("request %s already %s: %w", requestID, request.Status, domain.ErrAlreadyFinalized)
	case domain.WithdrawalStatusReserved:
		// proceed
	default:
		return nil, fmt.Errorf("finalize from %s: %w", request.Status, domain.ErrAlreadyFinalized)
	}

	releaseOutcome := walletsvc.ReleaseCompleted
	if outcome == domain.WithdrawalStatusRejected {
		releaseOutcome = walletsvc.ReleaseRejected
	}
	if _, err := s.Wallet.Release(ctx, request.ContractorID, request.Amount, request.ID, releaseOutcome); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       outcome,
		"finalized_at": now,
	}
	if err := s.DB.WithContext(ctx).Model(request).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark request %s: %w", outcome, err)
	}
	request.Status = outcome
	request.FinalizedAt = &now

	log.Info().
		Str("request_id", request.ID.String()).
		Str("outcome", string(outcome)).
		Msg("withdrawal finalized")
	return request, nil
}

// Get returns a withdrawal request by ID (the GetWithdrawalStatus surface).
func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*domain.WithdrawalRequest, error) {
	var request domain.WithdrawalRequest
	err := s.DB.WithContext(ctx).Where("id = ?", requestID).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("withdrawal request %s: %w", requestID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load withdrawal request: %w", err)
	}
	return &request, nil
}
