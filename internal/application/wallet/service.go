package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sunvolt-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxConflictRetries bounds optimistic-lock retries before surfacing
// domain.ErrConflict to the caller.
const maxConflictRetries = 3

// errVersionConflict signals a lost optimistic-lock race inside one attempt.
var errVersionConflict = errors.New("wallet version conflict")

// Service is the wallet ledger: the only component allowed to mutate balances.
// Every mutation runs in one DB transaction, is serialized per wallet through
// an optimistic version check, and is idempotent on
// (wallet, subtype, reference_type, reference_id).
type Service struct {
	DB *gorm.DB
}

// ReleaseOutcome finishes a reservation.
type ReleaseOutcome string

const (
	ReleaseCompleted ReleaseOutcome = "completed"
	ReleaseRejected  ReleaseOutcome = "rejected"
)

// Credit adds earnings to a contractor's available balance, creating the
// wallet on first use. commission is the platform share already deducted from
// amount; it only feeds the total_commission_paid counter. A replay with the
// same reference returns the original transaction without re-applying.
func (s *Service) Credit(ctx context.Context, contractorID uuid.UUID, amount, commission decimal.Decimal, subtype domain.TransactionSubtype, refType domain.ReferenceType, refID uuid.UUID) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("credit %s: %w", amount, domain.ErrInvalidAmount)
	}

	return s.withRetry(ctx, func(tx *gorm.DB) (*domain.Transaction, error) {
		w, err := getOrCreateWallet(tx, contractorID)
		if err != nil {
			return nil, err
		}
		if existing, err := findExisting(tx, w.ID, subtype, refType, refID); existing != nil || err != nil {
			return existing, err
		}

		before := w.AvailableBalance
		after := before.Add(amount)
		updates := map[string]interface{}{
			"available_balance": after,
			"total_earned":      w.TotalEarned.Add(amount),
		}
		if commission.IsPositive() {
			updates["total_commission_paid"] = w.TotalCommissionPaid.Add(commission)
		}
		if err := bumpWallet(tx, w, updates); err != nil {
			return nil, err
		}
		return appendEntry(tx, w, domain.TransactionTypeCredit, subtype, amount, before, after, refType, refID)
	})
}

// Debit removes funds from the available balance. Fails with
// ErrInsufficientBalance when the wallet cannot cover the amount; penalty
// callers translate that into a queued pending penalty instead.
func (s *Service) Debit(ctx context.Context, contractorID uuid.UUID, amount decimal.Decimal, subtype domain.TransactionSubtype, refType domain.ReferenceType, refID uuid.UUID) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("debit %s: %w", amount, domain.ErrInvalidAmount)
	}

	return s.withRetry(ctx, func(tx *gorm.DB) (*domain.Transaction, error) {
		w, err := getWallet(tx, contractorID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrInsufficientBalance
			}
			return nil, err
		}
		if existing, err := findExisting(tx, w.ID, subtype, refType, refID); existing != nil || err != nil {
			return existing, err
		}
		if w.AvailableBalance.LessThan(amount) {
			return nil, domain.ErrInsufficientBalance
		}

		before := w.AvailableBalance
		after := before.Sub(amount)
		updates := map[string]interface{}{"available_balance": after}
		if subtype == domain.SubtypePenalty {
			updates["total_penalties"] = w.TotalPenalties.Add(amount)
		}
		if err := bumpWallet(tx, w, updates); err != nil {
			return nil, err
		}
		return appendEntry(tx, w, domain.TransactionTypeDebit, subtype, amount, before, after, refType, refID)
	})
}

// Reserve moves amount from available to pending for an in-flight withdrawal.
// The reservation itself is a completed debit entry: it is the one ledger row
// explaining the available-balance change.
func (s *Service) Reserve(ctx context.Context, contractorID uuid.UUID, amount decimal.Decimal, requestID uuid.UUID) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("reserve %s: %w", amount, domain.ErrInvalidAmount)
	}

	return s.withRetry(ctx, func(tx *gorm.DB) (*domain.Transaction, error) {
		w, err := getWallet(tx, contractorID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrInsufficientBalance
			}
			return nil, err
		}
		if existing, err := findExisting(tx, w.ID, domain.SubtypeWithdrawal, domain.ReferenceWithdrawal, requestID); existing != nil || err != nil {
			return existing, err
		}
		if w.AvailableBalance.LessThan(amount) {
			return nil, domain.ErrInsufficientBalance
		}

		before := w.AvailableBalance
		after := before.Sub(amount)
		updates := map[string]interface{}{
			"available_balance": after,
			"pending_balance":   w.PendingBalance.Add(amount),
		}
		if err := bumpWallet(tx, w, updates); err != nil {
			return nil, err
		}
		return appendEntry(tx, w, domain.TransactionTypeDebit, domain.SubtypeWithdrawal, amount, before, after, domain.ReferenceWithdrawal, requestID)
	})
}

// Release finishes a reservation. Completed moves the pending amount into
// total_withdrawn and records a payout entry; the available balance is
// untouched (the reserve entry already explains the deduction) so the payout
// entry carries balance_before == balance_after and exists as the idempotency
// anchor for the request. Rejected returns the funds to available with a
// reversal credit. Either way a replay returns the recorded entry without
// moving funds again.
func (s *Service) Release(ctx context.Context, contractorID uuid.UUID, amount decimal.Decimal, requestID uuid.UUID, outcome ReleaseOutcome) (*domain.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("release %s: %w", amount, domain.ErrInvalidAmount)
	}

	return s.withRetry(ctx, func(tx *gorm.DB) (*domain.Transaction, error) {
		w, err := getWallet(tx, contractorID)
		if err != nil {
			return nil, err
		}

		switch outcome {
		case ReleaseCompleted:
			if existing, err := findExisting(tx, w.ID, domain.SubtypePayout, domain.ReferenceWithdrawal, requestID); existing != nil || err != nil {
				return existing, err
			}
			if w.PendingBalance.LessThan(amount) {
				return nil, fmt.Errorf("pending %s below release %s: %w", w.PendingBalance, amount, domain.ErrConflict)
			}
			updates := map[string]interface{}{
				"pending_balance": w.PendingBalance.Sub(amount),
				"total_withdrawn": w.TotalWithdrawn.Add(amount),
			}
			if err := bumpWallet(tx, w, updates); err != nil {
				return nil, err
			}
			return appendEntry(tx, w, domain.TransactionTypeDebit, domain.SubtypePayout, amount, w.AvailableBalance, w.AvailableBalance, domain.ReferenceWithdrawal, requestID)
		case ReleaseRejected:
			if existing, err := findExisting(tx, w.ID, domain.SubtypeReversal, domain.ReferenceWithdrawal, requestID); existing != nil || err != nil {
				return existing, err
			}
			if w.PendingBalance.LessThan(amount) {
				return nil, fmt.Errorf("pending %s below release %s: %w", w.PendingBalance, amount, domain.ErrConflict)
			}
			before := w.AvailableBalance
			after := before.Add(amount)
			updates := map[string]interface{}{
				"available_balance": after,
				"pending_balance":   w.PendingBalance.Sub(amount),
			}
			if err := bumpWallet(tx, w, updates); err != nil {
				return nil, err
			}
			return appendEntry(tx, w, domain.TransactionTypeCredit, domain.SubtypeReversal, amount, before, after, domain.ReferenceWithdrawal, requestID)
		default:
			return nil, fmt.Errorf("unknown release outcome %q", outcome)
		}
	})
}

// Suspend flips the suspension flag. Suspended wallets keep earning and keep
// accruing penalty debt, but cannot withdraw.
func (s *Service) Suspend(ctx context.Context, contractorID uuid.UUID, suspended bool) (*domain.Wallet, error) {
	var w *domain.Wallet
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		w, err = getWallet(tx, contractorID)
		if err != nil {
			return err
		}
		return tx.Model(w).Update("is_suspended", suspended).Error
	})
	if err != nil {
		return nil, err
	}
	w.IsSuspended = suspended
	return w, nil
}

// GetBalance returns the wallet for a contractor.
func (s *Service) GetBalance(ctx context.Context, contractorID uuid.UUID) (*domain.Wallet, error) {
	return getWallet(s.DB.WithContext(ctx), contractorID)
}

// GetHistory returns a page of ledger entries, newest first, plus the total
// count for pagination metadata.
func (s *Service) GetHistory(ctx context.Context, contractorID uuid.UUID, page, pageSize int) ([]domain.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
		Where("contractor_id = ?", contractorID).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}
	var txs []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("contractor_id = ?", contractorID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error; err != nil {
		return nil, 0, fmt.Errorf("load history: %w", err)
	}
	return txs, total, nil
}

// withRetry runs fn inside a DB transaction, retrying the whole attempt on
// optimistic-lock conflicts a bounded number of times.
func (s *Service) withRetry(ctx context.Context, fn func(tx *gorm.DB) (*domain.Transaction, error)) (*domain.Transaction, error) {
	var result *domain.Transaction
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = fn(tx)
			return err
		})
		if err == nil {
			return result, nil
		}
		if errors.Is(err, errVersionConflict) {
			log.Warn().Int("attempt", attempt+1).Msg("wallet update conflict, retrying")
			continue
		}
		return nil, err
	}
	return nil, domain.ErrConflict
}

func getWallet(tx *gorm.DB, contractorID uuid.UUID) (*domain.Wallet, error) {
	var w domain.Wallet
	err := tx.Where("contractor_id = ?", contractorID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("wallet for contractor %s: %w", contractorID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	return &w, nil
}

func getOrCreateWallet(tx *gorm.DB, contractorID uuid.UUID) (*domain.Wallet, error) {
	w, err := getWallet(tx, contractorID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	created := &domain.Wallet{
		ContractorID:        contractorID,
		AvailableBalance:    decimal.Zero,
		PendingBalance:      decimal.Zero,
		TotalEarned:         decimal.Zero,
		TotalCommissionPaid: decimal.Zero,
		TotalPenalties:      decimal.Zero,
		TotalWithdrawn:      decimal.Zero,
	}
	if err := tx.Create(created).Error; err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	log.Info().Str("contractor_id", contractorID.String()).Msg("wallet created on first earning")
	return created, nil
}

// findExisting returns the transaction already recorded for this idempotency
// key, if any. Replays are success paths, not errors.
func findExisting(tx *gorm.DB, walletID uuid.UUID, subtype domain.TransactionSubtype, refType domain.ReferenceType, refID uuid.UUID) (*domain.Transaction, error) {
	var existing domain.Transaction
	err := tx.Where("wallet_id = ? AND subtype = ? AND reference_type = ? AND reference_id = ?",
		walletID, subtype, refType, refID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	return &existing, nil
}

// bumpWallet applies updates guarded by the wallet version. Zero rows
// affected means another writer won the race; the caller retries.
func bumpWallet(tx *gorm.DB, w *domain.Wallet, updates map[string]interface{}) error {
	updates["version"] = w.Version + 1
	updates["updated_at"] = time.Now().UTC()
	res := tx.Model(&domain.Wallet{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update wallet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	return nil
}

func appendEntry(tx *gorm.DB, w *domain.Wallet, txType domain.TransactionType, subtype domain.TransactionSubtype, amount, before, after decimal.Decimal, refType domain.ReferenceType, refID uuid.UUID) (*domain.Transaction, error) {
	entry := &domain.Transaction{
		WalletID:      w.ID,
		ContractorID:  w.ContractorID,
		Type:          txType,
		Subtype:       subtype,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		ReferenceType: refType,
		ReferenceID:   refID,
		Status:        domain.TransactionStatusCompleted,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}
