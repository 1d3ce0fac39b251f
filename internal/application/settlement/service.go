package settlement

import (
	"context"
	"errors"
	"fmt"

	"sunvolt-backend/internal/application/pricing"
	walletsvc "sunvolt-backend/internal/application/wallet"
	"sunvolt-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service turns an accepted quote into a ledger credit: price the quote,
// deduct commission, credit the contractor net. Pricing configuration is
// read fresh for every settlement, before any wallet mutation.
type Service struct {
	DB         *gorm.DB
	Calculator *pricing.Calculator
	Wallet     *walletsvc.Service
}

// Result describes one settled quote.
type Result struct {
	Quote       *domain.Quote       `json:"quote"`
	Quotation   pricing.Quotation   `json:"quotation"`
	Transaction *domain.Transaction `json:"transaction"`
}

// SettleAcceptedQuote credits the contractor for an approved, customer-
// selected quote. Idempotent per quote: a retried settlement returns the
// ledger entry written the first time.
func (s *Service) SettleAcceptedQuote(ctx context.Context, quoteID uuid.UUID) (*Result, error) {
	var quote domain.Quote
	err := s.DB.WithContext(ctx).Where("id = ?", quoteID).First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("quote %s: %w", quoteID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load quote: %w", err)
	}
	if quote.AdminStatus != domain.QuoteStatusApproved || !quote.IsSelected {
		return nil, fmt.Errorf("quote %s (%s, selected=%t): %w", quoteID, quote.AdminStatus, quote.IsSelected, domain.ErrQuoteNotEligible)
	}

	quotation, err := s.Calculator.ComputeForQuote(ctx, &quote)
	if err != nil {
		return nil, err
	}

	entry, err := s.Wallet.Credit(ctx, quote.ContractorID, quotation.ContractorNet, quotation.CommissionAmount, domain.SubtypeQuotePayment, domain.ReferenceQuote, quote.ID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("quote_id", quote.ID.String()).
		Str("contractor_id", quote.ContractorID.String()).
		Str("net", quotation.ContractorNet.String()).
		Str("commission", quotation.CommissionAmount.String()).
		Msg("quote settled")

	return &Result{Quote: &quote, Quotation: quotation, Transaction: entry}, nil
}
