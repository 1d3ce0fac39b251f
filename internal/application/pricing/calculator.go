package pricing

import (
	"context"
	"fmt"

	"sunvolt-backend/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Quotation is the result of pricing one quote: what the customer pays and
// what the contractor nets after platform commission.
type Quotation struct {
	CustomerPrice    decimal.Decimal `json:"customer_price"`
	ContractorNet    decimal.Decimal `json:"contractor_net"`
	MarkupAmount     decimal.Decimal `json:"markup_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// Compute derives the customer price (base + markup) and contractor net
// (base - commission) from a contractor's base price. Pure and deterministic;
// all derived amounts use banker's rounding at 2 decimal places so repeated
// settlements don't drift in one direction.
func Compute(basePrice, markupPercent, commissionPercent decimal.Decimal) (Quotation, error) {
	if markupPercent.IsNegative() || commissionPercent.IsNegative() {
		return Quotation{}, fmt.Errorf("negative percent: %w", domain.ErrInvalidConfiguration)
	}

	markup := basePrice.Mul(markupPercent).Div(hundred).RoundBank(2)
	commission := basePrice.Mul(commissionPercent).Div(hundred).RoundBank(2)
	net := basePrice.Sub(commission)
	if net.IsNegative() {
		return Quotation{}, fmt.Errorf("commission exceeds base price: %w", domain.ErrInvalidConfiguration)
	}

	return Quotation{
		CustomerPrice:    basePrice.Add(markup),
		ContractorNet:    net,
		MarkupAmount:     markup,
		CommissionAmount: commission,
	}, nil
}

// RateSource supplies the current markup and commission percents. Rates are
// re-read per operation; the business-rule store is the source of truth.
type RateSource interface {
	MarkupPercent(ctx context.Context) (decimal.Decimal, error)
	CommissionPercent(ctx context.Context) (decimal.Decimal, error)
}

// Calculator prices quotes with rates read from a RateSource.
type Calculator struct {
	Rates RateSource
}

// ComputeForQuote reads the current rates and prices the given quote.
func (c *Calculator) ComputeForQuote(ctx context.Context, quote *domain.Quote) (Quotation, error) {
	markup, err := c.Rates.MarkupPercent(ctx)
	if err != nil {
		return Quotation{}, fmt.Errorf("read markup percent: %w", err)
	}
	commission, err := c.Rates.CommissionPercent(ctx)
	if err != nil {
		return Quotation{}, fmt.Errorf("read commission percent: %w", err)
	}
	return Compute(quote.BasePrice, markup, commission)
}
