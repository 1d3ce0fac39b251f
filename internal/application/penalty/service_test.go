package penalty

import (
	"context"
	"testing"
	"time"

	walletsvc "sunvolt-backend/internal/application/wallet"
	"sunvolt-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func setupPenaltyTest(t *testing.T) (*Service, *walletsvc.Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Wallet{}, &domain.Transaction{},
		&domain.PenaltyRule{}, &domain.PenaltyInstance{},
	))
	w := &walletsvc.Service{DB: db}
	return &Service{DB: db, Wallet: w}, w, db
}

func seedRule(t *testing.T, db *gorm.DB, rule domain.PenaltyRule) *domain.PenaltyRule {
	require.NoError(t, db.Create(&rule).Error)
	return &rule
}

func fundWallet(t *testing.T, w *walletsvc.Service, contractor uuid.UUID, amount string) {
	_, err := w.Credit(context.Background(), contractor, d(amount), decimal.Zero, domain.SubtypeQuotePayment, domain.ReferenceQuote, uuid.New())
	require.NoError(t, err)
}

func evidence(days int) domain.PenaltyEvidence {
	return domain.PenaltyEvidence{
		ViolationType: domain.ViolationLateInstallation,
		DaysOverdue:   days,
		DetectedAt:    time.Now().UTC(),
	}
}

func TestDetectAndRank_PicksMostSevereActive(t *testing.T) {
	svc, _, db := setupPenaltyTest(t)
	ctx := context.Background()

	seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("100"), SeverityLevel: 1, IsActive: true})
	seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("900"), SeverityLevel: 3, IsActive: false})
	top := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("500"), SeverityLevel: 2, IsActive: true})

	rule, err := svc.DetectAndRank(ctx, domain.ViolationLateInstallation)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, top.ID, rule.ID, "inactive rules must not win even at higher severity")
}

func TestDetectAndRank_TieBreaksByAmount(t *testing.T) {
	svc, _, db := setupPenaltyTest(t)

	seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("200"), SeverityLevel: 2, IsActive: true})
	bigger := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("400"), SeverityLevel: 2, IsActive: true})

	rule, err := svc.DetectAndRank(context.Background(), domain.ViolationLateInstallation)
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, bigger.ID, rule.ID)
}

func TestDetectAndRank_NoMatch(t *testing.T) {
	svc, _, _ := setupPenaltyTest(t)
	rule, err := svc.DetectAndRank(context.Background(), "no_show")
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestComputeAmount_FixedPercentageDaily(t *testing.T) {
	fixed := &domain.PenaltyRule{AmountCalculation: domain.CalculationFixed, AmountValue: d("350")}
	assert.True(t, ComputeAmount(fixed, d("10000"), 4).Equal(d("350")))

	pct := &domain.PenaltyRule{AmountCalculation: domain.CalculationPercentage, AmountValue: d("5")}
	assert.True(t, ComputeAmount(pct, d("10000"), 4).Equal(d("500")))

	daily := &domain.PenaltyRule{AmountCalculation: domain.CalculationDaily, AmountValue: d("50")}
	assert.True(t, ComputeAmount(daily, d("10000"), 4).Equal(d("200")))
}

func TestComputeAmount_ClampsToMaximum(t *testing.T) {
	maxAmount := d("2000")
	rule := &domain.PenaltyRule{AmountCalculation: domain.CalculationPercentage, AmountValue: d("50"), MaximumAmount: &maxAmount}
	got := ComputeAmount(rule, d("10000"), 0)
	assert.True(t, got.Equal(d("2000")), "amount=%s", got)
}

func TestComputeAmount_DailyGracePeriod(t *testing.T) {
	rule := &domain.PenaltyRule{AmountCalculation: domain.CalculationDaily, AmountValue: d("100"), GracePeriodDays: 3}
	assert.True(t, ComputeAmount(rule, d("10000"), 5).Equal(d("200")))
	assert.True(t, ComputeAmount(rule, d("10000"), 2).IsZero())
}

func TestApply_DebitsWallet(t *testing.T) {
	svc, w, db := setupPenaltyTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	fundWallet(t, w, contractor, "1000")
	rule := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("250"), SeverityLevel: 1, IsActive: true})

	inst, err := svc.Apply(ctx, contractor, uuid.New(), rule, d("250"), evidence(2))
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyStatusApplied, inst.Status)
	require.NotNil(t, inst.TransactionID, "applied instance must link its debit")

	wal, err := w.GetBalance(ctx, contractor)
	require.NoError(t, err)
	assert.True(t, wal.AvailableBalance.Equal(d("750")))
	assert.True(t, wal.TotalPenalties.Equal(d("250")))

	ev, err := domain.DecodePenaltyEvidence(inst.Evidence)
	require.NoError(t, err)
	assert.Equal(t, domain.ViolationLateInstallation, ev.ViolationType)
	assert.Equal(t, 2, ev.DaysOverdue)
}

func TestApply_InsufficientBalanceQueuesPending(t *testing.T) {
	svc, w, db := setupPenaltyTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	fundWallet(t, w, contractor, "100")
	rule := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("500"), SeverityLevel: 1, IsActive: true})

	inst, err := svc.Apply(ctx, contractor, uuid.New(), rule, d("500"), evidence(3))
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyStatusPending, inst.Status)
	assert.Nil(t, inst.TransactionID)

	wal, _ := w.GetBalance(ctx, contractor)
	assert.True(t, wal.AvailableBalance.Equal(d("100")), "balance must be unchanged")

	pending, err := svc.GetPendingPenalties(ctx, contractor)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, inst.ID, pending[0].ID)
}

func TestApply_IsIdempotentPerQuoteAndRule(t *testing.T) {
	svc, w, db := setupPenaltyTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	quote := uuid.New()
	fundWallet(t, w, contractor, "1000")
	rule := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("300"), SeverityLevel: 1, IsActive: true})

	first, err := svc.Apply(ctx, contractor, quote, rule, d("300"), evidence(1))
	require.NoError(t, err)
	second, err := svc.Apply(ctx, contractor, quote, rule, d("300"), evidence(1))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var instances int64
	db.Model(&domain.PenaltyInstance{}).Count(&instances)
	assert.EqualValues(t, 1, instances)

	var debits int64
	db.Model(&domain.Transaction{}).Where("subtype = ?", domain.SubtypePenalty).Count(&debits)
	assert.EqualValues(t, 1, debits)

	wal, _ := w.GetBalance(ctx, contractor)
	assert.True(t, wal.AvailableBalance.Equal(d("700")))
}

func TestApply_SuspendedWalletAccruesPendingDebt(t *testing.T) {
	svc, w, db := setupPenaltyTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	fundWallet(t, w, contractor, "1000")
	_, err := w.Suspend(ctx, contractor, true)
	require.NoError(t, err)
	rule := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("200"), SeverityLevel: 1, IsActive: true})

	inst, err := svc.Apply(ctx, contractor, uuid.New(), rule, d("200"), evidence(2))
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyStatusPending, inst.Status)

	wal, _ := w.GetBalance(ctx, contractor)
	assert.True(t, wal.AvailableBalance.Equal(d("1000")))
}

func TestCollect_PromotesQueuedPenalty(t *testing.T) {
	svc, w, db := setupPenaltyTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	fundWallet(t, w, contractor, "100")
	rule := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("500"), SeverityLevel: 1, IsActive: true})

	inst, err := svc.Apply(ctx, contractor, uuid.New(), rule, d("500"), evidence(2))
	require.NoError(t, err)
	require.Equal(t, domain.PenaltyStatusPending, inst.Status)

	fundWallet(t, w, contractor, "600")
	collected, err := svc.Collect(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyStatusApplied, collected.Status)

	wal, _ := w.GetBalance(ctx, contractor)
	assert.True(t, wal.AvailableBalance.Equal(d("200")))
}

func TestDisputeAndResolve_Waived(t *testing.T) {
	svc, w, db := setupPenaltyTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	fundWallet(t, w, contractor, "1000")
	rule := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("400"), SeverityLevel: 1, IsActive: true})

	inst, err := svc.Apply(ctx, contractor, uuid.New(), rule, d("400"), evidence(2))
	require.NoError(t, err)
	require.Equal(t, domain.PenaltyStatusApplied, inst.Status)

	disputed, err := svc.Dispute(ctx, inst.ID, "installation completed on time, customer confirmed")
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyStatusDisputed, disputed.Status)

	resolved, err := svc.Resolve(ctx, inst.ID, domain.PenaltyStatusWaived)
	require.NoError(t, err)
	assert.Equal(t, domain.PenaltyStatusWaived, resolved.Status)

	wal, _ := w.GetBalance(ctx, contractor)
	assert.True(t, wal.AvailableBalance.Equal(d("1000")), "waiver must refund the debit")

	var reversals int64
	db.Model(&domain.Transaction{}).Where("subtype = ?", domain.SubtypeReversal).Count(&reversals)
	assert.EqualValues(t, 1, reversals)
}

func TestDispute_OnlyFromApplied(t *testing.T) {
	svc, w, db := setupPenaltyTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	fundWallet(t, w, contractor, "100")
	rule := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("500"), SeverityLevel: 1, IsActive: true})

	inst, err := svc.Apply(ctx, contractor, uuid.New(), rule, d("500"), evidence(2))
	require.NoError(t, err)
	require.Equal(t, domain.PenaltyStatusPending, inst.Status)

	_, err = svc.Dispute(ctx, inst.ID, "disagree")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestResolve_RejectsBadOutcome(t *testing.T) {
	svc, _, _ := setupPenaltyTest(t)
	_, err := svc.Resolve(context.Background(), uuid.New(), domain.PenaltyStatusApplied)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDisputedTotal(t *testing.T) {
	svc, w, db := setupPenaltyTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	fundWallet(t, w, contractor, "2000")
	rule := seedRule(t, db, domain.PenaltyRule{PenaltyType: domain.ViolationLateInstallation, AmountCalculation: domain.CalculationFixed, AmountValue: d("300"), SeverityLevel: 1, IsActive: true})

	inst, err := svc.Apply(ctx, contractor, uuid.New(), rule, d("300"), evidence(1))
	require.NoError(t, err)
	_, err = svc.Dispute(ctx, inst.ID, "wrong quote")
	require.NoError(t, err)

	total, err := svc.DisputedTotal(ctx, contractor)
	require.NoError(t, err)
	assert.True(t, total.Equal(d("300")))
}
