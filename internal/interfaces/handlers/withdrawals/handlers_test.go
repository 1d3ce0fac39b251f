package withdrawals

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	penaltysvc "sunvolt-backend/internal/application/penalty"
	settingssvc "sunvolt-backend/internal/application/settings"
	walletsvc "sunvolt-backend/internal/application/wallet"
	withdrawalsvc "sunvolt-backend/internal/application/withdrawal"
	"sunvolt-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupWithdrawalsTest(t *testing.T) (*Handlers, *walletsvc.Service) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Wallet{}, &domain.Transaction{}, &domain.WithdrawalRequest{},
		&domain.PenaltyRule{}, &domain.PenaltyInstance{}, &domain.BusinessSetting{},
	))
	wallet := &walletsvc.Service{DB: db}
	penalties := &penaltysvc.Service{DB: db, Wallet: wallet}
	svc := &withdrawalsvc.Service{
		DB:        db,
		Wallet:    wallet,
		Penalties: penalties,
		Minimums:  &settingssvc.Service{DB: db},
	}
	return &Handlers{Service: svc}, wallet
}

func TestCreate_ReservesWithdrawal(t *testing.T) {
	h, wallet := setupWithdrawalsTest(t)
	contractor := uuid.New()
	_, err := wallet.Credit(context.Background(), contractor, decimal.NewFromInt(1000), decimal.Zero, domain.SubtypeQuotePayment, domain.ReferenceQuote, uuid.New())
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/api/v1/withdrawals", h.Create)

	payload, _ := json.Marshal(map[string]string{"contractor_id": contractor.String(), "amount": "500"})
	req := httptest.NewRequest("POST", "/api/v1/withdrawals", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, string(domain.WithdrawalStatusReserved), body.Data.Status)
}

func TestCreate_InsufficientBalance(t *testing.T) {
	h, wallet := setupWithdrawalsTest(t)
	contractor := uuid.New()
	_, err := wallet.Credit(context.Background(), contractor, decimal.NewFromInt(100), decimal.Zero, domain.SubtypeQuotePayment, domain.ReferenceQuote, uuid.New())
	require.NoError(t, err)

	app := fiber.New()
	app.Post("/api/v1/withdrawals", h.Create)

	payload, _ := json.Marshal(map[string]string{"contractor_id": contractor.String(), "amount": "500"})
	req := httptest.NewRequest("POST", "/api/v1/withdrawals", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCreate_MissingFields(t *testing.T) {
	h, _ := setupWithdrawalsTest(t)
	app := fiber.New()
	app.Post("/api/v1/withdrawals", h.Create)

	payload, _ := json.Marshal(map[string]string{"amount": "500"})
	req := httptest.NewRequest("POST", "/api/v1/withdrawals", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFinalize_ConflictAfterFinalized(t *testing.T) {
	h, wallet := setupWithdrawalsTest(t)
	ctx := context.Background()
	contractor := uuid.New()
	_, err := wallet.Credit(ctx, contractor, decimal.NewFromInt(1000), decimal.Zero, domain.SubtypeQuotePayment, domain.ReferenceQuote, uuid.New())
	require.NoError(t, err)
	request, err := h.Service.Request(ctx, contractor, decimal.NewFromInt(500))
	require.NoError(t, err)
	_, err = h.Service.Finalize(ctx, request.ID, domain.WithdrawalStatusCompleted)
	require.NoError(t, err)

	app := fiber.New()
	app.Patch("/api/v1/withdrawals/:request_id/finalize", h.Finalize)

	payload, _ := json.Marshal(map[string]string{"outcome": "rejected"})
	req := httptest.NewRequest("PATCH", "/api/v1/withdrawals/"+request.ID.String()+"/finalize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestGet_Unknown(t *testing.T) {
	h, _ := setupWithdrawalsTest(t)
	app := fiber.New()
	app.Get("/api/v1/withdrawals/:request_id", h.Get)

	req := httptest.NewRequest("GET", "/api/v1/withdrawals/"+uuid.New().String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
