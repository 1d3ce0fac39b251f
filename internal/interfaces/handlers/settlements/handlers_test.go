package settlements

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pricingsvc "sunvolt-backend/internal/application/pricing"
	settingssvc "sunvolt-backend/internal/application/settings"
	settlementsvc "sunvolt-backend/internal/application/settlement"
	walletsvc "sunvolt-backend/internal/application/wallet"
	"sunvolt-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSettlementsTest(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Wallet{}, &domain.Transaction{}, &domain.Quote{}, &domain.BusinessSetting{},
	))
	svc := &settlementsvc.Service{
		DB:         db,
		Calculator: &pricingsvc.Calculator{Rates: &settingssvc.Service{DB: db}},
		Wallet:     &walletsvc.Service{DB: db},
	}
	return &Handlers{Service: svc}, db
}

func TestSettleQuote_CreditsContractor(t *testing.T) {
	h, db := setupSettlementsTest(t)
	quote := &domain.Quote{
		ContractorID:             uuid.New(),
		BasePrice:                decimal.NewFromInt(10000),
		PricePerKwp:              decimal.NewFromInt(1250),
		InstallationTimelineDays: 14,
		AdminStatus:              domain.QuoteStatusApproved,
		IsSelected:               true,
	}
	require.NoError(t, db.Create(quote).Error)

	app := fiber.New()
	app.Post("/api/v1/settlements/quotes/:quote_id", h.SettleQuote)

	req := httptest.NewRequest("POST", "/api/v1/settlements/quotes/"+quote.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Data struct {
			Quotation struct {
				ContractorNet string `json:"contractor_net"`
			} `json:"quotation"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "8500", body.Data.Quotation.ContractorNet)
}

func TestSettleQuote_IneligibleQuote(t *testing.T) {
	h, db := setupSettlementsTest(t)
	quote := &domain.Quote{
		ContractorID: uuid.New(),
		BasePrice:    decimal.NewFromInt(10000),
		AdminStatus:  domain.QuoteStatusApproved,
		IsSelected:   false,
	}
	require.NoError(t, db.Create(quote).Error)

	app := fiber.New()
	app.Post("/api/v1/settlements/quotes/:quote_id", h.SettleQuote)

	req := httptest.NewRequest("POST", "/api/v1/settlements/quotes/"+quote.ID.String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSettleQuote_UnknownQuote(t *testing.T) {
	h, _ := setupSettlementsTest(t)
	app := fiber.New()
	app.Post("/api/v1/settlements/quotes/:quote_id", h.SettleQuote)

	req := httptest.NewRequest("POST", "/api/v1/settlements/quotes/"+uuid.New().String(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
