package router

import (
	"net/http"

	penaltysvc "sunvolt-backend/internal/application/penalty"
	pricingsvc "sunvolt-backend/internal/application/pricing"
	settingssvc "sunvolt-backend/internal/application/settings"
	settlementsvc "sunvolt-backend/internal/application/settlement"
	slasvc "sunvolt-backend/internal/application/sla"
	walletsvc "sunvolt-backend/internal/application/wallet"
	withdrawalsvc "sunvolt-backend/internal/application/withdrawal"
	"sunvolt-backend/internal/config"
	"sunvolt-backend/internal/infrastructure/database"
	healthhandler "sunvolt-backend/internal/interfaces/handlers/health"
	penaltyhandler "sunvolt-backend/internal/interfaces/handlers/penalties"
	settlementhandler "sunvolt-backend/internal/interfaces/handlers/settlements"
	slahandler "sunvolt-backend/internal/interfaces/handlers/sla"
	wallethandler "sunvolt-backend/internal/interfaces/handlers/wallets"
	withdrawalhandler "sunvolt-backend/internal/interfaces/handlers/withdrawals"
	"sunvolt-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opts)
	}

	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             nil,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Live)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		hh.DB = &gormDBPinger{db: db}
	}

	if db != nil {
		settings := &settingssvc.Service{DB: db}
		wallet := &walletsvc.Service{DB: db}
		penalties := &penaltysvc.Service{DB: db, Wallet: wallet}
		calculator := &pricingsvc.Calculator{Rates: settings}
		settlement := &settlementsvc.Service{DB: db, Calculator: calculator, Wallet: wallet}
		withdrawal := &withdrawalsvc.Service{DB: db, Wallet: wallet, Penalties: penalties, Minimums: settings}
		detector := &slasvc.Detector{DB: db, Penalties: penalties, Rdb: rdb}

		wh := &wallethandler.Handlers{Service: wallet, Penalties: penalties}
		wg := app.Group("/api/v1/wallets")
		wg.Get("/:contractor_id/balance", wh.GetBalance)
		wg.Get("/:contractor_id/transactions", wh.GetTransactions)
		wg.Get("/:contractor_id/penalties", wh.GetPendingPenalties)
		wg.Patch("/:contractor_id/suspend", wh.Suspend)

		wdh := &withdrawalhandler.Handlers{Service: withdrawal}
		wdg := app.Group("/api/v1/withdrawals")
		wdg.Post("/", wdh.Create)
		wdg.Get("/:request_id", wdh.Get)
		wdg.Patch("/:request_id/finalize", wdh.Finalize)

		ph := &penaltyhandler.Handlers{Service: penalties}
		pg := app.Group("/api/v1/penalties")
		pg.Post("/:instance_id/dispute", ph.Dispute)
		pg.Patch("/:instance_id/resolve", ph.Resolve)
		pg.Post("/:instance_id/collect", ph.Collect)

		sh := &settlementhandler.Handlers{Service: settlement}
		app.Post("/api/v1/settlements/quotes/:quote_id", sh.SettleQuote)

		slh := &slahandler.Handlers{Detector: detector}
		app.Post("/api/v1/sla/scan", slh.Scan)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
