package app

import (
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/auth"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/config"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/health"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/infrastructure/database"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/metrics"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/middleware"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/portfolios"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/reports"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/sharelots"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/trades"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and routes.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	healthHandlers := &health.Handlers{DB: db, Rdb: rdb}
	app.Get("/health/json", healthHandlers.JSON)

	// db may be nil when DATABASE_URL is not set (e.g. some tests); auth
	// then reports 500 on login.
	var userFinder auth.UserFinder
	if db != nil {
		userFinder = &auth.GormUserFinder{DB: db}
	}
	authHandlers := &auth.Handlers{UserFinder: userFinder, Rdb: rdb, Config: sessionCfg}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", authHandlers.Login)
	authGroup.Get("/me", authHandlers.Me)
	authGroup.Delete("/logout", authHandlers.Logout)

	if db != nil {
		portfolioService := &portfolios.Service{DB: db}
		portfolioHandlers := &portfolios.Handlers{Service: portfolioService}
		portfolioGroup := app.Group("/api/v1/portfolios", middleware.RequireAuth())
		portfolioGroup.Post("/create-portfolio", portfolioHandlers.CreatePortfolio)
		portfolioGroup.Get("/view-portfolios", portfolioHandlers.ViewPortfolios)
		portfolioGroup.Get("/view-portfolio/:id", portfolioHandlers.ViewPortfolio)
		portfolioGroup.Patch("/update-portfolio/:id", portfolioHandlers.UpdatePortfolio)
		portfolioGroup.Delete("/remove-portfolio/:id", portfolioHandlers.RemovePortfolio)

		tradeService := &trades.Service{DB: db}
		tradeHandlers := &trades.Handlers{Service: tradeService}
		tradeGroup := app.Group("/api/v1/trades", middleware.RequireAuth())
		tradeGroup.Post("/create-trade", tradeHandlers.CreateTrade)
		tradeGroup.Post("/add-contracts", tradeHandlers.AddContracts)
		tradeGroup.Post("/close-trade", tradeHandlers.CloseTrade)
		tradeGroup.Get("/open-trades/:portfolio_id", tradeHandlers.OpenTrades)
		tradeGroup.Get("/closed-trades/:portfolio_id", tradeHandlers.ClosedTrades)

		lotService := &sharelots.Service{DB: db}
		lotHandlers := &sharelots.Handlers{Service: lotService}
		lotGroup := app.Group("/api/v1/share-lots", middleware.RequireAuth())
		lotGroup.Post("/create-lot", lotHandlers.CreateLot)
		lotGroup.Post("/sell-shares", lotHandlers.SellShares)
		lotGroup.Post("/close-lot", lotHandlers.CloseLot)
		lotGroup.Get("/view-lots/:portfolio_id", lotHandlers.ViewLots)

		metricsService := &metrics.Service{DB: db}
		metricsHandlers := &metrics.Handlers{Service: metricsService}
		metricsGroup := app.Group("/api/v1/metrics", middleware.RequireAuth())
		metricsGroup.Get("/portfolio-snapshot/:portfolio_id", metricsHandlers.PortfolioSnapshot)
		metricsGroup.Get("/account-summary", metricsHandlers.AccountSummary)

		reportService := &reports.Service{DB: db, Trades: tradeService}
		reportHandlers := &reports.Handlers{Service: reportService}
		reportGroup := app.Group("/api/v1/reports", middleware.RequireAuth())
		reportGroup.Get("/closed-trades", reportHandlers.ClosedTrades)
	}

	return app, db, rdb, nil
}
