package trades

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) (*fiber.App, *Service, uuid.UUID, *domain.Portfolio) {
	t.Helper()
	svc, _, userID, p := setupTradeTest(t)
	handlers := &Handlers{Service: svc}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", map[string]interface{}{
			"user_id":  userID.String(),
			"fullname": "Test User",
			"email":    "test@example.com",
		})
		return c.Next()
	})
	app.Post("/api/v1/trades/create-trade", handlers.CreateTrade)
	app.Post("/api/v1/trades/close-trade", handlers.CloseTrade)
	app.Get("/api/v1/trades/open-trades/:portfolio_id", handlers.OpenTrades)
	return app, svc, userID, p
}

func postJSON(t *testing.T, app *fiber.App, path string, body map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCreateTradeEndpoint(t *testing.T) {
	app, _, _, p := testApp(t)

	exp := time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02")
	status, body := postJSON(t, app, "/api/v1/trades/create-trade", map[string]interface{}{
		"portfolio_id":    p.PortfolioID.String(),
		"ticker":          "aapl",
		"type":            "CashSecuredPut",
		"strike_price":    "180",
		"expiration_date": exp,
		"contracts":       2,
		"contract_price":  "2.60",
		"entry_price":     "185",
	})
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "AAPL", data["ticker"])
	assert.Equal(t, float64(2), data["contracts_open"])
}

func TestCreateTradeEndpoint_BadInput(t *testing.T) {
	app, _, _, p := testApp(t)

	// malformed portfolio id
	status, _ := postJSON(t, app, "/api/v1/trades/create-trade", map[string]interface{}{
		"portfolio_id":    "not-a-uuid",
		"ticker":          "AAPL",
		"type":            "CashSecuredPut",
		"strike_price":    "180",
		"expiration_date": "2026-09-18",
		"contracts":       1,
		"contract_price":  "2.60",
		"entry_price":     "185",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// malformed expiration
	status, _ = postJSON(t, app, "/api/v1/trades/create-trade", map[string]interface{}{
		"portfolio_id":    p.PortfolioID.String(),
		"ticker":          "AAPL",
		"type":            "CashSecuredPut",
		"strike_price":    "180",
		"expiration_date": "18/09/2026",
		"contracts":       1,
		"contract_price":  "2.60",
		"entry_price":     "185",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	// unknown trade type surfaces as a validation error
	status, body := postJSON(t, app, "/api/v1/trades/create-trade", map[string]interface{}{
		"portfolio_id":    p.PortfolioID.String(),
		"ticker":          "AAPL",
		"type":            "IronCondor",
		"strike_price":    "180",
		"expiration_date": "2026-09-18",
		"contracts":       1,
		"contract_price":  "2.60",
		"entry_price":     "185",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "error", body["status"])
}

func TestCloseTradeEndpoint(t *testing.T) {
	app, svc, userID, p := testApp(t)

	trade, err := svc.CreateTrade(context.Background(), userID, cspInput(p.PortfolioID, "AAPL", 2, "2.60"))
	require.NoError(t, err)

	status, body := postJSON(t, app, "/api/v1/trades/close-trade", map[string]interface{}{
		"trade_id":           trade.TradeID.String(),
		"contracts_to_close": 2,
		"closing_price":      "0.05",
	})
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "510", data["realized_now"])

	// closing again conflicts
	status, _ = postJSON(t, app, "/api/v1/trades/close-trade", map[string]interface{}{
		"trade_id":           trade.TradeID.String(),
		"contracts_to_close": 1,
		"closing_price":      "0.05",
	})
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestOpenTradesEndpoint(t *testing.T) {
	app, svc, userID, p := testApp(t)

	_, err := svc.CreateTrade(context.Background(), userID, cspInput(p.PortfolioID, "AAPL", 2, "2.60"))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/trades/open-trades/"+p.PortfolioID.String(), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	trades := body["data"].([]interface{})
	assert.Len(t, trades, 1)

	req = httptest.NewRequest("GET", "/api/v1/trades/open-trades/not-a-uuid", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
