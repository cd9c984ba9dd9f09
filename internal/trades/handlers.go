package trades

import (
	"context"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/middleware"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handlers bundles trade handlers.
type Handlers struct {
	Service *Service
}

type createTradeRequest struct {
	PortfolioID    string          `json:"portfolio_id"`
	Ticker         string          `json:"ticker"`
	Type           string          `json:"type"`
	StrikePrice    decimal.Decimal `json:"strike_price"`
	ExpirationDate string          `json:"expiration_date"` // "2006-01-02"
	Contracts      int             `json:"contracts"`
	ContractPrice  decimal.Decimal `json:"contract_price"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	ShareLotID     *string         `json:"share_lot_id"`
	Notes          *string         `json:"notes"`
}

// CreateTrade POST /api/v1/trades/create-trade
func (h *Handlers) CreateTrade(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req createTradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	portfolioID, err := uuid.Parse(req.PortfolioID)
	if err != nil {
		return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	expiration, err := time.ParseInLocation("2006-01-02", req.ExpirationDate, time.UTC)
	if err != nil {
		return response.Error(c, "Invalid expiration_date (must be YYYY-MM-DD)", fiber.StatusBadRequest, nil)
	}
	var lotID *uuid.UUID
	if req.ShareLotID != nil && *req.ShareLotID != "" {
		id, err := uuid.Parse(*req.ShareLotID)
		if err != nil {
			return response.Error(c, "Invalid share lot ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
		}
		lotID = &id
	}

	trade, err := h.Service.CreateTrade(c.Context(), userID, CreateTradeInput{
		PortfolioID:    portfolioID,
		Ticker:         req.Ticker,
		Type:           domain.TradeType(req.Type),
		StrikePrice:    req.StrikePrice,
		ExpirationDate: expiration,
		Contracts:      req.Contracts,
		ContractPrice:  req.ContractPrice,
		EntryPrice:     req.EntryPrice,
		ShareLotID:     lotID,
		Notes:          req.Notes,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.SuccessCreated(c, "Trade created successfully", trade, nil)
}

type addContractsRequest struct {
	TradeID            string          `json:"trade_id"`
	AddedContracts     int             `json:"added_contracts"`
	AddedContractPrice decimal.Decimal `json:"added_contract_price"`
}

// AddContracts POST /api/v1/trades/add-contracts
func (h *Handlers) AddContracts(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req addContractsRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	tradeID, err := uuid.Parse(req.TradeID)
	if err != nil {
		return response.Error(c, "Invalid trade ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	trade, err := h.Service.AddToTrade(c.Context(), userID, tradeID, req.AddedContracts, req.AddedContractPrice)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Contracts added successfully", trade, nil)
}

type closeTradeRequest struct {
	TradeID          string          `json:"trade_id"`
	ContractsToClose int             `json:"contracts_to_close"`
	ClosingPrice     decimal.Decimal `json:"closing_price"`
	FeesPerContract  decimal.Decimal `json:"fees_per_contract"`
	FlatFees         decimal.Decimal `json:"flat_fees"`
	FullClose        *bool           `json:"full_close"`
}

// CloseTrade POST /api/v1/trades/close-trade
func (h *Handlers) CloseTrade(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req closeTradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	tradeID, err := uuid.Parse(req.TradeID)
	if err != nil {
		return response.Error(c, "Invalid trade ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	result, err := h.Service.CloseTrade(c.Context(), userID, tradeID, CloseTradeInput{
		ContractsToClose: req.ContractsToClose,
		ClosingPrice:     req.ClosingPrice,
		FeesPerContract:  req.FeesPerContract,
		FlatFees:         req.FlatFees,
		FullClose:        req.FullClose,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Trade closed successfully", result, nil)
}

// OpenTrades GET /api/v1/trades/open-trades/:portfolio_id
func (h *Handlers) OpenTrades(c *fiber.Ctx) error {
	return h.listTrades(c, h.Service.OpenTrades)
}

// ClosedTrades GET /api/v1/trades/closed-trades/:portfolio_id
func (h *Handlers) ClosedTrades(c *fiber.Ctx) error {
	return h.listTrades(c, h.Service.ClosedTrades)
}

func (h *Handlers) listTrades(c *fiber.Ctx, list func(ctx context.Context, userID, portfolioID uuid.UUID) ([]domain.Trade, error)) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	portfolioID, err := uuid.Parse(c.Params("portfolio_id"))
	if err != nil {
		return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	out, err := list(c.Context(), userID, portfolioID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Trades fetched successfully", out, nil)
}
