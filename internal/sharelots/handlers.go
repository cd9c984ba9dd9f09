package sharelots

import (
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/middleware"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handlers bundles share-lot handlers.
type Handlers struct {
	Service *Service
}

type createLotRequest struct {
	PortfolioID string          `json:"portfolio_id"`
	Ticker      string          `json:"ticker"`
	Shares      int             `json:"shares"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	Notes       *string         `json:"notes"`
}

// CreateLot POST /api/v1/share-lots/create-lot
func (h *Handlers) CreateLot(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req createLotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	portfolioID, err := uuid.Parse(req.PortfolioID)
	if err != nil {
		return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	lot, err := h.Service.CreateShareLot(c.Context(), userID, CreateShareLotInput{
		PortfolioID: portfolioID,
		Ticker:      req.Ticker,
		Shares:      req.Shares,
		AvgCost:     req.AvgCost,
		Notes:       req.Notes,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.SuccessCreated(c, "Share lot created successfully", lot, nil)
}

type sellSharesRequest struct {
	LotID      string          `json:"lot_id"`
	SharesSold int             `json:"shares_sold"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	Fees       decimal.Decimal `json:"fees"`
	Notes      *string         `json:"notes"`
}

// SellShares POST /api/v1/share-lots/sell-shares
func (h *Handlers) SellShares(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req sellSharesRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	lotID, err := uuid.Parse(req.LotID)
	if err != nil {
		return response.Error(c, "Invalid lot ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	result, err := h.Service.SellShares(c.Context(), userID, lotID, SellSharesInput{
		SharesSold: req.SharesSold,
		SalePrice:  req.SalePrice,
		Fees:       req.Fees,
		Notes:      req.Notes,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Shares sold successfully", result, nil)
}

type closeLotRequest struct {
	LotID      string          `json:"lot_id"`
	ClosePrice decimal.Decimal `json:"close_price"`
}

// CloseLot POST /api/v1/share-lots/close-lot
func (h *Handlers) CloseLot(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req closeLotRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	lotID, err := uuid.Parse(req.LotID)
	if err != nil {
		return response.Error(c, "Invalid lot ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	lot, err := h.Service.CloseShareLot(c.Context(), userID, lotID, req.ClosePrice)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Share lot closed successfully", lot, nil)
}

// ViewLots GET /api/v1/share-lots/view-lots/:portfolio_id
func (h *Handlers) ViewLots(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	portfolioID, err := uuid.Parse(c.Params("portfolio_id"))
	if err != nil {
		return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	lots, err := h.Service.ViewLots(c.Context(), userID, portfolioID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Share lots fetched successfully", lots, nil)
}
