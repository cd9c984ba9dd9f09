package portfolios

import (
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/middleware"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Handlers bundles portfolio handlers.
type Handlers struct {
	Service *Service
}

type createRequest struct {
	Name            string          `json:"name"`
	StartingCapital decimal.Decimal `json:"starting_capital"`
	Notes           *string         `json:"notes"`
}

// CreatePortfolio POST /api/v1/portfolios/create-portfolio
func (h *Handlers) CreatePortfolio(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	p, err := h.Service.CreatePortfolio(c.Context(), userID, CreateInput{
		Name:            req.Name,
		StartingCapital: req.StartingCapital,
		Notes:           req.Notes,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.SuccessCreated(c, "Portfolio created successfully", p, nil)
}

// ViewPortfolios GET /api/v1/portfolios/view-portfolios
func (h *Handlers) ViewPortfolios(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	list, err := h.Service.ListPortfolios(c.Context(), userID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Portfolios fetched successfully", list, nil)
}

// ViewPortfolio GET /api/v1/portfolios/view-portfolio/:id
func (h *Handlers) ViewPortfolio(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	p, err := h.Service.GetPortfolio(c.Context(), userID, id)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Portfolio fetched successfully", p, nil)
}

type updateRequest struct {
	Name              *string          `json:"name"`
	AdditionalCapital *decimal.Decimal `json:"additional_capital"`
	Notes             *string          `json:"notes"`
}

// UpdatePortfolio PATCH /api/v1/portfolios/update-portfolio/:id
func (h *Handlers) UpdatePortfolio(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	p, err := h.Service.UpdatePortfolio(c.Context(), userID, id, UpdateInput{
		Name:              req.Name,
		AdditionalCapital: req.AdditionalCapital,
		Notes:             req.Notes,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Portfolio updated successfully", p, nil)
}

// RemovePortfolio DELETE /api/v1/portfolios/remove-portfolio/:id
func (h *Handlers) RemovePortfolio(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	if err := h.Service.DeletePortfolio(c.Context(), userID, id); err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Portfolio removed successfully", nil, nil)
}
