package metrics

import (
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/middleware"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles metrics handlers.
type Handlers struct {
	Service *Service
}

// PortfolioSnapshot GET /api/v1/metrics/portfolio-snapshot/:portfolio_id
func (h *Handlers) PortfolioSnapshot(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	portfolioID, err := uuid.Parse(c.Params("portfolio_id"))
	if err != nil {
		return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	snap, err := h.Service.GetPortfolioSnapshot(c.Context(), userID, portfolioID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Snapshot computed successfully", snap, nil)
}

// AccountSummary GET /api/v1/metrics/account-summary
func (h *Handlers) AccountSummary(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	summary, err := h.Service.GetAccountSummary(c.Context(), userID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Account summary computed successfully", summary, nil)
}
