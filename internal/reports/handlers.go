package reports

import (
	"strings"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/middleware"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles report handlers.
type Handlers struct {
	Service *Service
}

// ClosedTrades GET /api/v1/reports/closed-trades
// Query: start=YYYY-MM-DD end=YYYY-MM-DD portfolio_ids=a,b,c format=json|csv
// The range is [start, end): end's day is excluded.
func (h *Handlers) ClosedTrades(c *fiber.Ctx) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	start, err := time.ParseInLocation("2006-01-02", c.Query("start"), time.UTC)
	if err != nil {
		return response.Error(c, "Invalid start (must be YYYY-MM-DD)", fiber.StatusBadRequest, nil)
	}
	end, err := time.ParseInLocation("2006-01-02", c.Query("end"), time.UTC)
	if err != nil {
		return response.Error(c, "Invalid end (must be YYYY-MM-DD)", fiber.StatusBadRequest, nil)
	}

	var portfolioIDs []uuid.UUID
	if raw := strings.TrimSpace(c.Query("portfolio_ids")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				return response.Error(c, "Invalid portfolio ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
			}
			portfolioIDs = append(portfolioIDs, id)
		}
	}

	rows, err := h.Service.GetClosedTradesReport(c.Context(), userID, portfolioIDs, start, end)
	if err != nil {
		return response.AppError(c, err)
	}

	if strings.EqualFold(c.Query("format"), "csv") {
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="closed-trades.csv"`)
		var sb strings.Builder
		if err := WriteCSV(&sb, rows); err != nil {
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
		return c.SendString(sb.String())
	}
	return response.Success(c, "Report generated successfully", rows, nil)
}
