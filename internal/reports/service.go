// Package reports is a thin read-only projection over closed trades in a
// date range, reusing the lifecycle engine's query surface and P&L formulas.
package reports

import (
	"context"
	"math"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/marketcalc"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/apperr"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/trades"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB     *gorm.DB
	Trades *trades.Service
}

// Row is one closed trade shaped for export.
type Row struct {
	TradeID            uuid.UUID           `json:"trade_id"`
	PortfolioID        uuid.UUID           `json:"portfolio_id"`
	Ticker             string              `json:"ticker"`
	Type               domain.TradeType    `json:"type"`
	StrikePrice        decimal.Decimal     `json:"strike_price"`
	ContractsClosed    int                 `json:"contracts_closed"`
	ContractPrice      decimal.Decimal     `json:"contract_price"`
	ClosingPrice       decimal.Decimal     `json:"closing_price"`
	PremiumReceived    decimal.Decimal     `json:"premium_received"`
	PremiumPaidToClose decimal.Decimal     `json:"premium_paid_to_close"`
	PremiumCaptured    decimal.Decimal     `json:"premium_captured"`
	PremiumSource      marketcalc.Source   `json:"premium_source"`
	PercentPL          decimal.NullDecimal `json:"percent_pl"`
	OpenedAt           time.Time           `json:"opened_at"`
	ClosedAt           time.Time           `json:"closed_at"`
	HoldingDays        int                 `json:"holding_days"`
	Notes              *string             `json:"notes"`
}

// GetClosedTradesReport selects the caller's closed trades with closed_at in
// [start, end). An empty portfolioIDs means every portfolio the user owns;
// requested ids not owned by the user are rejected.
func (s *Service) GetClosedTradesReport(ctx context.Context, userID uuid.UUID, portfolioIDs []uuid.UUID, start, end time.Time) ([]Row, error) {
	if !end.After(start) {
		return nil, apperr.Validation("end must be after start")
	}

	db := s.DB.WithContext(ctx)
	var owned []uuid.UUID
	if err := db.Model(&domain.Portfolio{}).Where("user_id = ?", userID).
		Pluck("portfolio_id", &owned).Error; err != nil {
		return nil, apperr.Internal("Failed to list portfolios", err)
	}
	ownedSet := make(map[uuid.UUID]bool, len(owned))
	for _, id := range owned {
		ownedSet[id] = true
	}

	ids := portfolioIDs
	if len(ids) == 0 {
		ids = owned
	} else {
		for _, id := range ids {
			if !ownedSet[id] {
				return nil, apperr.NotFound("Portfolio not found")
			}
		}
	}
	if len(ids) == 0 {
		return []Row{}, nil
	}

	closed, err := s.Trades.ClosedTradesBetween(ctx, ids, start, end)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(closed))
	for i := range closed {
		rows = append(rows, projectRow(&closed[i]))
	}
	return rows, nil
}

func projectRow(t *domain.Trade) Row {
	contractsClosed := t.ContractsInitial - t.ContractsOpen
	closing := decimal.Zero
	if t.ClosingPrice.Valid {
		closing = t.ClosingPrice.Decimal
	}
	received := t.ContractPrice.Mul(marketcalc.SharesPerContract).Mul(decimal.NewFromInt(int64(t.ContractsInitial)))
	paid := closing.Mul(marketcalc.SharesPerContract).Mul(decimal.NewFromInt(int64(contractsClosed)))

	captured := marketcalc.RealizedAmount{Source: marketcalc.SourceEstimated}
	if t.PremiumCaptured.Valid {
		captured = marketcalc.RealizedAmount{Amount: t.PremiumCaptured.Decimal, Source: marketcalc.SourceRecorded}
	} else {
		diff := received.Sub(paid)
		if diff.IsNegative() {
			diff = decimal.Zero
		}
		captured.Amount = diff
	}

	row := Row{
		TradeID:            t.TradeID,
		PortfolioID:        t.PortfolioID,
		Ticker:             t.Ticker,
		Type:               t.Type,
		StrikePrice:        t.StrikePrice,
		ContractsClosed:    contractsClosed,
		ContractPrice:      t.ContractPrice,
		ClosingPrice:       closing,
		PremiumReceived:    received,
		PremiumPaidToClose: paid,
		PremiumCaptured:    captured.Amount,
		PremiumSource:      captured.Source,
		PercentPL:          t.PercentPL,
		OpenedAt:           t.CreatedAt,
		Notes:              t.Notes,
	}
	if t.ClosedAt != nil {
		row.ClosedAt = *t.ClosedAt
		days := int(math.Ceil(t.ClosedAt.Sub(t.CreatedAt).Hours() / 24))
		if days < 0 {
			days = 0
		}
		row.HoldingDays = days
	}
	return row
}
