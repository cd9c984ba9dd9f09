// Package trades owns the option-position state machine: open, add to
// position, partial close (splits the row), full close, and the covered-call
// cost-basis side effect on the linked share lot.
package trades

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/marketcalc"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/apperr"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/validation"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/sharelots"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// CreateTradeInput for CreateTrade.
type CreateTradeInput struct {
	PortfolioID    uuid.UUID
	Ticker         string
	Type           domain.TradeType
	StrikePrice    decimal.Decimal
	ExpirationDate time.Time
	Contracts      int
	ContractPrice  decimal.Decimal
	EntryPrice     decimal.Decimal
	ShareLotID     *uuid.UUID
	Notes          *string
}

// CreateTrade opens a position. A covered call must name an OPEN lot of the
// same ticker in the same portfolio with enough unreserved shares to back
// every contract; the reservation itself stays lazy (derived from open
// trades, nothing written to the lot).
func (s *Service) CreateTrade(ctx context.Context, userID uuid.UUID, in CreateTradeInput) (*domain.Trade, error) {
	ticker := validation.NormalizeTicker(in.Ticker)
	if !validation.IsValidTicker(ticker) {
		return nil, apperr.Validation("Invalid ticker symbol")
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("Unknown trade type %q", string(in.Type))
	}
	if in.Contracts <= 0 {
		return nil, apperr.Validation("Contracts must be a positive integer")
	}
	if !in.StrikePrice.IsPositive() {
		return nil, apperr.Validation("strike_price must be positive")
	}
	if !in.ContractPrice.IsPositive() {
		return nil, apperr.Validation("contract_price must be positive")
	}
	if in.EntryPrice.IsNegative() {
		return nil, apperr.Validation("entry_price cannot be negative")
	}
	if in.ExpirationDate.IsZero() {
		return nil, apperr.Validation("expiration_date is required")
	}
	if in.Type == domain.TradeTypeCoveredCall && in.ShareLotID == nil {
		return nil, apperr.Validation("A covered call requires a linked share lot")
	}

	var created *domain.Trade
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedPortfolio(tx, userID, in.PortfolioID); err != nil {
			return err
		}

		if in.Type == domain.TradeTypeCoveredCall {
			var lot domain.ShareLot
			err := tx.Where("lot_id = ? AND portfolio_id = ?", *in.ShareLotID, in.PortfolioID).First(&lot).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Share lot not found in this portfolio")
			}
			if err != nil {
				return err
			}
			if lot.Status != domain.ShareLotStatusOpen {
				return apperr.Conflict("Share lot is not open")
			}
			if lot.Ticker != ticker {
				return apperr.Validation("Covered call ticker %s does not match lot ticker %s", ticker, lot.Ticker)
			}
			reserved, err := sharelots.ReservedShares(tx, lot.LotID)
			if err != nil {
				return err
			}
			if reserved+in.Contracts*100 > lot.Shares {
				return apperr.Conflict("Lot has %d shares with %d already reserved; cannot cover %d more contracts", lot.Shares, reserved, in.Contracts)
			}
		}

		trade := &domain.Trade{
			PortfolioID:      in.PortfolioID,
			ShareLotID:       in.ShareLotID,
			Ticker:           ticker,
			Type:             in.Type,
			StrikePrice:      in.StrikePrice,
			ExpirationDate:   utcDay(in.ExpirationDate),
			ContractsInitial: in.Contracts,
			ContractsOpen:    in.Contracts,
			ContractPrice:    in.ContractPrice,
			EntryPrice:       in.EntryPrice,
			Status:           domain.TradeStatusOpen,
			Notes:            in.Notes,
		}
		if err := tx.Create(trade).Error; err != nil {
			return err
		}
		if err := writeEvent(tx, trade, domain.TradeEventOpened, map[string]interface{}{
			"contracts":      trade.ContractsInitial,
			"contract_price": trade.ContractPrice,
		}); err != nil {
			return err
		}
		created = trade
		return nil
	})
	if err != nil {
		return nil, classify(err, "Failed to create trade")
	}
	return created, nil
}

// AddToTrade increases an open position's size in place and re-averages the
// contract price as a size-weighted blend of old and new premium.
func (s *Service) AddToTrade(ctx context.Context, userID, tradeID uuid.UUID, addedContracts int, addedContractPrice decimal.Decimal) (*domain.Trade, error) {
	if addedContracts <= 0 {
		return nil, apperr.Validation("added_contracts must be a positive integer")
	}
	if !addedContractPrice.IsPositive() {
		return nil, apperr.Validation("added_contract_price must be positive")
	}

	var updated *domain.Trade
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trade, err := ownedTrade(tx, userID, tradeID)
		if err != nil {
			return err
		}
		if trade.Status != domain.TradeStatusOpen {
			return apperr.Conflict("Trade is not open")
		}

		oldOpen := trade.ContractsOpen
		newOpen := oldOpen + addedContracts
		newInitial := trade.ContractsInitial + addedContracts
		blended := trade.ContractPrice.Mul(decimal.NewFromInt(int64(oldOpen))).
			Add(addedContractPrice.Mul(decimal.NewFromInt(int64(addedContracts)))).
			Div(decimal.NewFromInt(int64(newOpen)))

		res := tx.Model(&domain.Trade{}).
			Where("trade_id = ? AND status = ? AND contracts_open = ?", trade.TradeID, domain.TradeStatusOpen, oldOpen).
			Updates(map[string]interface{}{
				"contracts_open":    newOpen,
				"contracts_initial": newInitial,
				"contract_price":    blended,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("Trade was modified concurrently, retry")
		}

		trade.ContractsOpen = newOpen
		trade.ContractsInitial = newInitial
		trade.ContractPrice = blended
		if err := writeEvent(tx, trade, domain.TradeEventSizeIncreased, map[string]interface{}{
			"added_contracts":      addedContracts,
			"added_contract_price": addedContractPrice,
			"new_contract_price":   blended,
		}); err != nil {
			return err
		}
		updated = trade
		return nil
	})
	if err != nil {
		return nil, classify(err, "Failed to add to trade")
	}
	return updated, nil
}

// CloseTradeInput for CloseTrade.
type CloseTradeInput struct {
	ContractsToClose int
	ClosingPrice     decimal.Decimal
	FeesPerContract  decimal.Decimal
	FlatFees         decimal.Decimal
	// FullClose forces the full-close branch while contracts would remain
	// open; when none would remain the close is always full, so an open row
	// can never be left with zero contracts.
	FullClose *bool
}

// CloseResult reports one close operation.
type CloseResult struct {
	RealizedNow   decimal.Decimal `json:"realized_now"`
	FeesTotal     decimal.Decimal `json:"fees_total"`
	Remaining     int             `json:"remaining"`
	ClosedTradeID uuid.UUID       `json:"closed_trade_id"`
}

// CloseTrade closes contractsToClose contracts. A full close updates the row
// in place; a partial close decrements the open row and inserts a sibling
// closed row carrying the leg's realized figures. A covered-call leg with a
// linked lot also folds its realized amount into the lot's average cost.
// Everything commits or fails as one transaction.
func (s *Service) CloseTrade(ctx context.Context, userID, tradeID uuid.UUID, in CloseTradeInput) (*CloseResult, error) {
	if in.ContractsToClose <= 0 {
		return nil, apperr.Validation("contracts_to_close must be a positive integer")
	}
	if in.ClosingPrice.IsNegative() {
		return nil, apperr.Validation("closing_price cannot be negative")
	}
	if in.FeesPerContract.IsNegative() || in.FlatFees.IsNegative() {
		return nil, apperr.Validation("fees cannot be negative")
	}

	var result *CloseResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trade, err := ownedTrade(tx, userID, tradeID)
		if err != nil {
			return err
		}
		if trade.Status != domain.TradeStatusOpen {
			return apperr.Conflict("Trade is not open")
		}
		if in.ContractsToClose > trade.ContractsOpen {
			return apperr.Conflict("Cannot close %d contracts: only %d are open", in.ContractsToClose, trade.ContractsOpen)
		}

		gross, percentPL := marketcalc.RealizedLeg(trade.ContractPrice, in.ClosingPrice, in.ContractsToClose, trade.Type.IsShort())
		feesTotal := marketcalc.FeesTotal(in.FeesPerContract, in.ContractsToClose, in.FlatFees)
		realizedNow := marketcalc.NormalizeSign(gross.Sub(feesTotal), percentPL)

		remaining := trade.ContractsOpen - in.ContractsToClose
		full := remaining <= 0
		if in.FullClose != nil && remaining > 0 {
			full = *in.FullClose
		}

		now := time.Now().UTC()
		var closedRowID uuid.UUID

		if full {
			// Supports a row that was partially closed before and is
			// now finished: realized accumulates on the same row.
			premium := realizedNow
			if trade.PremiumCaptured.Valid {
				premium = trade.PremiumCaptured.Decimal.Add(realizedNow)
			}
			res := tx.Model(&domain.Trade{}).
				Where("trade_id = ? AND status = ? AND contracts_open = ?", trade.TradeID, domain.TradeStatusOpen, trade.ContractsOpen).
				Updates(map[string]interface{}{
					"status":           domain.TradeStatusClosed,
					"contracts_open":   0,
					"closing_price":    in.ClosingPrice,
					"percent_pl":       percentPL,
					"premium_captured": premium,
					"closed_at":        now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return apperr.Conflict("Trade was modified concurrently, retry the close")
			}
			remaining = 0
			closedRowID = trade.TradeID
			if err := writeEvent(tx, trade, domain.TradeEventClosed, map[string]interface{}{
				"contracts_closed": in.ContractsToClose,
				"closing_price":    in.ClosingPrice,
				"realized":         realizedNow,
			}); err != nil {
				return err
			}
		} else {
			res := tx.Model(&domain.Trade{}).
				Where("trade_id = ? AND status = ? AND contracts_open = ?", trade.TradeID, domain.TradeStatusOpen, trade.ContractsOpen).
				Update("contracts_open", remaining)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return apperr.Conflict("Trade was modified concurrently, retry the close")
			}

			leg := &domain.Trade{
				PortfolioID:      trade.PortfolioID,
				ShareLotID:       trade.ShareLotID,
				ParentTradeID:    &trade.TradeID,
				Ticker:           trade.Ticker,
				Type:             trade.Type,
				StrikePrice:      trade.StrikePrice,
				ExpirationDate:   trade.ExpirationDate,
				ContractsInitial: in.ContractsToClose,
				ContractsOpen:    0,
				ContractPrice:    trade.ContractPrice,
				EntryPrice:       trade.EntryPrice,
				Status:           domain.TradeStatusClosed,
				ClosingPrice:     decimal.NewNullDecimal(in.ClosingPrice),
				PremiumCaptured:  decimal.NewNullDecimal(realizedNow),
				PercentPL:        decimal.NewNullDecimal(percentPL),
				ClosedAt:         &now,
			}
			if err := tx.Create(leg).Error; err != nil {
				return err
			}
			closedRowID = leg.TradeID
			if err := writeEvent(tx, trade, domain.TradeEventPartiallyClosed, map[string]interface{}{
				"contracts_closed": in.ContractsToClose,
				"remaining":        remaining,
				"closing_price":    in.ClosingPrice,
				"realized":         realizedNow,
				"closed_trade_id":  leg.TradeID,
			}); err != nil {
				return err
			}
		}

		if trade.Type == domain.TradeTypeCoveredCall && trade.ShareLotID != nil && !realizedNow.IsZero() {
			if err := adjustLotBasis(tx, *trade.ShareLotID, realizedNow); err != nil {
				return err
			}
		}

		result = &CloseResult{
			RealizedNow:   realizedNow,
			FeesTotal:     feesTotal,
			Remaining:     remaining,
			ClosedTradeID: closedRowID,
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "Failed to close trade")
	}
	return result, nil
}

// adjustLotBasis treats a covered-call leg's captured premium as a reduction
// of the underlying's cost basis: newAvg = (avg*shares - realized) / shares,
// clamped at zero. A losing leg raises the basis by the same rule.
func adjustLotBasis(tx *gorm.DB, lotID uuid.UUID, realized decimal.Decimal) error {
	var lot domain.ShareLot
	if err := tx.Where("lot_id = ?", lotID).First(&lot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Linked share lot not found")
		}
		return err
	}
	if lot.Shares <= 0 {
		return nil
	}
	shares := decimal.NewFromInt(int64(lot.Shares))
	newAvg := lot.AvgCost.Mul(shares).Sub(realized).Div(shares)
	if newAvg.IsNegative() {
		newAvg = decimal.Zero
	}
	res := tx.Model(&domain.ShareLot{}).
		Where("lot_id = ? AND shares = ?", lot.LotID, lot.Shares).
		Update("avg_cost", newAvg)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return apperr.Conflict("Share lot was modified concurrently, retry the close")
	}
	return nil
}

// OpenTrades lists a portfolio's open trades in creation order.
func (s *Service) OpenTrades(ctx context.Context, userID, portfolioID uuid.UUID) ([]domain.Trade, error) {
	return s.listByStatus(ctx, userID, portfolioID, domain.TradeStatusOpen)
}

// ClosedTrades lists a portfolio's closed trades, most recently closed first.
func (s *Service) ClosedTrades(ctx context.Context, userID, portfolioID uuid.UUID) ([]domain.Trade, error) {
	db := s.DB.WithContext(ctx)
	if _, err := ownedPortfolio(db, userID, portfolioID); err != nil {
		return nil, err
	}
	var out []domain.Trade
	err := db.Where("portfolio_id = ? AND status = ?", portfolioID, domain.TradeStatusClosed).
		Order("closed_at DESC").Find(&out).Error
	if err != nil {
		return nil, apperr.Internal("Failed to list trades", err)
	}
	return out, nil
}

func (s *Service) listByStatus(ctx context.Context, userID, portfolioID uuid.UUID, status string) ([]domain.Trade, error) {
	db := s.DB.WithContext(ctx)
	if _, err := ownedPortfolio(db, userID, portfolioID); err != nil {
		return nil, err
	}
	var out []domain.Trade
	err := db.Where("portfolio_id = ? AND status = ?", portfolioID, status).
		Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, apperr.Internal("Failed to list trades", err)
	}
	return out, nil
}

// ClosedTradesBetween returns closed trades for the given portfolios with
// closed_at in [start, end), oldest first. Read surface for reporting.
func (s *Service) ClosedTradesBetween(ctx context.Context, portfolioIDs []uuid.UUID, start, end time.Time) ([]domain.Trade, error) {
	var out []domain.Trade
	err := s.DB.WithContext(ctx).
		Where("portfolio_id IN ? AND status = ? AND closed_at >= ? AND closed_at < ?",
			portfolioIDs, domain.TradeStatusClosed, start, end).
		Order("closed_at ASC").Find(&out).Error
	if err != nil {
		return nil, apperr.Internal("Failed to list closed trades", err)
	}
	return out, nil
}

// Realized returns the closed row's realized amount: the stored
// premiumCaptured when present, otherwise an estimate from
// (contractPrice - closingPrice) * 100 * contractsInitial with a missing
// closing price treated as zero.
func Realized(t *domain.Trade) marketcalc.RealizedAmount {
	if t.PremiumCaptured.Valid {
		return marketcalc.RealizedAmount{Amount: t.PremiumCaptured.Decimal, Source: marketcalc.SourceRecorded}
	}
	closing := decimal.Zero
	if t.ClosingPrice.Valid {
		closing = t.ClosingPrice.Decimal
	}
	est := t.ContractPrice.Sub(closing).
		Mul(marketcalc.SharesPerContract).
		Mul(decimal.NewFromInt(int64(t.ContractsInitial)))
	return marketcalc.RealizedAmount{Amount: est, Source: marketcalc.SourceEstimated}
}

func ownedPortfolio(tx *gorm.DB, userID, portfolioID uuid.UUID) (*domain.Portfolio, error) {
	var p domain.Portfolio
	err := tx.Where("portfolio_id = ? AND user_id = ?", portfolioID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Portfolio not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load portfolio", err)
	}
	return &p, nil
}

func ownedTrade(tx *gorm.DB, userID, tradeID uuid.UUID) (*domain.Trade, error) {
	var t domain.Trade
	err := tx.Where("trade_id = ?", tradeID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Trade not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load trade", err)
	}
	if _, err := ownedPortfolio(tx, userID, t.PortfolioID); err != nil {
		return nil, apperr.NotFound("Trade not found")
	}
	return &t, nil
}

func writeEvent(tx *gorm.DB, trade *domain.Trade, eventType string, payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return tx.Create(&domain.TradeEvent{
		TradeID:     trade.TradeID,
		PortfolioID: trade.PortfolioID,
		EventType:   eventType,
		EventData:   datatypes.JSON(b),
	}).Error
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func classify(err error, msg string) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Internal(msg, err)
}
