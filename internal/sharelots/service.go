// Package sharelots owns share-lot state: open shares, average cost,
// reservation by open covered calls, sales and closure.
package sharelots

import (
	"context"
	"errors"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/apperr"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// ReservedShares is 100 x the open covered-call contracts written against the
// lot. Reservation is computed lazily from open trades, never stored.
func ReservedShares(tx *gorm.DB, lotID uuid.UUID) (int, error) {
	var contracts int64
	err := tx.Model(&domain.Trade{}).
		Where("share_lot_id = ? AND status = ? AND type = ?", lotID, domain.TradeStatusOpen, domain.TradeTypeCoveredCall).
		Select("COALESCE(SUM(contracts_open), 0)").
		Scan(&contracts).Error
	if err != nil {
		return 0, err
	}
	return int(contracts) * 100, nil
}

// CreateShareLotInput for CreateShareLot.
type CreateShareLotInput struct {
	PortfolioID uuid.UUID
	Ticker      string
	Shares      int
	AvgCost     decimal.Decimal
	Notes       *string
}

func (s *Service) CreateShareLot(ctx context.Context, userID uuid.UUID, in CreateShareLotInput) (*domain.ShareLot, error) {
	ticker := validation.NormalizeTicker(in.Ticker)
	if !validation.IsValidTicker(ticker) {
		return nil, apperr.Validation("Invalid ticker symbol")
	}
	if in.Shares <= 0 {
		return nil, apperr.Validation("Shares must be a positive integer")
	}
	if in.AvgCost.IsNegative() {
		return nil, apperr.Validation("Average cost cannot be negative")
	}

	if _, err := ownedPortfolio(s.DB.WithContext(ctx), userID, in.PortfolioID); err != nil {
		return nil, err
	}

	lot := &domain.ShareLot{
		PortfolioID: in.PortfolioID,
		Ticker:      ticker,
		Shares:      in.Shares,
		AvgCost:     in.AvgCost,
		Status:      domain.ShareLotStatusOpen,
		RealizedPnl: decimal.Zero,
		Notes:       in.Notes,
	}
	if err := s.DB.WithContext(ctx).Create(lot).Error; err != nil {
		return nil, apperr.Internal("Failed to create share lot", err)
	}
	return lot, nil
}

// SellSharesInput for SellShares.
type SellSharesInput struct {
	SharesSold int
	SalePrice  decimal.Decimal
	Fees       decimal.Decimal
	Notes      *string
}

// SellResult reports a completed sale plus the lot's post-sale figures.
type SellResult struct {
	Sale               domain.ShareLotSale `json:"sale"`
	ReservedShares     int                 `json:"reserved_shares"`
	AvailableToSell    int                 `json:"available_to_sell"`
	NewShares          int                 `json:"new_shares"`
	CumulativeRealized decimal.Decimal     `json:"cumulative_realized"`
}

// SellShares sells part of a lot. Shares reserved by open covered calls are
// not sellable; the lot closes when the last share goes. AvgCost is never
// changed by a sale.
func (s *Service) SellShares(ctx context.Context, userID, lotID uuid.UUID, in SellSharesInput) (*SellResult, error) {
	if in.SharesSold <= 0 {
		return nil, apperr.Validation("shares_sold must be a positive integer")
	}
	if !in.SalePrice.IsPositive() {
		return nil, apperr.Validation("sale_price must be positive")
	}
	if in.Fees.IsNegative() {
		return nil, apperr.Validation("fees cannot be negative")
	}

	var result *SellResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lot, err := ownedLot(tx, userID, lotID)
		if err != nil {
			return err
		}
		if lot.Status != domain.ShareLotStatusOpen {
			return apperr.Conflict("Share lot is not open")
		}

		reserved, err := ReservedShares(tx, lot.LotID)
		if err != nil {
			return apperr.Internal("Failed to compute reserved shares", err)
		}
		available := lot.Shares - reserved
		if in.SharesSold > available {
			return apperr.Conflict("Cannot sell %d shares: only %d of %d are unreserved", in.SharesSold, available, lot.Shares)
		}

		sold := decimal.NewFromInt(int64(in.SharesSold))
		realized := in.SalePrice.Sub(lot.AvgCost).Mul(sold).Sub(in.Fees)

		sale := domain.ShareLotSale{
			LotID:       lot.LotID,
			SharesSold:  in.SharesSold,
			SalePrice:   in.SalePrice,
			Fees:        in.Fees,
			RealizedPnl: realized,
			Notes:       in.Notes,
			Source:      "manual_sale",
		}
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}

		newShares := lot.Shares - in.SharesSold
		cumulative := lot.RealizedPnl.Add(realized)
		updates := map[string]interface{}{
			"shares":       newShares,
			"realized_pnl": cumulative,
		}
		if newShares == 0 {
			now := time.Now().UTC()
			updates["status"] = domain.ShareLotStatusClosed
			updates["close_price"] = in.SalePrice
			updates["closed_at"] = now
		}
		// Compare-and-set on shares: a racing sale or covered-call close
		// that already moved the count makes this a no-op and we abort.
		res := tx.Model(&domain.ShareLot{}).
			Where("lot_id = ? AND shares = ?", lot.LotID, lot.Shares).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("Share lot was modified concurrently, retry the sale")
		}

		result = &SellResult{
			Sale:               sale,
			ReservedShares:     reserved,
			AvailableToSell:    newShares - reserved,
			NewShares:          newShares,
			CumulativeRealized: cumulative,
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "Failed to sell shares")
	}
	return result, nil
}

// CloseShareLot marks the whole remainder closed at closePrice without a sale
// ledger entry. Rejected while open covered calls still reference the lot.
func (s *Service) CloseShareLot(ctx context.Context, userID, lotID uuid.UUID, closePrice decimal.Decimal) (*domain.ShareLot, error) {
	if !closePrice.IsPositive() {
		return nil, apperr.Validation("close_price must be positive")
	}

	var closed *domain.ShareLot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lot, err := ownedLot(tx, userID, lotID)
		if err != nil {
			return err
		}
		if lot.Status != domain.ShareLotStatusOpen {
			return apperr.Conflict("Share lot is not open")
		}
		reserved, err := ReservedShares(tx, lot.LotID)
		if err != nil {
			return apperr.Internal("Failed to compute reserved shares", err)
		}
		if reserved > 0 {
			return apperr.Conflict("Cannot close lot: %d shares are reserved by open covered calls", reserved)
		}

		now := time.Now().UTC()
		realized := closePrice.Sub(lot.AvgCost).Mul(decimal.NewFromInt(int64(lot.Shares)))
		res := tx.Model(&domain.ShareLot{}).
			Where("lot_id = ? AND shares = ?", lot.LotID, lot.Shares).
			Updates(map[string]interface{}{
				"shares":       0,
				"status":       domain.ShareLotStatusClosed,
				"close_price":  closePrice,
				"realized_pnl": realized,
				"closed_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return apperr.Conflict("Share lot was modified concurrently, retry the close")
		}

		lot.Shares = 0
		lot.Status = domain.ShareLotStatusClosed
		lot.ClosePrice = decimal.NewNullDecimal(closePrice)
		lot.RealizedPnl = realized
		lot.ClosedAt = &now
		closed = lot
		return nil
	})
	if err != nil {
		return nil, classify(err, "Failed to close share lot")
	}
	return closed, nil
}

// LotView is a lot plus its lazily computed reservation figures.
type LotView struct {
	domain.ShareLot
	ReservedShares  int `json:"reserved_shares"`
	AvailableToSell int `json:"available_to_sell"`
}

// ViewLots lists a portfolio's lots with reservation figures.
func (s *Service) ViewLots(ctx context.Context, userID, portfolioID uuid.UUID) ([]LotView, error) {
	db := s.DB.WithContext(ctx)
	if _, err := ownedPortfolio(db, userID, portfolioID); err != nil {
		return nil, err
	}
	var lots []domain.ShareLot
	if err := db.Where("portfolio_id = ?", portfolioID).Order("created_at ASC").Find(&lots).Error; err != nil {
		return nil, apperr.Internal("Failed to list share lots", err)
	}
	views := make([]LotView, 0, len(lots))
	for _, lot := range lots {
		reserved := 0
		if lot.Status == domain.ShareLotStatusOpen {
			var err error
			reserved, err = ReservedShares(db, lot.LotID)
			if err != nil {
				return nil, apperr.Internal("Failed to compute reserved shares", err)
			}
		}
		views = append(views, LotView{
			ShareLot:        lot,
			ReservedShares:  reserved,
			AvailableToSell: lot.Shares - reserved,
		})
	}
	return views, nil
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

func ownedLot(tx *gorm.DB, userID, lotID uuid.UUID) (*domain.ShareLot, error) {
	var lot domain.ShareLot
	err := tx.Where("lot_id = ?", lotID).First(&lot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Share lot not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load share lot", err)
	}
	if _, err := ownedPortfolio(tx, userID, lot.PortfolioID); err != nil {
		return nil, apperr.NotFound("Share lot not found")
	}
	return &lot, nil
}

// classify keeps apperr kinds and wraps anything else as internal.
func classify(err error, msg string) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Internal(msg, err)
}
