// Package metrics is the read side: it reduces a portfolio's (or a whole
// account's) trades into capital figures, exposures, next-expiration
// summaries and cumulative realized-P&L series. Nothing here mutates state.
package metrics

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/marketcalc"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/apperr"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/trades"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

var hundred = decimal.NewFromInt(100)

// Exposure is one ticker's share of the collateral locked by open
// cash-secured puts.
type Exposure struct {
	Ticker     string          `json:"ticker"`
	Collateral decimal.Decimal `json:"collateral"`
	WeightPct  decimal.Decimal `json:"weight_pct"`
}

// NextExpiration summarizes the nearest upcoming expiration day.
type NextExpiration struct {
	Date      time.Time `json:"date"`
	Contracts int       `json:"contracts"`
	TopTicker string    `json:"top_ticker"`
}

// Snapshot is the full read-side view of one portfolio.
type Snapshot struct {
	PortfolioID       uuid.UUID                  `json:"portfolio_id"`
	Name              string                     `json:"name"`
	CapitalBase       decimal.Decimal            `json:"capital_base"`
	TotalRealized     decimal.Decimal            `json:"total_realized"`
	CurrentCapital    decimal.Decimal            `json:"current_capital"`
	CapitalInUse      decimal.Decimal            `json:"capital_in_use"`
	CashAvailable     decimal.Decimal            `json:"cash_available"`
	PercentUsed       decimal.Decimal            `json:"percent_used"`
	Exposures         []Exposure                 `json:"exposures"`
	PremiumByTicker   map[string]decimal.Decimal `json:"premium_by_ticker"`
	NextExpiration    *NextExpiration            `json:"next_expiration"`
	ExpiringSoonCount int                        `json:"expiring_soon_count"`
	RealizedMTD       decimal.Decimal            `json:"realized_mtd"`
	RealizedYTD       decimal.Decimal            `json:"realized_ytd"`
	PnlMonthToDate    []SeriesPoint              `json:"pnl_month_to_date"`
	PnlYearToDate     []SeriesPoint              `json:"pnl_year_to_date"`
	PnlTrailing90     []SeriesPoint              `json:"pnl_trailing_90"`
}

// Totals are the field-wise sums of per-portfolio snapshots.
type Totals struct {
	CapitalBase    decimal.Decimal `json:"capital_base"`
	TotalRealized  decimal.Decimal `json:"total_realized"`
	CurrentCapital decimal.Decimal `json:"current_capital"`
	CapitalInUse   decimal.Decimal `json:"capital_in_use"`
	CashAvailable  decimal.Decimal `json:"cash_available"`
	PercentUsed    decimal.Decimal `json:"percent_used"`
	RealizedMTD    decimal.Decimal `json:"realized_mtd"`
	RealizedYTD    decimal.Decimal `json:"realized_ytd"`
}

// AccountSummary reduces every portfolio of a user. Series buckets are merged
// across portfolios before the cumulative walk, so the account series stays
// additive even when portfolios realize on different days.
type AccountSummary struct {
	PerPortfolio      map[string]*Snapshot       `json:"per_portfolio"`
	Totals            Totals                     `json:"totals"`
	Exposures         []Exposure                 `json:"exposures"`
	PremiumByTicker   map[string]decimal.Decimal `json:"premium_by_ticker"`
	NextExpiration    *NextExpiration            `json:"next_expiration"`
	ExpiringSoonCount int                        `json:"expiring_soon_count"`
	PnlMonthToDate    []SeriesPoint              `json:"pnl_month_to_date"`
	PnlYearToDate     []SeriesPoint              `json:"pnl_year_to_date"`
	PnlTrailing90     []SeriesPoint              `json:"pnl_trailing_90"`
}

// accum holds the per-request mutable maps one aggregation pass builds up.
// Never shared across requests; mergeable across portfolios.
type accum struct {
	capitalBase        decimal.Decimal
	capitalInUse       decimal.Decimal
	totalRealized      decimal.Decimal
	collateralByTicker map[string]decimal.Decimal
	premiumByTicker    map[string]decimal.Decimal
	expContracts       map[time.Time]map[string]int
	expTickerOrder     map[time.Time][]string
	dayRealized        map[time.Time]decimal.Decimal
}

func newAccum() *accum {
	return &accum{
		capitalBase:        decimal.Zero,
		capitalInUse:       decimal.Zero,
		totalRealized:      decimal.Zero,
		collateralByTicker: make(map[string]decimal.Decimal),
		premiumByTicker:    make(map[string]decimal.Decimal),
		expContracts:       make(map[time.Time]map[string]int),
		expTickerOrder:     make(map[time.Time][]string),
		dayRealized:        make(map[time.Time]decimal.Decimal),
	}
}

// GetPortfolioSnapshot computes the read-side view of one owned portfolio.
func (s *Service) GetPortfolioSnapshot(ctx context.Context, userID, portfolioID uuid.UUID) (*Snapshot, error) {
	db := s.DB.WithContext(ctx)
	var p domain.Portfolio
	err := db.Where("portfolio_id = ? AND user_id = ?", portfolioID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Portfolio not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load portfolio", err)
	}
	snap, _, err := s.snapshotFor(ctx, &p, time.Now())
	return snap, err
}

// GetAccountSummary fans out one snapshot per portfolio (independent reads,
// no shared mutable state) and reduces them into account totals.
func (s *Service) GetAccountSummary(ctx context.Context, userID uuid.UUID) (*AccountSummary, error) {
	db := s.DB.WithContext(ctx)
	var portfolios []domain.Portfolio
	if err := db.Where("user_id = ?", userID).Order("created_at ASC").Find(&portfolios).Error; err != nil {
		return nil, apperr.Internal("Failed to list portfolios", err)
	}

	now := time.Now()
	snaps := make([]*Snapshot, len(portfolios))
	accums := make([]*accum, len(portfolios))

	g, gctx := errgroup.WithContext(ctx)
	for i := range portfolios {
		i := i
		g.Go(func() error {
			snap, acc, err := s.snapshotFor(gctx, &portfolios[i], now)
			if err != nil {
				return err
			}
			snaps[i], accums[i] = snap, acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newAccum()
	for _, acc := range accums {
		merged.merge(acc)
	}

	summary := &AccountSummary{
		PerPortfolio: make(map[string]*Snapshot, len(snaps)),
	}
	for _, snap := range snaps {
		summary.PerPortfolio[snap.PortfolioID.String()] = snap
	}

	today := utcDay(now)
	summary.Exposures = merged.exposures()
	summary.PremiumByTicker = merged.premiumByTicker
	summary.NextExpiration, summary.ExpiringSoonCount = merged.nextExpiration(today)
	summary.PnlMonthToDate = dailySeries(merged.dayRealized, monthStart(now), today)
	summary.PnlYearToDate = monthlySeries(merged.dayRealized, yearStart(now), today)
	summary.PnlTrailing90 = dailySeries(merged.dayRealized, today.AddDate(0, 0, -89), today)

	t := Totals{
		CapitalBase:   merged.capitalBase,
		TotalRealized: merged.totalRealized,
		CapitalInUse:  merged.capitalInUse,
		RealizedMTD:   windowTotal(merged.dayRealized, monthStart(now), today),
		RealizedYTD:   windowTotal(merged.dayRealized, yearStart(now), today),
	}
	t.CurrentCapital = t.CapitalBase.Add(t.TotalRealized)
	t.CashAvailable = t.CurrentCapital.Sub(t.CapitalInUse)
	t.PercentUsed = percentUsed(t.CapitalInUse, t.CurrentCapital)
	summary.Totals = t
	return summary, nil
}

// snapshotFor builds one portfolio's accumulator and finalizes it.
func (s *Service) snapshotFor(ctx context.Context, p *domain.Portfolio, now time.Time) (*Snapshot, *accum, error) {
	db := s.DB.WithContext(ctx)

	var open []domain.Trade
	if err := db.Where("portfolio_id = ? AND status = ?", p.PortfolioID, domain.TradeStatusOpen).
		Order("created_at ASC").Find(&open).Error; err != nil {
		return nil, nil, apperr.Internal("Failed to load open trades", err)
	}
	var closed []domain.Trade
	if err := db.Where("portfolio_id = ? AND status = ?", p.PortfolioID, domain.TradeStatusClosed).
		Order("closed_at ASC").Find(&closed).Error; err != nil {
		return nil, nil, apperr.Internal("Failed to load closed trades", err)
	}

	acc := newAccum()
	acc.capitalBase = p.CapitalBase()

	for i := range open {
		t := &open[i]
		if t.Type == domain.TradeTypeCashSecuredPut {
			col := marketcalc.Collateral(t.StrikePrice, t.ContractsOpen)
			acc.capitalInUse = acc.capitalInUse.Add(col)
			acc.collateralByTicker[t.Ticker] = acc.collateralByTicker[t.Ticker].Add(col)
		}
		acc.premiumByTicker[t.Ticker] = acc.premiumByTicker[t.Ticker].Add(
			marketcalc.PremiumNotional(t.ContractPrice, t.ContractsOpen))
		if t.ContractsOpen > 0 {
			acc.addExpiration(utcDay(t.ExpirationDate), t.Ticker, t.ContractsOpen)
		}
	}

	for i := range closed {
		t := &closed[i]
		amount := trades.Realized(t).Amount
		acc.totalRealized = acc.totalRealized.Add(amount)
		// a closed row without a timestamp still counts toward the total;
		// it just cannot be day-bucketed into the series
		if t.ClosedAt == nil {
			continue
		}
		day := utcDay(*t.ClosedAt)
		acc.dayRealized[day] = acc.dayRealized[day].Add(amount)
	}

	today := utcDay(now)
	snap := &Snapshot{
		PortfolioID:     p.PortfolioID,
		Name:            p.Name,
		CapitalBase:     acc.capitalBase,
		TotalRealized:   acc.totalRealized,
		CapitalInUse:    acc.capitalInUse,
		Exposures:       acc.exposures(),
		PremiumByTicker: acc.premiumByTicker,
		RealizedMTD:     windowTotal(acc.dayRealized, monthStart(now), today),
		RealizedYTD:     windowTotal(acc.dayRealized, yearStart(now), today),
		PnlMonthToDate:  dailySeries(acc.dayRealized, monthStart(now), today),
		PnlYearToDate:   monthlySeries(acc.dayRealized, yearStart(now), today),
		PnlTrailing90:   dailySeries(acc.dayRealized, today.AddDate(0, 0, -89), today),
	}
	snap.CurrentCapital = snap.CapitalBase.Add(snap.TotalRealized)
	snap.CashAvailable = snap.CurrentCapital.Sub(snap.CapitalInUse)
	snap.PercentUsed = percentUsed(snap.CapitalInUse, snap.CurrentCapital)
	snap.NextExpiration, snap.ExpiringSoonCount = acc.nextExpiration(today)
	return snap, acc, nil
}

func (a *accum) addExpiration(day time.Time, ticker string, contracts int) {
	byTicker, ok := a.expContracts[day]
	if !ok {
		byTicker = make(map[string]int)
		a.expContracts[day] = byTicker
	}
	if _, seen := byTicker[ticker]; !seen {
		a.expTickerOrder[day] = append(a.expTickerOrder[day], ticker)
	}
	byTicker[ticker] += contracts
}

// merge folds another portfolio's accumulator into a. Buckets are merged
// before any cumulative walk happens.
func (a *accum) merge(b *accum) {
	a.capitalBase = a.capitalBase.Add(b.capitalBase)
	a.capitalInUse = a.capitalInUse.Add(b.capitalInUse)
	a.totalRealized = a.totalRealized.Add(b.totalRealized)
	for ticker, v := range b.collateralByTicker {
		a.collateralByTicker[ticker] = a.collateralByTicker[ticker].Add(v)
	}
	for ticker, v := range b.premiumByTicker {
		a.premiumByTicker[ticker] = a.premiumByTicker[ticker].Add(v)
	}
	for day, order := range b.expTickerOrder {
		for _, ticker := range order {
			a.addExpiration(day, ticker, b.expContracts[day][ticker])
		}
	}
	for day, v := range b.dayRealized {
		a.dayRealized[day] = a.dayRealized[day].Add(v)
	}
}

// exposures turns per-ticker collateral into weights. Account-level weights
// are computed from summed collateral, never averaged across portfolios.
func (a *accum) exposures() []Exposure {
	total := decimal.Zero
	for _, v := range a.collateralByTicker {
		total = total.Add(v)
	}
	out := make([]Exposure, 0, len(a.collateralByTicker))
	for ticker, v := range a.collateralByTicker {
		weight := decimal.Zero
		if total.IsPositive() {
			weight = v.Div(total).Mul(hundred)
		}
		out = append(out, Exposure{Ticker: ticker, Collateral: v, WeightPct: weight})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Collateral.Equal(out[j].Collateral) {
			return out[i].Collateral.GreaterThan(out[j].Collateral)
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

// nextExpiration picks the nearest expiration day on or after today and
// counts contracts expiring within the next 7 days (inclusive). Days
// strictly in the past are excluded entirely.
func (a *accum) nextExpiration(today time.Time) (*NextExpiration, int) {
	var nearest time.Time
	soonCutoff := today.AddDate(0, 0, 7)
	soon := 0
	for day, byTicker := range a.expContracts {
		if day.Before(today) {
			continue
		}
		if nearest.IsZero() || day.Before(nearest) {
			nearest = day
		}
		if !day.After(soonCutoff) {
			for _, n := range byTicker {
				soon += n
			}
		}
	}
	if nearest.IsZero() {
		return nil, soon
	}
	byTicker := a.expContracts[nearest]
	total, top, topN := 0, "", 0
	for _, ticker := range a.expTickerOrder[nearest] {
		n := byTicker[ticker]
		total += n
		if n > topN {
			top, topN = ticker, n
		}
	}
	return &NextExpiration{Date: nearest, Contracts: total, TopTicker: top}, soon
}

func percentUsed(inUse, current decimal.Decimal) decimal.Decimal {
	if !current.IsPositive() {
		return decimal.Zero
	}
	return inUse.Div(current).Mul(hundred)
}
