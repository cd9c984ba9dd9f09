package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func setupMetricsTest(t *testing.T) (*Service, *gorm.DB, uuid.UUID) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Portfolio{}, &domain.Trade{},
		&domain.TradeEvent{}, &domain.ShareLot{}, &domain.ShareLotSale{},
	))
	user := &domain.User{Fullname: "Test User", Email: "test@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return &Service{DB: db}, db, user.UserID
}

func newPortfolio(t *testing.T, db *gorm.DB, userID uuid.UUID, name, starting string) *domain.Portfolio {
	t.Helper()
	p := &domain.Portfolio{UserID: userID, Name: name, StartingCapital: dec(starting)}
	require.NoError(t, db.Create(p).Error)
	return p
}

func openTrade(t *testing.T, db *gorm.DB, p *domain.Portfolio, tradeType domain.TradeType, ticker, strike string, contracts int, price string, expiration time.Time) *domain.Trade {
	t.Helper()
	trade := &domain.Trade{
		PortfolioID:      p.PortfolioID,
		Ticker:           ticker,
		Type:             tradeType,
		Status:           domain.TradeStatusOpen,
		StrikePrice:      dec(strike),
		ExpirationDate:   expiration,
		ContractsInitial: contracts,
		ContractsOpen:    contracts,
		ContractPrice:    dec(price),
	}
	require.NoError(t, db.Create(trade).Error)
	return trade
}

func closedTrade(t *testing.T, db *gorm.DB, p *domain.Portfolio, premium string, closedAt time.Time) *domain.Trade {
	t.Helper()
	trade := &domain.Trade{
		PortfolioID:      p.PortfolioID,
		Ticker:           "AAPL",
		Type:             domain.TradeTypeCashSecuredPut,
		Status:           domain.TradeStatusClosed,
		StrikePrice:      dec("180"),
		ExpirationDate:   closedAt.AddDate(0, 0, 30),
		ContractsInitial: 1,
		ContractsOpen:    0,
		ContractPrice:    dec("2.00"),
		ClosingPrice:     decimal.NewNullDecimal(dec("0.50")),
		PremiumCaptured:  decimal.NewNullDecimal(dec(premium)),
		ClosedAt:         &closedAt,
	}
	require.NoError(t, db.Create(trade).Error)
	return trade
}

func TestSnapshot_CapitalFigures(t *testing.T) {
	svc, db, userID := setupMetricsTest(t)
	p := newPortfolio(t, db, userID, "Wheel", "50000")
	p.AdditionalCapital = dec("10000")
	require.NoError(t, db.Save(p).Error)

	exp := time.Now().UTC().AddDate(0, 0, 21)
	// only the cash-secured put locks collateral
	openTrade(t, db, p, domain.TradeTypeCashSecuredPut, "AAPL", "180", 1, "2.60", exp)
	openTrade(t, db, p, domain.TradeTypeCoveredCall, "AAPL", "190", 1, "1.50", exp)
	openTrade(t, db, p, domain.TradeTypePut, "MSFT", "300", 1, "3.00", exp)
	closedTrade(t, db, p, "510", time.Now().UTC())

	snap, err := svc.GetPortfolioSnapshot(context.Background(), userID, p.PortfolioID)
	require.NoError(t, err)

	assert.True(t, dec("60000").Equal(snap.CapitalBase))
	assert.True(t, dec("510").Equal(snap.TotalRealized))
	assert.True(t, dec("60510").Equal(snap.CurrentCapital))
	assert.True(t, dec("18000").Equal(snap.CapitalInUse))
	// cashAvailable = currentCapital - capitalInUse, always
	assert.True(t, snap.CashAvailable.Equal(snap.CurrentCapital.Sub(snap.CapitalInUse)))
	assert.True(t, snap.PercentUsed.Sub(dec("29.747")).Abs().LessThan(dec("0.01")))
}

func TestSnapshot_Exposures(t *testing.T) {
	svc, db, userID := setupMetricsTest(t)
	p := newPortfolio(t, db, userID, "Wheel", "100000")

	exp := time.Now().UTC().AddDate(0, 0, 21)
	openTrade(t, db, p, domain.TradeTypeCashSecuredPut, "AAPL", "180", 1, "2.60", exp) // 18000
	openTrade(t, db, p, domain.TradeTypeCashSecuredPut, "MSFT", "180", 2, "2.00", exp) // 36000

	snap, err := svc.GetPortfolioSnapshot(context.Background(), userID, p.PortfolioID)
	require.NoError(t, err)

	require.Len(t, snap.Exposures, 2)
	// sorted by collateral descending
	assert.Equal(t, "MSFT", snap.Exposures[0].Ticker)
	assert.True(t, dec("36000").Equal(snap.Exposures[0].Collateral))
	assert.True(t, snap.Exposures[0].WeightPct.Sub(dec("66.6666")).Abs().LessThan(dec("0.001")))
	assert.Equal(t, "AAPL", snap.Exposures[1].Ticker)
	assert.True(t, snap.Exposures[1].WeightPct.Sub(dec("33.3333")).Abs().LessThan(dec("0.001")))

	// open-trade premium notional per ticker
	assert.True(t, dec("260").Equal(snap.PremiumByTicker["AAPL"]))
	assert.True(t, dec("400").Equal(snap.PremiumByTicker["MSFT"]))
}

func TestSnapshot_NextExpiration(t *testing.T) {
	svc, db, userID := setupMetricsTest(t)
	p := newPortfolio(t, db, userID, "Wheel", "100000")

	now := time.Now().UTC()
	// already expired, must not be picked
	openTrade(t, db, p, domain.TradeTypeCashSecuredPut, "OLD", "100", 5, "1.00", now.AddDate(0, 0, -3))
	openTrade(t, db, p, domain.TradeTypeCashSecuredPut, "AAPL", "180", 3, "2.00", now.AddDate(0, 0, 3))
	openTrade(t, db, p, domain.TradeTypeCoveredCall, "MSFT", "300", 1, "1.00", now.AddDate(0, 0, 3))
	openTrade(t, db, p, domain.TradeTypeCashSecuredPut, "NVDA", "500", 2, "4.00", now.AddDate(0, 0, 20))

	snap, err := svc.GetPortfolioSnapshot(context.Background(), userID, p.PortfolioID)
	require.NoError(t, err)

	require.NotNil(t, snap.NextExpiration)
	assert.Equal(t, utcDay(now.AddDate(0, 0, 3)), snap.NextExpiration.Date)
	assert.Equal(t, 4, snap.NextExpiration.Contracts)
	assert.Equal(t, "AAPL", snap.NextExpiration.TopTicker)
	// within 7 days: the 4 contracts on day +3; day +20 and the past are out
	assert.Equal(t, 4, snap.ExpiringSoonCount)
}

func TestSnapshot_Series(t *testing.T) {
	svc, db, userID := setupMetricsTest(t)
	p := newPortfolio(t, db, userID, "Wheel", "100000")

	now := time.Now().UTC()
	closedTrade(t, db, p, "100", now)
	closedTrade(t, db, p, "50", now.AddDate(0, 0, -2))

	snap, err := svc.GetPortfolioSnapshot(context.Background(), userID, p.PortfolioID)
	require.NoError(t, err)

	// trailing-90 covers exactly 90 calendar days ending today
	require.Len(t, snap.PnlTrailing90, 90)
	last := snap.PnlTrailing90[len(snap.PnlTrailing90)-1]
	assert.Equal(t, utcDay(now).Format("2006-01-02"), last.Period)
	assert.True(t, dec("100").Equal(last.Realized))
	assert.True(t, dec("150").Equal(last.Cumulative))

	// MTD runs from the 1st through today, one point per day
	assert.Len(t, snap.PnlMonthToDate, now.Day())
	mtdLast := snap.PnlMonthToDate[len(snap.PnlMonthToDate)-1]
	assert.True(t, mtdLast.Cumulative.Equal(snap.RealizedMTD))

	// YTD is monthly, one point per elapsed month
	assert.Len(t, snap.PnlYearToDate, int(now.Month()))
	ytdLast := snap.PnlYearToDate[len(snap.PnlYearToDate)-1]
	assert.Equal(t, now.Format("2006-01"), ytdLast.Period)
}

// A closed row that never got a close timestamp still counts toward the
// realized total; only the day-bucketed series and windows skip it.
func TestSnapshot_ClosedTradeWithoutCloseTimestamp(t *testing.T) {
	svc, db, userID := setupMetricsTest(t)
	p := newPortfolio(t, db, userID, "Wheel", "100000")

	now := time.Now().UTC()
	closedTrade(t, db, p, "100", now)
	unstamped := &domain.Trade{
		PortfolioID:      p.PortfolioID,
		Ticker:           "AAPL",
		Type:             domain.TradeTypeCashSecuredPut,
		Status:           domain.TradeStatusClosed,
		StrikePrice:      dec("180"),
		ExpirationDate:   now.AddDate(0, 0, 30),
		ContractsInitial: 1,
		ContractsOpen:    0,
		ContractPrice:    dec("2.00"),
		PremiumCaptured:  decimal.NewNullDecimal(dec("50")),
	}
	require.NoError(t, db.Create(unstamped).Error)

	snap, err := svc.GetPortfolioSnapshot(context.Background(), userID, p.PortfolioID)
	require.NoError(t, err)

	assert.True(t, dec("150").Equal(snap.TotalRealized), "total = %s", snap.TotalRealized)
	assert.True(t, dec("100150").Equal(snap.CurrentCapital))
	// windows only see timestamped rows
	assert.True(t, dec("100").Equal(snap.RealizedMTD))
	last := snap.PnlTrailing90[len(snap.PnlTrailing90)-1]
	assert.True(t, dec("100").Equal(last.Cumulative))
}

func TestSnapshot_NotFoundForOtherUser(t *testing.T) {
	svc, db, userID := setupMetricsTest(t)
	p := newPortfolio(t, db, userID, "Wheel", "100000")

	other := &domain.User{Fullname: "Other", Email: "other@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(other).Error)

	_, err := svc.GetPortfolioSnapshot(context.Background(), other.UserID, p.PortfolioID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPercentUsed_ZeroWhenCapitalGone(t *testing.T) {
	assert.True(t, percentUsed(dec("18000"), decimal.Zero).IsZero())
	assert.True(t, percentUsed(dec("18000"), dec("-100")).IsZero())
	assert.True(t, dec("50").Equal(percentUsed(dec("9000"), dec("18000"))))
}

// Two portfolios realizing $100 each on the same day must show one $200
// day in the account series: buckets merge before the cumulative walk.
func TestAccountSummary_MergesDayBuckets(t *testing.T) {
	svc, db, userID := setupMetricsTest(t)
	a := newPortfolio(t, db, userID, "A", "50000")
	b := newPortfolio(t, db, userID, "B", "30000")

	now := time.Now().UTC()
	closedTrade(t, db, a, "100", now)
	closedTrade(t, db, b, "100", now)

	summary, err := svc.GetAccountSummary(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, summary.PerPortfolio, 2)
	assert.True(t, dec("80000").Equal(summary.Totals.CapitalBase))
	assert.True(t, dec("200").Equal(summary.Totals.TotalRealized))
	assert.True(t, dec("80200").Equal(summary.Totals.CurrentCapital))
	assert.True(t, dec("200").Equal(summary.Totals.RealizedMTD))

	last := summary.PnlMonthToDate[len(summary.PnlMonthToDate)-1]
	assert.True(t, dec("200").Equal(last.Realized), "today's bucket = %s", last.Realized)
	assert.True(t, dec("200").Equal(last.Cumulative))
}

func TestAccountSummary_SumsExposuresAcrossPortfolios(t *testing.T) {
	svc, db, userID := setupMetricsTest(t)
	a := newPortfolio(t, db, userID, "A", "50000")
	b := newPortfolio(t, db, userID, "B", "50000")

	exp := time.Now().UTC().AddDate(0, 0, 21)
	openTrade(t, db, a, domain.TradeTypeCashSecuredPut, "AAPL", "180", 1, "2.00", exp)
	openTrade(t, db, b, domain.TradeTypeCashSecuredPut, "AAPL", "180", 1, "2.00", exp)
	openTrade(t, db, b, domain.TradeTypeCashSecuredPut, "MSFT", "90", 1, "1.00", exp)

	summary, err := svc.GetAccountSummary(context.Background(), userID)
	require.NoError(t, err)

	require.Len(t, summary.Exposures, 2)
	assert.Equal(t, "AAPL", summary.Exposures[0].Ticker)
	assert.True(t, dec("36000").Equal(summary.Exposures[0].Collateral))
	// weight from summed collateral: 36000 / 45000
	assert.True(t, summary.Exposures[0].WeightPct.Equal(dec("80")))
	assert.True(t, dec("45000").Equal(summary.Totals.CapitalInUse))

	require.NotNil(t, summary.NextExpiration)
	assert.Equal(t, 3, summary.NextExpiration.Contracts)
	assert.Equal(t, "AAPL", summary.NextExpiration.TopTicker)
}

func TestAccountSummary_Empty(t *testing.T) {
	svc, _, userID := setupMetricsTest(t)

	summary, err := svc.GetAccountSummary(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, summary.PerPortfolio)
	assert.True(t, summary.Totals.CapitalBase.IsZero())
	assert.Nil(t, summary.NextExpiration)
	assert.True(t, summary.Totals.PercentUsed.IsZero())
}
