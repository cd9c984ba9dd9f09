package portfolios

import (
	"context"
	"testing"

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

func setupPortfolioTest(t *testing.T) (*Service, *gorm.DB, uuid.UUID) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Portfolio{}))
	user := &domain.User{Fullname: "Test User", Email: "test@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return &Service{DB: db}, db, user.UserID
}

func TestCreatePortfolio(t *testing.T) {
	svc, _, userID := setupPortfolioTest(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, userID, CreateInput{Name: "  Wheel  ", StartingCapital: dec("50000")})
	require.NoError(t, err)
	assert.Equal(t, "Wheel", p.Name)
	assert.True(t, dec("50000").Equal(p.StartingCapital))
	assert.True(t, p.AdditionalCapital.IsZero())
	assert.True(t, dec("50000").Equal(p.CapitalBase()))

	_, err = svc.CreatePortfolio(ctx, userID, CreateInput{Name: "   ", StartingCapital: dec("1")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.CreatePortfolio(ctx, userID, CreateInput{Name: "X", StartingCapital: dec("-1")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdatePortfolio(t *testing.T) {
	svc, db, userID := setupPortfolioTest(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, userID, CreateInput{Name: "Wheel", StartingCapital: dec("50000")})
	require.NoError(t, err)

	name := "Income Wheel"
	add := dec("10000")
	updated, err := svc.UpdatePortfolio(ctx, userID, p.PortfolioID, UpdateInput{Name: &name, AdditionalCapital: &add})
	require.NoError(t, err)
	assert.Equal(t, "Income Wheel", updated.Name)
	assert.True(t, dec("60000").Equal(updated.CapitalBase()))

	var stored domain.Portfolio
	require.NoError(t, db.First(&stored, "portfolio_id = ?", p.PortfolioID).Error)
	assert.Equal(t, "Income Wheel", stored.Name)
	// starting capital is fixed after creation
	assert.True(t, dec("50000").Equal(stored.StartingCapital))

	empty := " "
	_, err = svc.UpdatePortfolio(ctx, userID, p.PortfolioID, UpdateInput{Name: &empty})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestListPortfolios_ScopedToUser(t *testing.T) {
	svc, db, userID := setupPortfolioTest(t)
	ctx := context.Background()

	_, err := svc.CreatePortfolio(ctx, userID, CreateInput{Name: "A", StartingCapital: dec("1000")})
	require.NoError(t, err)
	_, err = svc.CreatePortfolio(ctx, userID, CreateInput{Name: "B", StartingCapital: dec("2000")})
	require.NoError(t, err)

	other := &domain.User{Fullname: "Other", Email: "other@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(other).Error)

	mine, err := svc.ListPortfolios(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := svc.ListPortfolios(ctx, other.UserID)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestDeletePortfolio(t *testing.T) {
	svc, db, userID := setupPortfolioTest(t)
	ctx := context.Background()

	p, err := svc.CreatePortfolio(ctx, userID, CreateInput{Name: "Wheel", StartingCapital: dec("50000")})
	require.NoError(t, err)

	require.NoError(t, svc.DeletePortfolio(ctx, userID, p.PortfolioID))

	_, err = svc.GetPortfolio(ctx, userID, p.PortfolioID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// soft delete keeps the row
	var count int64
	require.NoError(t, db.Unscoped().Model(&domain.Portfolio{}).
		Where("portfolio_id = ?", p.PortfolioID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	err = svc.DeletePortfolio(ctx, uuid.New(), p.PortfolioID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
