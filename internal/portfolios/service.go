// Package portfolios owns the portfolio records that anchor capital base,
// trades and share lots.
package portfolios

import (
	"context"
	"errors"
	"strings"

	"github.com/boostmx/wheel-strat-tracker-sub000/internal/domain"
	"github.com/boostmx/wheel-strat-tracker-sub000/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// CreateInput for CreatePortfolio.
type CreateInput struct {
	Name            string
	StartingCapital decimal.Decimal
	Notes           *string
}

func (s *Service) CreatePortfolio(ctx context.Context, userID uuid.UUID, in CreateInput) (*domain.Portfolio, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Portfolio name is required")
	}
	if in.StartingCapital.IsNegative() {
		return nil, apperr.Validation("starting_capital cannot be negative")
	}
	p := &domain.Portfolio{
		UserID:            userID,
		Name:              name,
		StartingCapital:   in.StartingCapital,
		AdditionalCapital: decimal.Zero,
		Notes:             in.Notes,
	}
	if err := s.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, apperr.Internal("Failed to create portfolio", err)
	}
	return p, nil
}

// UpdateInput carries the editable fields. StartingCapital is fixed after
// creation by convention and deliberately not updatable here.
type UpdateInput struct {
	Name              *string
	AdditionalCapital *decimal.Decimal
	Notes             *string
}

func (s *Service) UpdatePortfolio(ctx context.Context, userID, portfolioID uuid.UUID, in UpdateInput) (*domain.Portfolio, error) {
	p, err := s.GetPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("Portfolio name cannot be empty")
		}
		updates["name"] = name
		p.Name = name
	}
	if in.AdditionalCapital != nil {
		updates["additional_capital"] = *in.AdditionalCapital
		p.AdditionalCapital = *in.AdditionalCapital
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
		p.Notes = in.Notes
	}
	if len(updates) == 0 {
		return p, nil
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Portfolio{}).
		Where("portfolio_id = ?", p.PortfolioID).Updates(updates).Error; err != nil {
		return nil, apperr.Internal("Failed to update portfolio", err)
	}
	return p, nil
}

func (s *Service) GetPortfolio(ctx context.Context, userID, portfolioID uuid.UUID) (*domain.Portfolio, error) {
	var p domain.Portfolio
	err := s.DB.WithContext(ctx).
		Where("portfolio_id = ? AND user_id = ?", portfolioID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Portfolio not found")
	}
	if err != nil {
		return nil, apperr.Internal("Failed to load portfolio", err)
	}
	return &p, nil
}

func (s *Service) ListPortfolios(ctx context.Context, userID uuid.UUID) ([]domain.Portfolio, error) {
	var out []domain.Portfolio
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).Order("created_at ASC").Find(&out).Error
	if err != nil {
		return nil, apperr.Internal("Failed to list portfolios", err)
	}
	return out, nil
}

// DeletePortfolio soft-deletes an owned portfolio.
func (s *Service) DeletePortfolio(ctx context.Context, userID, portfolioID uuid.UUID) error {
	p, err := s.GetPortfolio(ctx, userID, portfolioID)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(p).Error; err != nil {
		return apperr.Internal("Failed to delete portfolio", err)
	}
	return nil
}
