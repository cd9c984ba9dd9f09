package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Portfolio groups trades and share lots under one capital base.
// StartingCapital is fixed at creation by convention; AdditionalCapital is
// the running net of deposits and withdrawals and stays editable.
type Portfolio struct {
	PortfolioID       uuid.UUID       `gorm:"column:portfolio_id;type:uuid;primaryKey" json:"portfolio_id"`
	UserID            uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Name              string          `gorm:"column:name;not null" json:"name"`
	StartingCapital   decimal.Decimal `gorm:"column:starting_capital;type:decimal(18,4);not null;default:0" json:"starting_capital"`
	AdditionalCapital decimal.Decimal `gorm:"column:additional_capital;type:decimal(18,4);not null;default:0" json:"additional_capital"`
	Notes             *string         `gorm:"column:notes" json:"notes"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Portfolio) TableName() string {
	return "portfolios"
}

func (p *Portfolio) BeforeCreate(tx *gorm.DB) error {
	if p.PortfolioID == uuid.Nil {
		p.PortfolioID = uuid.New()
	}
	return nil
}

// CapitalBase is starting capital plus cumulative net deposits.
func (p *Portfolio) CapitalBase() decimal.Decimal {
	return p.StartingCapital.Add(p.AdditionalCapital)
}
