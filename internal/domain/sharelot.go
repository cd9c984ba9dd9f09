package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ShareLotStatusOpen   = "OPEN"
	ShareLotStatusClosed = "CLOSED"
)

// ShareLot is a block of underlying shares held at an average cost. Open
// covered calls written against the lot reserve shares (100 per contract)
// without changing Shares or AvgCost; closing such a call folds the captured
// premium into AvgCost instead of booking it as option P&L.
type ShareLot struct {
	LotID       uuid.UUID           `gorm:"column:lot_id;type:uuid;primaryKey" json:"lot_id"`
	PortfolioID uuid.UUID           `gorm:"column:portfolio_id;type:uuid;not null;index" json:"portfolio_id"`
	Ticker      string              `gorm:"column:ticker;type:varchar(12);not null;index" json:"ticker"`
	Shares      int                 `gorm:"column:shares;not null" json:"shares"`
	AvgCost     decimal.Decimal     `gorm:"column:avg_cost;type:decimal(18,4);not null" json:"avg_cost"`
	Status      string              `gorm:"column:status;type:varchar(10);not null;default:OPEN;index" json:"status"`
	ClosePrice  decimal.NullDecimal `gorm:"column:close_price;type:decimal(18,4)" json:"close_price"`
	RealizedPnl decimal.Decimal     `gorm:"column:realized_pnl;type:decimal(18,4);not null;default:0" json:"realized_pnl"`
	ClosedAt    *time.Time          `gorm:"column:closed_at" json:"closed_at"`
	Notes       *string             `gorm:"column:notes" json:"notes"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func (ShareLot) TableName() string {
	return "share_lots"
}

func (l *ShareLot) BeforeCreate(tx *gorm.DB) error {
	if l.LotID == uuid.Nil {
		l.LotID = uuid.New()
	}
	return nil
}

// ShareLotSale is an append-only ledger row for one sale against a lot.
// Never mutated after creation.
type ShareLotSale struct {
	SaleID      uuid.UUID       `gorm:"column:sale_id;type:uuid;primaryKey" json:"sale_id"`
	LotID       uuid.UUID       `gorm:"column:lot_id;type:uuid;not null;index" json:"lot_id"`
	SharesSold  int             `gorm:"column:shares_sold;not null" json:"shares_sold"`
	SalePrice   decimal.Decimal `gorm:"column:sale_price;type:decimal(18,4);not null" json:"sale_price"`
	Fees        decimal.Decimal `gorm:"column:fees;type:decimal(18,4);not null;default:0" json:"fees"`
	RealizedPnl decimal.Decimal `gorm:"column:realized_pnl;type:decimal(18,4);not null" json:"realized_pnl"`
	Notes       *string         `gorm:"column:notes" json:"notes"`
	Source      string          `gorm:"column:source;type:varchar(20);not null;default:manual_sale" json:"source"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (ShareLotSale) TableName() string {
	return "share_lot_sales"
}

func (s *ShareLotSale) BeforeCreate(tx *gorm.DB) error {
	if s.SaleID == uuid.Nil {
		s.SaleID = uuid.New()
	}
	return nil
}
