package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradeType is the option position kind. CashSecuredPut and CoveredCall are
// short (premium collected up front); Put and Call are plain long options.
type TradeType string

const (
	TradeTypeCashSecuredPut TradeType = "CashSecuredPut"
	TradeTypeCoveredCall    TradeType = "CoveredCall"
	TradeTypePut            TradeType = "Put"
	TradeTypeCall           TradeType = "Call"
)

// Valid reports whether t is one of the four known trade types.
func (t TradeType) Valid() bool {
	switch t {
	case TradeTypeCashSecuredPut, TradeTypeCoveredCall, TradeTypePut, TradeTypeCall:
		return true
	}
	return false
}

// IsShort reports whether the position collects premium at open.
// Unknown types price as short; the validation layer rejects them before
// they can reach storage, so this branch is a backstop.
func (t TradeType) IsShort() bool {
	switch t {
	case TradeTypePut, TradeTypeCall:
		return false
	}
	return true
}

const (
	TradeStatusOpen   = "open"
	TradeStatusClosed = "closed"
)

// Trade is one option position row. A partial close reduces ContractsOpen on
// this row and inserts a sibling closed row (ParentTradeID set) carrying the
// closed leg's realized figures; a full close closes the row in place.
type Trade struct {
	TradeID          uuid.UUID           `gorm:"column:trade_id;type:uuid;primaryKey" json:"trade_id"`
	PortfolioID      uuid.UUID           `gorm:"column:portfolio_id;type:uuid;not null;index" json:"portfolio_id"`
	ShareLotID       *uuid.UUID          `gorm:"column:share_lot_id;type:uuid;index" json:"share_lot_id"`
	ParentTradeID    *uuid.UUID          `gorm:"column:parent_trade_id;type:uuid;index" json:"parent_trade_id"`
	Ticker           string              `gorm:"column:ticker;type:varchar(12);not null;index" json:"ticker"`
	Type             TradeType           `gorm:"column:type;type:varchar(20);not null" json:"type"`
	StrikePrice      decimal.Decimal     `gorm:"column:strike_price;type:decimal(18,4);not null" json:"strike_price"`
	ExpirationDate   time.Time           `gorm:"column:expiration_date;not null" json:"expiration_date"`
	ContractsInitial int                 `gorm:"column:contracts_initial;not null" json:"contracts_initial"`
	ContractsOpen    int                 `gorm:"column:contracts_open;not null" json:"contracts_open"`
	ContractPrice    decimal.Decimal     `gorm:"column:contract_price;type:decimal(18,4);not null" json:"contract_price"`
	EntryPrice       decimal.Decimal     `gorm:"column:entry_price;type:decimal(18,4);not null" json:"entry_price"`
	Status           string              `gorm:"column:status;type:varchar(10);not null;default:open;index" json:"status"`
	ClosingPrice     decimal.NullDecimal `gorm:"column:closing_price;type:decimal(18,4)" json:"closing_price"`
	PremiumCaptured  decimal.NullDecimal `gorm:"column:premium_captured;type:decimal(18,4)" json:"premium_captured"`
	PercentPL        decimal.NullDecimal `gorm:"column:percent_pl;type:decimal(12,4)" json:"percent_pl"`
	ClosedAt         *time.Time          `gorm:"column:closed_at" json:"closed_at"`
	Notes            *string             `gorm:"column:notes" json:"notes"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

func (Trade) TableName() string {
	return "trades"
}

func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.TradeID == uuid.Nil {
		t.TradeID = uuid.New()
	}
	return nil
}
