package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TradeEventOpened          = "OPENED"
	TradeEventSizeIncreased   = "SIZE_INCREASED"
	TradeEventPartiallyClosed = "PARTIALLY_CLOSED"
	TradeEventClosed          = "CLOSED"
)

// TradeEvent is an append-only lifecycle record written in the same
// transaction as the mutation it describes. The engines never read it back.
type TradeEvent struct {
	EventID     uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	TradeID     uuid.UUID      `gorm:"column:trade_id;type:uuid;not null;index" json:"trade_id"`
	PortfolioID uuid.UUID      `gorm:"column:portfolio_id;type:uuid;not null;index" json:"portfolio_id"`
	EventType   string         `gorm:"column:event_type;type:varchar(20);not null" json:"event_type"`
	EventData   datatypes.JSON `gorm:"column:event_data" json:"event_data"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (TradeEvent) TableName() string {
	return "trade_events"
}

func (e *TradeEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
