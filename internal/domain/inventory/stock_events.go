package inventory

import (
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
)

// Aggregate type constant for StockLevel
const AggregateTypeStockLevel = "StockLevel"

// Stock level event type constants
const (
	EventTypeStockAdjusted          = "StockAdjusted"
	EventTypeStockBelowReorderLevel = "StockBelowReorderLevel"
)

// StockAdjustedEvent is raised when the ledger quantity of a product at
// a branch changes
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	StockLevelID    uuid.UUID    `json:"stock_level_id"`
	BranchID        uuid.UUID    `json:"branch_id"`
	ProductID       uuid.UUID    `json:"product_id"`
	MovementType    MovementType `json:"movement_type"`
	QuantityBefore  int64        `json:"quantity_before"`
	QuantityAfter   int64        `json:"quantity_after"`
	ReferenceNumber string       `json:"reference_number"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(level *StockLevel, movement *StockMovement, before int64) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeStockLevel, level.ID, level.CompanyID),
		StockLevelID:    level.ID,
		BranchID:        level.BranchID,
		ProductID:       level.ProductID,
		MovementType:    movement.MovementType,
		QuantityBefore:  before,
		QuantityAfter:   level.Quantity,
		ReferenceNumber: movement.ReferenceNumber,
	}
}

// EventType returns the event type name
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}

// StockBelowReorderLevelEvent is raised when an adjustment drops the
// quantity below the configured reorder level
type StockBelowReorderLevelEvent struct {
	shared.BaseDomainEvent
	StockLevelID    uuid.UUID `json:"stock_level_id"`
	BranchID        uuid.UUID `json:"branch_id"`
	ProductID       uuid.UUID `json:"product_id"`
	Quantity        int64     `json:"quantity"`
	ReorderLevel    int64     `json:"reorder_level"`
	ReorderQuantity int64     `json:"reorder_quantity"`
}

// NewStockBelowReorderLevelEvent creates a new StockBelowReorderLevelEvent
func NewStockBelowReorderLevelEvent(level *StockLevel) *StockBelowReorderLevelEvent {
	return &StockBelowReorderLevelEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockBelowReorderLevel, AggregateTypeStockLevel, level.ID, level.CompanyID),
		StockLevelID:    level.ID,
		BranchID:        level.BranchID,
		ProductID:       level.ProductID,
		Quantity:        level.Quantity,
		ReorderLevel:    level.ReorderLevel,
		ReorderQuantity: level.ReorderQuantity,
	}
}

// EventType returns the event type name
func (e *StockBelowReorderLevelEvent) EventType() string {
	return EventTypeStockBelowReorderLevel
}
