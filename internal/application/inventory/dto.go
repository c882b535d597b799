package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// ManualAdjustmentRequest is the input for a manual stock correction.
// Delta is signed: positive adds stock, negative removes it.
type ManualAdjustmentRequest struct {
	CompanyID   uuid.UUID       `json:"-"`
	BranchID    uuid.UUID       `json:"branch_id" binding:"required"`
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	Delta       int64           `json:"delta" binding:"required"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Reason      string          `json:"reason" binding:"required"`
	PerformedBy *uuid.UUID      `json:"performed_by"`
}

// WriteOffRequest is the input for writing stock off as damage,
// shrinkage, or a general write-off
type WriteOffRequest struct {
	CompanyID    uuid.UUID              `json:"-"`
	BranchID     uuid.UUID              `json:"branch_id" binding:"required"`
	ProductID    uuid.UUID              `json:"product_id" binding:"required"`
	Quantity     int64                  `json:"quantity" binding:"required,gt=0"`
	MovementType inventory.MovementType `json:"movement_type"`
	UnitCost     decimal.Decimal        `json:"unit_cost"`
	Reason       string                 `json:"reason" binding:"required"`
	PerformedBy  *uuid.UUID             `json:"performed_by"`
}

// StockLevelResponse is the read model for one stock level row
type StockLevelResponse struct {
	ID              uuid.UUID `json:"id"`
	CompanyID       uuid.UUID `json:"company_id"`
	BranchID        uuid.UUID `json:"branch_id"`
	ProductID       uuid.UUID `json:"product_id"`
	Quantity        int64     `json:"quantity"`
	ReorderLevel    int64     `json:"reorder_level"`
	ReorderQuantity int64     `json:"reorder_quantity"`
	BelowReorder    bool      `json:"below_reorder"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToStockLevelResponse converts a stock level to its response DTO
func ToStockLevelResponse(level *inventory.StockLevel) StockLevelResponse {
	return StockLevelResponse{
		ID:              level.ID,
		CompanyID:       level.CompanyID,
		BranchID:        level.BranchID,
		ProductID:       level.ProductID,
		Quantity:        level.Quantity,
		ReorderLevel:    level.ReorderLevel,
		ReorderQuantity: level.ReorderQuantity,
		BelowReorder:    level.IsBelowReorderLevel(),
		UpdatedAt:       level.UpdatedAt,
	}
}

// StockMovementResponse is the read model for one movement record
type StockMovementResponse struct {
	ID              uuid.UUID               `json:"id"`
	CompanyID       uuid.UUID               `json:"company_id"`
	BranchID        uuid.UUID               `json:"branch_id"`
	ProductID       uuid.UUID               `json:"product_id"`
	MovementType    inventory.MovementType  `json:"movement_type"`
	Quantity        int64                   `json:"quantity"`
	SignedQuantity  int64                   `json:"signed_quantity"`
	QuantityBefore  *int64                  `json:"quantity_before,omitempty"`
	QuantityAfter   *int64                  `json:"quantity_after,omitempty"`
	UnitCost        decimal.Decimal         `json:"unit_cost"`
	TotalCost       decimal.Decimal         `json:"total_cost"`
	ReferenceNumber string                  `json:"reference_number"`
	DocumentType    *inventory.DocumentType `json:"document_type,omitempty"`
	DocumentID      *uuid.UUID              `json:"document_id,omitempty"`
	Reason          string                  `json:"reason,omitempty"`
	MovementDate    time.Time               `json:"movement_date"`
}

// ToStockMovementResponse converts a movement to its response DTO
func ToStockMovementResponse(m *inventory.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		ID:              m.ID,
		CompanyID:       m.CompanyID,
		BranchID:        m.BranchID,
		ProductID:       m.ProductID,
		MovementType:    m.MovementType,
		Quantity:        m.Quantity,
		SignedQuantity:  m.SignedQuantity(),
		QuantityBefore:  m.QuantityBefore,
		QuantityAfter:   m.QuantityAfter,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		ReferenceNumber: m.ReferenceNumber,
		DocumentType:    m.DocumentType,
		DocumentID:      m.DocumentID,
		Reason:          m.Reason,
		MovementDate:    m.MovementDate,
	}
}
