package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
)

// StockTakeItemInput is one counted product supplied when opening a take
type StockTakeItemInput struct {
	ProductID       uuid.UUID `json:"product_id" binding:"required"`
	CountedQuantity int64     `json:"counted_quantity" binding:"min=0"`
}

// CreateStockTakeRequest is the input for opening a stock take
type CreateStockTakeRequest struct {
	CompanyID   uuid.UUID            `json:"-"`
	BranchID    uuid.UUID            `json:"branch_id" binding:"required"`
	PerformedBy uuid.UUID            `json:"performed_by" binding:"required"`
	Notes       string               `json:"notes"`
	Items       []StockTakeItemInput `json:"items"`
}

// AddStockTakeItemRequest adds one counted product to an open take
type AddStockTakeItemRequest struct {
	ProductID       uuid.UUID `json:"product_id" binding:"required"`
	CountedQuantity int64     `json:"counted_quantity" binding:"min=0"`
}

// UpdateStockTakeItemRequest replaces the counted quantity of an item
type UpdateStockTakeItemRequest struct {
	CountedQuantity int64 `json:"counted_quantity" binding:"min=0"`
}

// RejectStockTakeRequest carries the reviewer's reason
type RejectStockTakeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// StockTakeItemResponse is the read model for one stock take item
type StockTakeItemResponse struct {
	ID                uuid.UUID                   `json:"id"`
	ProductID         uuid.UUID                   `json:"product_id"`
	ExpectedQuantity  int64                       `json:"expected_quantity"`
	CountedQuantity   int64                       `json:"counted_quantity"`
	AdjustedQuantity  *int64                      `json:"adjusted_quantity,omitempty"`
	Variance          int64                       `json:"variance"`
	MovementBreakdown inventory.MovementBreakdown `json:"movement_breakdown,omitempty"`
	Confirmed         bool                        `json:"confirmed"`
}

// StockTakeResponse is the read model for a stock take
type StockTakeResponse struct {
	ID              uuid.UUID               `json:"id"`
	CompanyID       uuid.UUID               `json:"company_id"`
	BranchID        uuid.UUID               `json:"branch_id"`
	ReferenceNumber string                  `json:"reference_number"`
	Status          inventory.StockTakeStatus `json:"status"`
	StartedAt       time.Time               `json:"started_at"`
	EndedAt         *time.Time              `json:"ended_at,omitempty"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
	PerformedBy     uuid.UUID               `json:"performed_by"`
	ApprovedBy      *uuid.UUID              `json:"approved_by,omitempty"`
	RejectedBy      *uuid.UUID              `json:"rejected_by,omitempty"`
	RejectionReason string                  `json:"rejection_reason,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	TotalCounted    int64                   `json:"total_counted"`
	Items           []StockTakeItemResponse `json:"items"`
}

// ToStockTakeItemResponse converts an item to its response DTO
func ToStockTakeItemResponse(item *inventory.StockTakeItem) StockTakeItemResponse {
	return StockTakeItemResponse{
		ID:                item.ID,
		ProductID:         item.ProductID,
		ExpectedQuantity:  item.ExpectedQuantity,
		CountedQuantity:   item.CountedQuantity,
		AdjustedQuantity:  item.AdjustedQuantity,
		Variance:          item.Variance(),
		MovementBreakdown: item.MovementBreakdown,
		Confirmed:         item.Confirmed,
	}
}

// ToStockTakeResponse converts a stock take to its response DTO
func ToStockTakeResponse(st *inventory.StockTake) StockTakeResponse {
	items := make([]StockTakeItemResponse, len(st.Items))
	for i := range st.Items {
		items[i] = ToStockTakeItemResponse(&st.Items[i])
	}
	return StockTakeResponse{
		ID:              st.ID,
		CompanyID:       st.CompanyID,
		BranchID:        st.BranchID,
		ReferenceNumber: st.ReferenceNumber,
		Status:          st.Status,
		StartedAt:       st.StartedAt,
		EndedAt:         st.EndedAt,
		CompletedAt:     st.CompletedAt,
		PerformedBy:     st.PerformedBy,
		ApprovedBy:      st.ApprovedBy,
		RejectedBy:      st.RejectedBy,
		RejectionReason: st.RejectionReason,
		Notes:           st.Notes,
		TotalCounted:    st.TotalCounted,
		Items:           items,
	}
}

// ItemReconciliation is the computed outcome for one item: the counted
// quantity corrected by the movements that happened during the count
// window, and the variance against the ledger
type ItemReconciliation struct {
	ProductID        uuid.UUID                   `json:"product_id"`
	ExpectedQuantity int64                       `json:"expected_quantity"`
	CountedQuantity  int64                       `json:"counted_quantity"`
	SystemQuantity   int64                       `json:"system_quantity"`
	NetMovementDelta int64                       `json:"net_movement_delta"`
	AdjustedQuantity int64                       `json:"adjusted_quantity"`
	Variance         int64                       `json:"variance"`
	Breakdown        inventory.MovementBreakdown `json:"movement_breakdown,omitempty"`
}

// ReconciliationResult summarizes a reconciliation run or preview
type ReconciliationResult struct {
	StockTakeID     uuid.UUID            `json:"stock_take_id"`
	ReferenceNumber string               `json:"reference_number"`
	WindowStart     time.Time            `json:"window_start"`
	WindowEnd       time.Time            `json:"window_end"`
	Items           []ItemReconciliation `json:"items"`
	TotalVariance   int64                `json:"total_variance"`
}
