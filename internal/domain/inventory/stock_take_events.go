package inventory

import (
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
)

// Aggregate type constant for StockTake
const AggregateTypeStockTake = "StockTake"

// StockTake event type constants
const (
	EventTypeStockTakeCreated   = "StockTakeCreated"
	EventTypeStockTakeApproved  = "StockTakeApproved"
	EventTypeStockTakeRejected  = "StockTakeRejected"
	EventTypeStockTakeCancelled = "StockTakeCancelled"
	EventTypeStockTakeCompleted = "StockTakeCompleted"
)

// StockTakeCreatedEvent is raised when a stock take is opened
type StockTakeCreatedEvent struct {
	shared.BaseDomainEvent
	StockTakeID     uuid.UUID `json:"stock_take_id"`
	ReferenceNumber string    `json:"reference_number"`
	BranchID        uuid.UUID `json:"branch_id"`
	PerformedBy     uuid.UUID `json:"performed_by"`
}

// NewStockTakeCreatedEvent creates a new StockTakeCreatedEvent
func NewStockTakeCreatedEvent(st *StockTake) *StockTakeCreatedEvent {
	return &StockTakeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeCreated, AggregateTypeStockTake, st.ID, st.CompanyID),
		StockTakeID:     st.ID,
		ReferenceNumber: st.ReferenceNumber,
		BranchID:        st.BranchID,
		PerformedBy:     st.PerformedBy,
	}
}

// EventType returns the event type name
func (e *StockTakeCreatedEvent) EventType() string {
	return EventTypeStockTakeCreated
}

// StockTakeApprovedEvent is raised when a stock take is approved
type StockTakeApprovedEvent struct {
	shared.BaseDomainEvent
	StockTakeID     uuid.UUID `json:"stock_take_id"`
	ReferenceNumber string    `json:"reference_number"`
	BranchID        uuid.UUID `json:"branch_id"`
	ApprovedBy      uuid.UUID `json:"approved_by"`
}

// NewStockTakeApprovedEvent creates a new StockTakeApprovedEvent
func NewStockTakeApprovedEvent(st *StockTake) *StockTakeApprovedEvent {
	var approvedBy uuid.UUID
	if st.ApprovedBy != nil {
		approvedBy = *st.ApprovedBy
	}
	return &StockTakeApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeApproved, AggregateTypeStockTake, st.ID, st.CompanyID),
		StockTakeID:     st.ID,
		ReferenceNumber: st.ReferenceNumber,
		BranchID:        st.BranchID,
		ApprovedBy:      approvedBy,
	}
}

// EventType returns the event type name
func (e *StockTakeApprovedEvent) EventType() string {
	return EventTypeStockTakeApproved
}

// StockTakeRejectedEvent is raised when a stock take is rejected
type StockTakeRejectedEvent struct {
	shared.BaseDomainEvent
	StockTakeID     uuid.UUID `json:"stock_take_id"`
	ReferenceNumber string    `json:"reference_number"`
	BranchID        uuid.UUID `json:"branch_id"`
	RejectedBy      uuid.UUID `json:"rejected_by"`
	Reason          string    `json:"reason"`
}

// NewStockTakeRejectedEvent creates a new StockTakeRejectedEvent
func NewStockTakeRejectedEvent(st *StockTake) *StockTakeRejectedEvent {
	var rejectedBy uuid.UUID
	if st.RejectedBy != nil {
		rejectedBy = *st.RejectedBy
	}
	return &StockTakeRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeRejected, AggregateTypeStockTake, st.ID, st.CompanyID),
		StockTakeID:     st.ID,
		ReferenceNumber: st.ReferenceNumber,
		BranchID:        st.BranchID,
		RejectedBy:      rejectedBy,
		Reason:          st.RejectionReason,
	}
}

// EventType returns the event type name
func (e *StockTakeRejectedEvent) EventType() string {
	return EventTypeStockTakeRejected
}

// StockTakeCancelledEvent is raised when a stock take is cancelled
type StockTakeCancelledEvent struct {
	shared.BaseDomainEvent
	StockTakeID     uuid.UUID `json:"stock_take_id"`
	ReferenceNumber string    `json:"reference_number"`
	BranchID        uuid.UUID `json:"branch_id"`
}

// NewStockTakeCancelledEvent creates a new StockTakeCancelledEvent
func NewStockTakeCancelledEvent(st *StockTake) *StockTakeCancelledEvent {
	return &StockTakeCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeCancelled, AggregateTypeStockTake, st.ID, st.CompanyID),
		StockTakeID:     st.ID,
		ReferenceNumber: st.ReferenceNumber,
		BranchID:        st.BranchID,
	}
}

// EventType returns the event type name
func (e *StockTakeCancelledEvent) EventType() string {
	return EventTypeStockTakeCancelled
}

// StockTakeCompletedEvent is raised when reconciliation has finished and
// the take is closed
type StockTakeCompletedEvent struct {
	shared.BaseDomainEvent
	StockTakeID     uuid.UUID `json:"stock_take_id"`
	ReferenceNumber string    `json:"reference_number"`
	BranchID        uuid.UUID `json:"branch_id"`
	TotalCounted    int64     `json:"total_counted"`
	ItemCount       int       `json:"item_count"`
}

// NewStockTakeCompletedEvent creates a new StockTakeCompletedEvent
func NewStockTakeCompletedEvent(st *StockTake) *StockTakeCompletedEvent {
	return &StockTakeCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeCompleted, AggregateTypeStockTake, st.ID, st.CompanyID),
		StockTakeID:     st.ID,
		ReferenceNumber: st.ReferenceNumber,
		BranchID:        st.BranchID,
		TotalCounted:    st.TotalCounted,
		ItemCount:       len(st.Items),
	}
}

// EventType returns the event type name
func (e *StockTakeCompletedEvent) EventType() string {
	return EventTypeStockTakeCompleted
}
