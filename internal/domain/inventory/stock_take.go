package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
)

// StockTakeStatus represents the status of a stock take
type StockTakeStatus string

const (
	StockTakeStatusOpen      StockTakeStatus = "open"
	StockTakeStatusApproved  StockTakeStatus = "approved"
	StockTakeStatusRejected  StockTakeStatus = "rejected"
	StockTakeStatusCompleted StockTakeStatus = "completed"
	StockTakeStatusCancelled StockTakeStatus = "cancelled"
)

// IsValid checks if the status is one of the defined statuses
func (s StockTakeStatus) IsValid() bool {
	switch s {
	case StockTakeStatusOpen, StockTakeStatusApproved, StockTakeStatusRejected,
		StockTakeStatusCompleted, StockTakeStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo checks if a transition to the target status is allowed.
// Completed and cancelled are terminal; a rejected take can only be
// cancelled.
func (s StockTakeStatus) CanTransitionTo(target StockTakeStatus) bool {
	transitions := map[StockTakeStatus][]StockTakeStatus{
		StockTakeStatusOpen: {
			StockTakeStatusApproved,
			StockTakeStatusRejected,
			StockTakeStatusCompleted,
			StockTakeStatusCancelled,
		},
		StockTakeStatusApproved: {
			StockTakeStatusRejected,
			StockTakeStatusCompleted,
			StockTakeStatusCancelled,
		},
		StockTakeStatusRejected: {
			StockTakeStatusCancelled,
		},
		StockTakeStatusCompleted: {},
		StockTakeStatusCancelled: {},
	}

	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal checks if no further transitions are possible
func (s StockTakeStatus) IsTerminal() bool {
	return s == StockTakeStatusCompleted || s == StockTakeStatusCancelled
}

// StockTakeItem is one counted product within a stock take. Expected is
// the ledger quantity at count time, Counted is the physical count, and
// Adjusted/Variance/Breakdown are filled in by reconciliation. Once
// confirmed the item is frozen.
type StockTakeItem struct {
	shared.BaseEntity
	StockTakeID       uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_stock_take_items_product"`
	ProductID         uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_stock_take_items_product"`
	ExpectedQuantity  int64             `gorm:"not null"`
	CountedQuantity   int64             `gorm:"not null"`
	AdjustedQuantity  *int64
	VarianceQuantity  *int64
	MovementBreakdown MovementBreakdown `gorm:"type:jsonb"`
	Confirmed         bool              `gorm:"not null;default:false"`
}

// TableName returns the database table name
func (StockTakeItem) TableName() string {
	return "stock_take_items"
}

// Variance returns the correction that reconciliation posted for this
// item: the movement-adjusted count minus the ledger quantity read at
// posting time. Zero until the item has been reconciled.
func (i *StockTakeItem) Variance() int64 {
	if i.VarianceQuantity == nil {
		return 0
	}
	return *i.VarianceQuantity
}

// SetReconciliation records the movement-adjusted count, the posted
// variance, and the per-type breakdown computed from the count window
func (i *StockTakeItem) SetReconciliation(adjusted, variance int64, breakdown MovementBreakdown) {
	i.AdjustedQuantity = &adjusted
	i.VarianceQuantity = &variance
	i.MovementBreakdown = breakdown
	i.UpdatedAt = time.Now()
}

// StockTake is a physical count of stock at one branch. Items collect
// counted quantities while the take is open; finalization reconciles the
// counts against the ledger and posts variance adjustments.
type StockTake struct {
	shared.CompanyAggregateRoot
	BranchID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReferenceNumber string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_stock_takes_reference"`
	Status          StockTakeStatus `gorm:"type:varchar(16);not null;default:'open'"`
	StartedAt       time.Time       `gorm:"not null"`
	EndedAt         *time.Time
	CompletedAt     *time.Time
	PerformedBy     uuid.UUID  `gorm:"type:uuid;not null"`
	ApprovedBy      *uuid.UUID `gorm:"type:uuid"`
	RejectedBy      *uuid.UUID `gorm:"type:uuid"`
	RejectionReason string     `gorm:"type:text"`
	Notes           string     `gorm:"type:text"`
	TotalCounted    int64      `gorm:"not null;default:0"`
	Items           []StockTakeItem `gorm:"foreignKey:StockTakeID"`
}

// TableName returns the database table name
func (StockTake) TableName() string {
	return "stock_takes"
}

// NewStockTake creates a stock take in open status
func NewStockTake(companyID, branchID, performedBy uuid.UUID, referenceNumber, notes string) *StockTake {
	st := &StockTake{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		BranchID:             branchID,
		ReferenceNumber:      referenceNumber,
		Status:               StockTakeStatusOpen,
		StartedAt:            time.Now(),
		PerformedBy:          performedBy,
		Notes:                notes,
		Items:                make([]StockTakeItem, 0),
	}
	st.AddDomainEvent(NewStockTakeCreatedEvent(st))
	return st
}

// FindItem returns the item for the given product, or nil
func (st *StockTake) FindItem(productID uuid.UUID) *StockTakeItem {
	for i := range st.Items {
		if st.Items[i].ProductID == productID {
			return &st.Items[i]
		}
	}
	return nil
}

// AddItem records a counted product. The take must be open and the
// product must not already be on the take.
func (st *StockTake) AddItem(productID uuid.UUID, expectedQuantity, countedQuantity int64) error {
	if st.Status != StockTakeStatusOpen {
		return shared.ErrInvalidStatusTransition
	}
	if countedQuantity < 0 {
		return shared.ErrInvalidQuantity
	}
	if st.FindItem(productID) != nil {
		return shared.ErrAlreadyExists
	}

	item := StockTakeItem{
		BaseEntity:       shared.NewBaseEntity(),
		StockTakeID:      st.ID,
		ProductID:        productID,
		ExpectedQuantity: expectedQuantity,
		CountedQuantity:  countedQuantity,
	}
	st.Items = append(st.Items, item)
	st.recalculateTotals()
	return nil
}

// UpdateItemCount replaces the counted quantity for a product. Confirmed
// items can no longer be changed.
func (st *StockTake) UpdateItemCount(productID uuid.UUID, countedQuantity int64) error {
	if st.Status != StockTakeStatusOpen {
		return shared.ErrInvalidStatusTransition
	}
	if countedQuantity < 0 {
		return shared.ErrInvalidQuantity
	}

	item := st.FindItem(productID)
	if item == nil {
		return shared.ErrNotFound
	}
	if item.Confirmed {
		return shared.ErrItemConfirmed
	}

	item.CountedQuantity = countedQuantity
	item.UpdatedAt = time.Now()
	st.recalculateTotals()
	return nil
}

// ConfirmItem freezes a counted item against further edits
func (st *StockTake) ConfirmItem(productID uuid.UUID) error {
	if st.Status != StockTakeStatusOpen && st.Status != StockTakeStatusApproved {
		return shared.ErrInvalidStatusTransition
	}

	item := st.FindItem(productID)
	if item == nil {
		return shared.ErrNotFound
	}

	item.Confirmed = true
	item.UpdatedAt = time.Now()
	return nil
}

// Approve moves the take to approved
func (st *StockTake) Approve(approvedBy uuid.UUID) error {
	if !st.Status.CanTransitionTo(StockTakeStatusApproved) {
		return shared.ErrInvalidStatusTransition
	}

	st.Status = StockTakeStatusApproved
	st.ApprovedBy = &approvedBy
	st.UpdatedAt = time.Now()
	st.AddDomainEvent(NewStockTakeApprovedEvent(st))
	return nil
}

// Reject moves the take to rejected with a reason
func (st *StockTake) Reject(rejectedBy uuid.UUID, reason string) error {
	if !st.Status.CanTransitionTo(StockTakeStatusRejected) {
		return shared.ErrInvalidStatusTransition
	}

	st.Status = StockTakeStatusRejected
	st.RejectedBy = &rejectedBy
	st.RejectionReason = reason
	st.UpdatedAt = time.Now()
	st.AddDomainEvent(NewStockTakeRejectedEvent(st))
	return nil
}

// Cancel abandons the take. No stock effect has happened, so there is
// nothing to undo.
func (st *StockTake) Cancel() error {
	if !st.Status.CanTransitionTo(StockTakeStatusCancelled) {
		return shared.ErrInvalidStatusTransition
	}

	st.Status = StockTakeStatusCancelled
	st.UpdatedAt = time.Now()
	st.AddDomainEvent(NewStockTakeCancelledEvent(st))
	return nil
}

// Complete closes the take after reconciliation has posted all variance
// adjustments
func (st *StockTake) Complete() error {
	if !st.Status.CanTransitionTo(StockTakeStatusCompleted) {
		return shared.ErrInvalidStatusTransition
	}

	now := time.Now()
	st.Status = StockTakeStatusCompleted
	st.CompletedAt = &now
	if st.EndedAt == nil {
		st.EndedAt = &now
	}
	st.UpdatedAt = now
	st.AddDomainEvent(NewStockTakeCompletedEvent(st))
	return nil
}

// CountWindow returns the movement window for reconciliation: from the
// start of the take until its end, or until now for a still-open take
func (st *StockTake) CountWindow() (time.Time, time.Time) {
	end := time.Now()
	if st.EndedAt != nil {
		end = *st.EndedAt
	}
	return st.StartedAt, end
}

func (st *StockTake) recalculateTotals() {
	var total int64
	for i := range st.Items {
		total += st.Items[i].CountedQuantity
	}
	st.TotalCounted = total
	st.UpdatedAt = time.Now()
}
