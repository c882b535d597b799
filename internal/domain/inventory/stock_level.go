package inventory

import (
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
)

// StockLevel is the current on-hand quantity of one product at one
// branch. Exactly one row exists per (company, branch, product); it is
// created lazily on the first movement that touches the combination.
// Quantity is never negative at rest.
type StockLevel struct {
	shared.CompanyAggregateRoot
	BranchID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_levels_scope"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_levels_scope"`
	Quantity        int64     `gorm:"not null;default:0"`
	ReorderLevel    int64     `gorm:"not null;default:0"`
	ReorderQuantity int64     `gorm:"not null;default:0"`
}

// TableName returns the database table name
func (StockLevel) TableName() string {
	return "stock_levels"
}

// NewStockLevel creates a zero-quantity stock level row
func NewStockLevel(companyID, branchID, productID uuid.UUID) *StockLevel {
	return &StockLevel{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		BranchID:             branchID,
		ProductID:            productID,
		Quantity:             0,
	}
}

// Adjust applies a signed delta to the quantity. A delta that would take
// the quantity below zero is rejected and the row is left untouched.
func (s *StockLevel) Adjust(delta int64) error {
	newQuantity := s.Quantity + delta
	if newQuantity < 0 {
		return shared.ErrInsufficientStock
	}

	wasAboveReorder := s.ReorderLevel > 0 && s.Quantity >= s.ReorderLevel

	s.Quantity = newQuantity

	if wasAboveReorder && s.Quantity < s.ReorderLevel {
		s.AddDomainEvent(NewStockBelowReorderLevelEvent(s))
	}

	return nil
}

// IsBelowReorderLevel checks if the quantity has dropped under the
// configured reorder threshold
func (s *StockLevel) IsBelowReorderLevel() bool {
	return s.ReorderLevel > 0 && s.Quantity < s.ReorderLevel
}

// SetReorderPolicy configures the reorder threshold and suggested
// reorder quantity for this row
func (s *StockLevel) SetReorderPolicy(level, quantity int64) error {
	if level < 0 || quantity < 0 {
		return shared.ErrInvalidQuantity
	}
	s.ReorderLevel = level
	s.ReorderQuantity = quantity
	return nil
}
