package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
)

// MovementFilter narrows a movement history query. CompanyID is always
// required and supplied separately; everything here is optional.
type MovementFilter struct {
	shared.Filter
	BranchID     *uuid.UUID
	ProductID    *uuid.UUID
	MovementType *MovementType
	DocumentType *DocumentType
	DocumentID   *uuid.UUID
	From         *time.Time
	To           *time.Time
}

// StockLevelRepository defines the interface for stock level persistence
type StockLevelRepository interface {
	// FindByProduct returns the row for (company, branch, product), or
	// shared.ErrNotFound if no movement has ever touched the combination
	FindByProduct(ctx context.Context, companyID, branchID, productID uuid.UUID) (*StockLevel, error)

	// GetOrCreateForUpdate returns the row under an exclusive row lock,
	// creating a zero-quantity row first if none exists. Must be called
	// inside a transaction; the lock is held until commit or rollback.
	GetOrCreateForUpdate(ctx context.Context, companyID, branchID, productID uuid.UUID) (*StockLevel, error)

	// Save creates or updates a stock level row
	Save(ctx context.Context, level *StockLevel) error

	// FindAllForCompany lists stock levels for a company, optionally
	// narrowed by branch via filter
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]StockLevel, int64, error)

	// TotalQuantityForProduct sums the product's quantity across all
	// branches of the company
	TotalQuantityForProduct(ctx context.Context, companyID, productID uuid.UUID) (int64, error)
}

// StockMovementRepository defines the interface for the append-only
// movement log
type StockMovementRepository interface {
	// Create appends a movement record
	Create(ctx context.Context, movement *StockMovement) error

	// FindByID finds a movement by ID within a company
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*StockMovement, error)

	// FindByReference finds a movement by its unique reference number
	FindByReference(ctx context.Context, companyID uuid.UUID, reference string) (*StockMovement, error)

	// FindAll lists movements for a company, newest first by default
	FindAll(ctx context.Context, companyID uuid.UUID, filter MovementFilter) ([]StockMovement, int64, error)

	// FindInWindow returns all movements for (company, branch, product)
	// whose movement date falls within [from, to]
	FindInWindow(ctx context.Context, companyID, branchID, productID uuid.UUID, from, to time.Time) ([]StockMovement, error)

	// SumSignedQuantity derives the current quantity of a product at a
	// branch from the movement log alone
	SumSignedQuantity(ctx context.Context, companyID, branchID, productID uuid.UUID) (int64, error)

	// Update rewrites a movement record. Data corrections only; no
	// business flow calls this.
	Update(ctx context.Context, movement *StockMovement) error
}

// StockTakeRepository defines the interface for stock take persistence
type StockTakeRepository interface {
	// Create persists a new stock take with its items
	Create(ctx context.Context, stockTake *StockTake) error

	// FindByID finds a stock take with its items loaded
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*StockTake, error)

	// FindAll lists stock takes for a company
	FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]StockTake, int64, error)

	// Save persists changes to a stock take and its items
	Save(ctx context.Context, stockTake *StockTake) error

	// SaveItem persists a single item. Reconciliation uses this to
	// commit each item's result independently.
	SaveItem(ctx context.Context, item *StockTakeItem) error

	// GenerateReferenceNumber generates the next reference in the format
	// ST-YYYYMMDD-NNNN, sequential per company per day
	GenerateReferenceNumber(ctx context.Context, companyID uuid.UUID) (string, error)
}
