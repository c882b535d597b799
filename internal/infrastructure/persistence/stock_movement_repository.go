package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormStockMovementRepository implements StockMovementRepository using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Create appends a movement record to the ledger
func (r *GormStockMovementRepository) Create(ctx context.Context, movement *inventory.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// FindByID finds a movement by ID within a company
func (r *GormStockMovementRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*inventory.StockMovement, error) {
	var movement inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindByReference finds a movement by its unique reference number
func (r *GormStockMovementRepository) FindByReference(ctx context.Context, companyID uuid.UUID, reference string) (*inventory.StockMovement, error) {
	var movement inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND reference_number = ?", companyID, reference).
		First(&movement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &movement, nil
}

// FindAll lists movements for a company, newest first by default
func (r *GormStockMovementRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter inventory.MovementFilter) ([]inventory.StockMovement, int64, error) {
	base := r.db.WithContext(ctx).Model(&inventory.StockMovement{}).
		Where("company_id = ?", companyID)
	base = r.applyMovementFilter(base, filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []inventory.StockMovement
	query := base.Offset(filter.Offset()).Limit(filter.Limit())
	query = applyOrdering(query, filter.Filter, StockMovementSortFields, "movement_date DESC, created_at DESC")
	if err := query.Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

// FindInWindow returns all movements for a branch-product combination
// whose movement date falls within [from, to]
func (r *GormStockMovementRepository) FindInWindow(ctx context.Context, companyID, branchID, productID uuid.UUID, from, to time.Time) ([]inventory.StockMovement, error) {
	var movements []inventory.StockMovement
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND branch_id = ? AND product_id = ?", companyID, branchID, productID).
		Where("movement_date >= ? AND movement_date <= ?", from, to).
		Order("movement_date ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// SumSignedQuantity derives the current quantity of a product at a branch
// from the movement log alone. Inbound movements count positive, outbound
// negative.
func (r *GormStockMovementRepository) SumSignedQuantity(ctx context.Context, companyID, branchID, productID uuid.UUID) (int64, error) {
	inbound := make([]string, 0, len(inventory.AllMovementTypes))
	for _, t := range inventory.AllMovementTypes {
		if t.IsInbound() {
			inbound = append(inbound, string(t))
		}
	}

	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Select("COALESCE(SUM(CASE WHEN movement_type IN (?) THEN quantity ELSE -quantity END), 0) as total", inbound).
		Where("company_id = ? AND branch_id = ? AND product_id = ?", companyID, branchID, productID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// Update rewrites a movement record. Data corrections only; no business
// flow calls this.
func (r *GormStockMovementRepository) Update(ctx context.Context, movement *inventory.StockMovement) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.StockMovement{}).
		Where("company_id = ? AND id = ?", movement.CompanyID, movement.ID).
		Updates(map[string]interface{}{
			"quantity":        movement.Quantity,
			"movement_type":   movement.MovementType,
			"unit_cost":       movement.UnitCost,
			"total_cost":      movement.TotalCost,
			"quantity_before": movement.QuantityBefore,
			"quantity_after":  movement.QuantityAfter,
			"reason":          movement.Reason,
			"performed_by":    movement.PerformedBy,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// applyMovementFilter narrows the query with the optional movement filters
func (r *GormStockMovementRepository) applyMovementFilter(query *gorm.DB, filter inventory.MovementFilter) *gorm.DB {
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.MovementType != nil {
		query = query.Where("movement_type = ?", *filter.MovementType)
	}
	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", *filter.DocumentType)
	}
	if filter.DocumentID != nil {
		query = query.Where("document_id = ?", *filter.DocumentID)
	}
	if filter.From != nil {
		query = query.Where("movement_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("movement_date <= ?", *filter.To)
	}
	return query
}

// Ensure GormStockMovementRepository implements StockMovementRepository
var _ inventory.StockMovementRepository = (*GormStockMovementRepository)(nil)
