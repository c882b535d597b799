package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockLevelRepository implements StockLevelRepository using GORM
type GormStockLevelRepository struct {
	db *gorm.DB
}

// NewGormStockLevelRepository creates a new GormStockLevelRepository
func NewGormStockLevelRepository(db *gorm.DB) *GormStockLevelRepository {
	return &GormStockLevelRepository{db: db}
}

// FindByProduct finds the stock level row for a branch-product combination
func (r *GormStockLevelRepository) FindByProduct(ctx context.Context, companyID, branchID, productID uuid.UUID) (*inventory.StockLevel, error) {
	var level inventory.StockLevel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND branch_id = ? AND product_id = ?", companyID, branchID, productID).
		First(&level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// GetOrCreateForUpdate returns the stock level row under an exclusive row
// lock (SELECT ... FOR UPDATE), creating a zero-quantity row first if none
// exists. Must run inside a transaction; the lock is released on commit or
// rollback.
func (r *GormStockLevelRepository) GetOrCreateForUpdate(ctx context.Context, companyID, branchID, productID uuid.UUID) (*inventory.StockLevel, error) {
	var level inventory.StockLevel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND branch_id = ? AND product_id = ?", companyID, branchID, productID).
		First(&level).Error
	if err == nil {
		return &level, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Row doesn't exist yet. Create it with ON CONFLICT DO NOTHING to
	// survive a concurrent insert, then lock whichever row won.
	fresh := inventory.NewStockLevel(companyID, branchID, productID)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "branch_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND branch_id = ? AND product_id = ?", companyID, branchID, productID).
		First(&level).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

// Save creates or updates a stock level row
func (r *GormStockLevelRepository) Save(ctx context.Context, level *inventory.StockLevel) error {
	return r.db.WithContext(ctx).Save(level).Error
}

// FindAllForCompany lists stock levels for a company with the total count
func (r *GormStockLevelRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]inventory.StockLevel, int64, error) {
	base := r.db.WithContext(ctx).Model(&inventory.StockLevel{}).
		Where("company_id = ?", companyID)
	base = r.applyFilters(base, filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var levels []inventory.StockLevel
	query := base.Offset(filter.Offset()).Limit(filter.Limit())
	query = applyOrdering(query, filter, StockLevelSortFields, "branch_id ASC, product_id ASC")
	if err := query.Find(&levels).Error; err != nil {
		return nil, 0, err
	}
	return levels, total, nil
}

// TotalQuantityForProduct sums the product's quantity across all branches
func (r *GormStockLevelRepository) TotalQuantityForProduct(ctx context.Context, companyID, productID uuid.UUID) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.db.WithContext(ctx).
		Model(&inventory.StockLevel{}).
		Select("COALESCE(SUM(quantity), 0) as total").
		Where("company_id = ? AND product_id = ?", companyID, productID).
		Scan(&result).Error; err != nil {
		return 0, err
	}
	return result.Total, nil
}

// applyFilters applies map-based filter options to the query
func (r *GormStockLevelRepository) applyFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "branch_id":
			query = query.Where("branch_id = ?", value)
		case "product_id":
			query = query.Where("product_id = ?", value)
		case "below_reorder":
			if value == true {
				query = query.Where("reorder_level > 0 AND quantity < reorder_level")
			}
		case "has_stock":
			if value == true {
				query = query.Where("quantity > 0")
			}
		case "no_stock":
			if value == true {
				query = query.Where("quantity = 0")
			}
		}
	}
	return query
}

// applyOrdering applies the filter's ordering, validating the field against
// the whitelist and falling back to the given default
func applyOrdering(query *gorm.DB, filter shared.Filter, allowedFields map[string]bool, defaultOrder string) *gorm.DB {
	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, allowedFields, "")
		if field != "" {
			return query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
		}
	}
	return query.Order(defaultOrder)
}

// Ensure GormStockLevelRepository implements StockLevelRepository
var _ inventory.StockLevelRepository = (*GormStockLevelRepository)(nil)
