package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormStockTakeRepository implements StockTakeRepository using GORM
type GormStockTakeRepository struct {
	db *gorm.DB
}

// NewGormStockTakeRepository creates a new GormStockTakeRepository
func NewGormStockTakeRepository(db *gorm.DB) *GormStockTakeRepository {
	return &GormStockTakeRepository{db: db}
}

// Create persists a new stock take with its items
func (r *GormStockTakeRepository) Create(ctx context.Context, stockTake *inventory.StockTake) error {
	return r.db.WithContext(ctx).Create(stockTake).Error
}

// FindByID finds a stock take with its items loaded
func (r *GormStockTakeRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*inventory.StockTake, error) {
	var stockTake inventory.StockTake
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&stockTake).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &stockTake, nil
}

// FindAll lists stock takes for a company with the total count
func (r *GormStockTakeRepository) FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]inventory.StockTake, int64, error) {
	base := r.db.WithContext(ctx).Model(&inventory.StockTake{}).
		Where("company_id = ?", companyID)
	base = r.applyFilters(base, filter)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var stockTakes []inventory.StockTake
	query := base.Preload("Items").Offset(filter.Offset()).Limit(filter.Limit())
	query = applyOrdering(query, filter, StockTakeSortFields, "started_at DESC")
	if err := query.Find(&stockTakes).Error; err != nil {
		return nil, 0, err
	}
	return stockTakes, total, nil
}

// Save persists changes to a stock take and its items
func (r *GormStockTakeRepository) Save(ctx context.Context, stockTake *inventory.StockTake) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(stockTake).Error
}

// SaveItem persists a single item. Reconciliation uses this to commit
// each item's result independently.
func (r *GormStockTakeRepository) SaveItem(ctx context.Context, item *inventory.StockTakeItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// GenerateReferenceNumber generates the next reference in the format
// ST-YYYYMMDD-NNNN, sequential per company per day
func (r *GormStockTakeRepository) GenerateReferenceNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	today := time.Now().Format("20060102")
	prefix := fmt.Sprintf("ST-%s-", today)

	// Find the max sequence number for today
	var maxNumber string
	err := r.db.WithContext(ctx).Model(&inventory.StockTake{}).
		Select("reference_number").
		Where("company_id = ? AND reference_number LIKE ?", companyID, prefix+"%").
		Order("reference_number DESC").
		Limit(1).
		Pluck("reference_number", &maxNumber).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var seq int
	if maxNumber != "" {
		// Extract sequence number from the last part
		parts := strings.Split(maxNumber, "-")
		if len(parts) >= 3 {
			_, err := fmt.Sscanf(parts[len(parts)-1], "%04d", &seq)
			if err == nil {
				seq++
			}
		}
	}
	if seq == 0 {
		seq = 1
	}

	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// applyFilters applies map-based filter options to the query
func (r *GormStockTakeRepository) applyFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "branch_id":
			query = query.Where("branch_id = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "performed_by":
			query = query.Where("performed_by = ?", value)
		case "started_after":
			query = query.Where("started_at >= ?", value)
		case "started_before":
			query = query.Where("started_at <= ?", value)
		}
	}
	return query
}

// Ensure GormStockTakeRepository implements StockTakeRepository
var _ inventory.StockTakeRepository = (*GormStockTakeRepository)(nil)
