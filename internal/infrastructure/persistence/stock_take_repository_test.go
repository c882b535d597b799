package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormStockTakeRepository_GenerateReferenceNumber(t *testing.T) {
	t.Run("starts at 0001 on a fresh day", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockTakeRepository(gormDB)

		mock.ExpectQuery(`SELECT "reference_number" FROM "stock_takes" WHERE company_id = \$1 AND reference_number LIKE \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"reference_number"}))

		reference, err := repo.GenerateReferenceNumber(context.Background(), uuid.New())

		require.NoError(t, err)
		expected := fmt.Sprintf("ST-%s-0001", time.Now().Format("20060102"))
		assert.Equal(t, expected, reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increments past the day's highest sequence", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockTakeRepository(gormDB)

		today := time.Now().Format("20060102")
		mock.ExpectQuery(`SELECT "reference_number" FROM "stock_takes"`).
			WillReturnRows(sqlmock.NewRows([]string{"reference_number"}).
				AddRow(fmt.Sprintf("ST-%s-0007", today)))

		reference, err := repo.GenerateReferenceNumber(context.Background(), uuid.New())

		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ST-%s-0008", today), reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockTakeRepository_FindByID(t *testing.T) {
	t.Run("returns ErrNotFound for unknown stock take", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockTakeRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "stock_takes" WHERE company_id = \$1 AND id = \$2`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loads items with the stock take", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockTakeRepository(gormDB)

		companyID := uuid.New()
		stockTakeID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(`SELECT \* FROM "stock_takes" WHERE company_id = \$1 AND id = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "created_at", "updated_at", "version", "company_id",
				"branch_id", "reference_number", "status", "started_at",
				"performed_by", "total_counted",
			}).AddRow(
				stockTakeID, now, now, 1, companyID,
				uuid.New(), "ST-20260830-0001", "open", now,
				uuid.New(), 12,
			))
		mock.ExpectQuery(`SELECT \* FROM "stock_take_items" WHERE "stock_take_items"."stock_take_id" = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "created_at", "updated_at", "stock_take_id", "product_id",
				"expected_quantity", "counted_quantity", "confirmed",
			}).AddRow(
				uuid.New(), now, now, stockTakeID, uuid.New(),
				10, 12, false,
			))

		stockTake, err := repo.FindByID(context.Background(), companyID, stockTakeID)

		require.NoError(t, err)
		assert.Equal(t, "ST-20260830-0001", stockTake.ReferenceNumber)
		require.Len(t, stockTake.Items, 1)
		assert.Equal(t, int64(12), stockTake.Items[0].CountedQuantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockTakeRepository_FindAll(t *testing.T) {
	t.Run("filters by status", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockTakeRepository(gormDB)

		companyID := uuid.New()
		filter := shared.DefaultFilter()
		filter.Filters["status"] = "open"

		mock.ExpectQuery(`SELECT count\(\*\) FROM "stock_takes" WHERE company_id = \$1 AND status = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT \* FROM "stock_takes" WHERE company_id = \$1 AND status = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		stockTakes, total, err := repo.FindAll(context.Background(), companyID, filter)

		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, stockTakes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
