package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func movementRows(companyID, branchID, productID uuid.UUID, movementType inventory.MovementType, quantity int64, reference string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at",
		"company_id", "branch_id", "product_id",
		"movement_type", "quantity", "unit_cost", "total_cost",
		"reference_number", "reason", "movement_date",
	}).AddRow(
		uuid.New(), now, now,
		companyID, branchID, productID,
		string(movementType), quantity, "0", "0",
		reference, "", now,
	)
}

func TestGormStockMovementRepository_Create(t *testing.T) {
	t.Run("appends a movement record", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		movement, err := inventory.NewStockMovement(
			uuid.New(), uuid.New(), uuid.New(),
			inventory.MovementTypePurchase, 25, decimal.NewFromFloat(3.50),
		)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "stock_movements"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Create(context.Background(), movement)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_FindByReference(t *testing.T) {
	t.Run("finds a movement by reference number", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		companyID := uuid.New()
		reference := "MOV-20260830-a1b2c3d4"

		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE company_id = \$1 AND reference_number = \$2`).
			WillReturnRows(movementRows(companyID, uuid.New(), uuid.New(), inventory.MovementTypeSale, 3, reference))

		movement, err := repo.FindByReference(context.Background(), companyID, reference)

		require.NoError(t, err)
		assert.Equal(t, reference, movement.ReferenceNumber)
		assert.Equal(t, inventory.MovementTypeSale, movement.MovementType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for unknown reference", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		mock.ExpectQuery(`SELECT \* FROM "stock_movements"`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByReference(context.Background(), uuid.New(), "MOV-00000000-00000000")

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_FindAll(t *testing.T) {
	t.Run("filters by movement type", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		companyID := uuid.New()
		movementType := inventory.MovementTypeSale

		filter := inventory.MovementFilter{Filter: shared.DefaultFilter()}
		filter.MovementType = &movementType

		mock.ExpectQuery(`SELECT count\(\*\) FROM "stock_movements" WHERE company_id = \$1 AND movement_type = \$2`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE company_id = \$1 AND movement_type = \$2`).
			WillReturnRows(movementRows(companyID, uuid.New(), uuid.New(), movementType, 2, "MOV-20260830-11111111"))

		movements, total, err := repo.FindAll(context.Background(), companyID, filter)

		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, movements, 1)
		assert.Equal(t, movementType, movements[0].MovementType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters by source document", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		companyID := uuid.New()
		docType := inventory.DocumentTypeSalesInvoice
		docID := uuid.New()

		filter := inventory.MovementFilter{Filter: shared.DefaultFilter()}
		filter.DocumentType = &docType
		filter.DocumentID = &docID

		mock.ExpectQuery(`SELECT count\(\*\) FROM "stock_movements" WHERE company_id = \$1 AND document_type = \$2 AND document_id = \$3`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE company_id = \$1 AND document_type = \$2 AND document_id = \$3`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		movements, total, err := repo.FindAll(context.Background(), companyID, filter)

		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, movements)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_FindInWindow(t *testing.T) {
	t.Run("bounds the query by movement date", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		companyID := uuid.New()
		branchID := uuid.New()
		productID := uuid.New()
		from := time.Now().Add(-2 * time.Hour)
		to := time.Now()

		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE \(company_id = \$1 AND branch_id = \$2 AND product_id = \$3\) AND \(movement_date >= \$4 AND movement_date <= \$5\) ORDER BY movement_date ASC`).
			WillReturnRows(movementRows(companyID, branchID, productID, inventory.MovementTypePurchase, 20, "MOV-20260830-22222222"))

		movements, err := repo.FindInWindow(context.Background(), companyID, branchID, productID, from, to)

		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, int64(20), movements[0].Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_SumSignedQuantity(t *testing.T) {
	t.Run("sums inbound positive and outbound negative", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(CASE WHEN movement_type IN \(.*\) THEN quantity ELSE -quantity END\), 0\) as total FROM "stock_movements"`).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(57))

		total, err := repo.SumSignedQuantity(context.Background(), uuid.New(), uuid.New(), uuid.New())

		require.NoError(t, err)
		assert.Equal(t, int64(57), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository_Update(t *testing.T) {
	t.Run("rewrites quantity, type, cost and snapshots", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		movement, err := inventory.NewStockMovement(
			uuid.New(), uuid.New(), uuid.New(),
			inventory.MovementTypePurchase, 12, decimal.NewFromInt(2),
		)
		require.NoError(t, err)
		movement.WithSnapshots(30, 42)
		movement.WithReason("keyed in as 21, corrected to 12")

		mock.ExpectExec(`UPDATE "stock_movements" SET .*"movement_type"=.*"quantity"=.*"quantity_after"=.*"quantity_before"=.*"reason"=.*"total_cost"=.*"unit_cost"=.* WHERE company_id = \$\d+ AND id = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Update(context.Background(), movement)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when no row matches", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(gormDB)

		movement, err := inventory.NewStockMovement(
			uuid.New(), uuid.New(), uuid.New(),
			inventory.MovementTypeSale, 1, decimal.Zero,
		)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "stock_movements" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Update(context.Background(), movement)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
