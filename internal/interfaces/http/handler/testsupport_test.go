package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/retailpos/backend/internal/application/inventory"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/retailpos/backend/internal/interfaces/http/middleware"
)

// memEngine backs the handler tests with an in-memory implementation of
// the stock repositories and the transaction scope. Execute serializes
// callers and rolls state back when the function fails.
type memEngine struct {
	mu        sync.Mutex
	levels    map[string]*inventory.StockLevel
	movements []inventory.StockMovement
	takes     map[uuid.UUID]*inventory.StockTake
	refSeq    int
}

func newMemEngine() *memEngine {
	return &memEngine{
		levels: make(map[string]*inventory.StockLevel),
		takes:  make(map[uuid.UUID]*inventory.StockTake),
	}
}

func levelKey(companyID, branchID, productID uuid.UUID) string {
	return companyID.String() + "/" + branchID.String() + "/" + productID.String()
}

func (e *memEngine) Execute(_ context.Context, fn func(repos inventoryapp.TransactionalRepositories) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	levelsSnap := make(map[string]*inventory.StockLevel, len(e.levels))
	for k, v := range e.levels {
		cp := *v
		levelsSnap[k] = &cp
	}
	movementsSnap := len(e.movements)
	takesSnap := make(map[uuid.UUID]*inventory.StockTake, len(e.takes))
	for k, v := range e.takes {
		cp := *v
		cp.Items = append([]inventory.StockTakeItem(nil), v.Items...)
		takesSnap[k] = &cp
	}

	if err := fn(e); err != nil {
		e.levels = levelsSnap
		e.movements = e.movements[:movementsSnap]
		e.takes = takesSnap
		return err
	}
	return nil
}

func (e *memEngine) StockLevelRepo() inventory.StockLevelRepository  { return e }
func (e *memEngine) MovementRepo() inventory.StockMovementRepository { return e }
func (e *memEngine) StockTakeRepo() inventory.StockTakeRepository    { return takeRepo{e} }

func (e *memEngine) FindByProduct(_ context.Context, companyID, branchID, productID uuid.UUID) (*inventory.StockLevel, error) {
	level, ok := e.levels[levelKey(companyID, branchID, productID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return level, nil
}

func (e *memEngine) GetOrCreateForUpdate(_ context.Context, companyID, branchID, productID uuid.UUID) (*inventory.StockLevel, error) {
	key := levelKey(companyID, branchID, productID)
	if level, ok := e.levels[key]; ok {
		return level, nil
	}
	level := inventory.NewStockLevel(companyID, branchID, productID)
	e.levels[key] = level
	return level, nil
}

func (e *memEngine) Save(_ context.Context, level *inventory.StockLevel) error {
	e.levels[levelKey(level.CompanyID, level.BranchID, level.ProductID)] = level
	return nil
}

func (e *memEngine) FindAllForCompany(_ context.Context, companyID uuid.UUID, filter shared.Filter) ([]inventory.StockLevel, int64, error) {
	var out []inventory.StockLevel
	for _, level := range e.levels {
		if level.CompanyID != companyID {
			continue
		}
		if branchID, ok := filter.Filters["branch_id"].(uuid.UUID); ok && level.BranchID != branchID {
			continue
		}
		if below, ok := filter.Filters["below_reorder"].(bool); ok && below && !level.IsBelowReorderLevel() {
			continue
		}
		out = append(out, *level)
	}
	return out, int64(len(out)), nil
}

func (e *memEngine) TotalQuantityForProduct(_ context.Context, companyID, productID uuid.UUID) (int64, error) {
	var total int64
	for _, level := range e.levels {
		if level.CompanyID == companyID && level.ProductID == productID {
			total += level.Quantity
		}
	}
	return total, nil
}

func (e *memEngine) Create(_ context.Context, movement *inventory.StockMovement) error {
	e.movements = append(e.movements, *movement)
	return nil
}

func (e *memEngine) FindByID(_ context.Context, companyID, id uuid.UUID) (*inventory.StockMovement, error) {
	for i := range e.movements {
		if e.movements[i].CompanyID == companyID && e.movements[i].ID == id {
			m := e.movements[i]
			return &m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (e *memEngine) FindByReference(_ context.Context, companyID uuid.UUID, reference string) (*inventory.StockMovement, error) {
	for i := range e.movements {
		if e.movements[i].CompanyID == companyID && e.movements[i].ReferenceNumber == reference {
			m := e.movements[i]
			return &m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (e *memEngine) FindAll(_ context.Context, companyID uuid.UUID, filter inventory.MovementFilter) ([]inventory.StockMovement, int64, error) {
	var out []inventory.StockMovement
	for i := range e.movements {
		m := e.movements[i]
		if m.CompanyID != companyID {
			continue
		}
		if filter.BranchID != nil && m.BranchID != *filter.BranchID {
			continue
		}
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.MovementType != nil && m.MovementType != *filter.MovementType {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (e *memEngine) FindInWindow(_ context.Context, companyID, branchID, productID uuid.UUID, from, to time.Time) ([]inventory.StockMovement, error) {
	var out []inventory.StockMovement
	for i := range e.movements {
		m := e.movements[i]
		if m.CompanyID != companyID || m.BranchID != branchID || m.ProductID != productID {
			continue
		}
		if m.MovementDate.Before(from) || m.MovementDate.After(to) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (e *memEngine) SumSignedQuantity(_ context.Context, companyID, branchID, productID uuid.UUID) (int64, error) {
	var total int64
	for i := range e.movements {
		m := e.movements[i]
		if m.CompanyID == companyID && m.BranchID == branchID && m.ProductID == productID {
			total += m.SignedQuantity()
		}
	}
	return total, nil
}

func (e *memEngine) Update(_ context.Context, movement *inventory.StockMovement) error {
	for i := range e.movements {
		if e.movements[i].ID == movement.ID {
			e.movements[i] = *movement
			return nil
		}
	}
	return shared.ErrNotFound
}

func (e *memEngine) CreateStockTake(_ context.Context, st *inventory.StockTake) error {
	e.takes[st.ID] = st
	return nil
}

func (e *memEngine) FindStockTakeByID(_ context.Context, companyID, id uuid.UUID) (*inventory.StockTake, error) {
	st, ok := e.takes[id]
	if !ok || st.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return st, nil
}

func (e *memEngine) FindAllStockTakes(_ context.Context, companyID uuid.UUID, _ shared.Filter) ([]inventory.StockTake, int64, error) {
	var out []inventory.StockTake
	for _, st := range e.takes {
		if st.CompanyID == companyID {
			out = append(out, *st)
		}
	}
	return out, int64(len(out)), nil
}

func (e *memEngine) SaveStockTake(_ context.Context, st *inventory.StockTake) error {
	e.takes[st.ID] = st
	return nil
}

func (e *memEngine) SaveItem(_ context.Context, item *inventory.StockTakeItem) error {
	st, ok := e.takes[item.StockTakeID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range st.Items {
		if st.Items[i].ID == item.ID {
			st.Items[i] = *item
			return nil
		}
	}
	return shared.ErrNotFound
}

func (e *memEngine) GenerateReferenceNumber(_ context.Context, _ uuid.UUID) (string, error) {
	e.refSeq++
	return fmt.Sprintf("ST-%s-%04d", time.Now().Format("20060102"), e.refSeq), nil
}

// takeRepo disambiguates the stock take methods from the movement side
type takeRepo struct {
	*memEngine
}

func (r takeRepo) Create(ctx context.Context, st *inventory.StockTake) error {
	return r.CreateStockTake(ctx, st)
}

func (r takeRepo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*inventory.StockTake, error) {
	return r.FindStockTakeByID(ctx, companyID, id)
}

func (r takeRepo) FindAll(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]inventory.StockTake, int64, error) {
	return r.FindAllStockTakes(ctx, companyID, filter)
}

func (r takeRepo) Save(ctx context.Context, st *inventory.StockTake) error {
	return r.SaveStockTake(ctx, st)
}

var _ inventoryapp.TransactionScope = (*memEngine)(nil)
var _ inventory.StockLevelRepository = (*memEngine)(nil)
var _ inventory.StockMovementRepository = (*memEngine)(nil)
var _ inventory.StockTakeRepository = takeRepo{}

// mapIdempotencyStore is a minimal map-backed idempotency store
type mapIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMapIdempotencyStore() *mapIdempotencyStore {
	return &mapIdempotencyStore{keys: make(map[string]bool)}
}

func (s *mapIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *mapIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *mapIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*mapIdempotencyStore)(nil)

// testFixture wires the handlers over a fresh in-memory engine and a
// gin router with the company scope middleware
type testFixture struct {
	engine *memEngine
	stock  *inventoryapp.StockService
	takes  *inventoryapp.StockTakeService
	router *gin.Engine
}

func newTestFixture() *testFixture {
	gin.SetMode(gin.TestMode)

	engine := newMemEngine()
	stock := inventoryapp.NewStockService(engine, engine, engine)
	stock.SetIdempotencyStore(newMapIdempotencyStore())
	takes := inventoryapp.NewStockTakeService(engine, takeRepo{engine}, engine, engine, stock)

	stockHandler := NewStockHandler(stock)
	stockTakeHandler := NewStockTakeHandler(takes)

	r := gin.New()
	r.Use(middleware.CompanyMiddleware())

	api := r.Group("/api/v1")
	{
		api.GET("/stock/levels", stockHandler.ListStockLevels)
		api.GET("/stock/levels/quantity", stockHandler.GetProductQuantity)
		api.GET("/stock/levels/derived", stockHandler.GetDerivedQuantity)
		api.GET("/stock/products/:product_id/total", stockHandler.GetTotalQuantity)
		api.GET("/stock/movements", stockHandler.ListMovements)
		api.POST("/stock/adjustments", stockHandler.AdjustStock)
		api.POST("/stock/write-offs", stockHandler.WriteOffStock)
		api.POST("/stock/transfers", stockHandler.PostTransfer)

		api.POST("/stock-takes", stockTakeHandler.Create)
		api.GET("/stock-takes", stockTakeHandler.List)
		api.GET("/stock-takes/:id", stockTakeHandler.GetByID)
		api.POST("/stock-takes/:id/items", stockTakeHandler.AddItem)
		api.PUT("/stock-takes/:id/items/:product_id", stockTakeHandler.UpdateItem)
		api.POST("/stock-takes/:id/items/:product_id/confirm", stockTakeHandler.ConfirmItem)
		api.POST("/stock-takes/:id/approve", stockTakeHandler.Approve)
		api.POST("/stock-takes/:id/reject", stockTakeHandler.Reject)
		api.POST("/stock-takes/:id/cancel", stockTakeHandler.Cancel)
		api.GET("/stock-takes/:id/preview", stockTakeHandler.Preview)
		api.POST("/stock-takes/:id/finalize", stockTakeHandler.Finalize)
	}

	return &testFixture{
		engine: engine,
		stock:  stock,
		takes:  takes,
		router: r,
	}
}

// do performs a request with the company and user headers set
func (f *testFixture) do(method, path string, companyID uuid.UUID, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CompanyHeaderKey, companyID.String())
	req.Header.Set("X-User-ID", testUserID.String())

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

var testUserID = uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7")

// decodeData unmarshals the data field of a success envelope into out
func decodeData(w *httptest.ResponseRecorder, out any) error {
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Data, out)
}

// errorCode extracts the error code of a failure envelope
func errorCode(w *httptest.ResponseRecorder) string {
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		return ""
	}
	return envelope.Error.Code
}
