package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// memEngine is an in-memory implementation of the stock repositories and
// the transaction scope. Execute serializes callers with a real mutex,
// mirroring the row-lock behavior of the database, and rolls state back
// when the function fails.
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

// Execute implements TransactionScope with snapshot-based rollback
func (e *memEngine) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
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

func (e *memEngine) StockLevelRepo() inventory.StockLevelRepository {
	return e
}

func (e *memEngine) MovementRepo() inventory.StockMovementRepository {
	return e
}

func (e *memEngine) StockTakeRepo() inventory.StockTakeRepository {
	return takeRepo{e}
}

// StockLevelRepository

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

func (e *memEngine) FindAllForCompany(_ context.Context, companyID uuid.UUID, _ shared.Filter) ([]inventory.StockLevel, int64, error) {
	var out []inventory.StockLevel
	for _, level := range e.levels {
		if level.CompanyID == companyID {
			out = append(out, *level)
		}
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

// StockMovementRepository

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
		if filter.DocumentType != nil && (m.DocumentType == nil || *m.DocumentType != *filter.DocumentType) {
			continue
		}
		if filter.DocumentID != nil && (m.DocumentID == nil || *m.DocumentID != *filter.DocumentID) {
			continue
		}
		if filter.From != nil && m.MovementDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.MovementDate.After(*filter.To) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MovementDate.After(out[j].MovementDate)
	})
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

// StockTakeRepository

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

var _ TransactionScope = (*memEngine)(nil)
var _ TransactionalRepositories = (*memEngine)(nil)
var _ inventory.StockLevelRepository = (*memEngine)(nil)
var _ inventory.StockMovementRepository = (*memEngine)(nil)

// takeRepo adapts memEngine's stock take methods to the repository
// interface (the method names would otherwise clash with Create and
// FindByID on the movement side)
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

var _ inventory.StockTakeRepository = takeRepo{}

// fakeIdempotencyStore is a minimal map-backed idempotency store
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

var _ shared.IdempotencyStore = (*fakeIdempotencyStore)(nil)

// capturingPublisher records published events for assertions
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) typesSeen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

var _ shared.EventPublisher = (*capturingPublisher)(nil)

// testLine is a stock document line for tests
type testLine struct {
	product uuid.UUID
	qty     int64
	cost    decimal.Decimal
}

func (l testLine) Product() uuid.UUID            { return l.product }
func (l testLine) LineQuantity() int64           { return l.qty }
func (l testLine) LineUnitCost() decimal.Decimal { return l.cost }

// testDoc is a stock document for tests; it also satisfies
// TransferDocument when src and dst are set
type testDoc struct {
	id      uuid.UUID
	kind    inventory.DocumentType
	company uuid.UUID
	branch  uuid.UUID
	lines   []inventory.DocumentLine
	state   inventory.PostingState
	src     uuid.UUID
	dst     uuid.UUID
	ref     string
}

func (d *testDoc) DocumentID() uuid.UUID                { return d.id }
func (d *testDoc) DocumentKind() inventory.DocumentType { return d.kind }
func (d *testDoc) Company() uuid.UUID                   { return d.company }
func (d *testDoc) Branch() uuid.UUID                    { return d.branch }
func (d *testDoc) Lines() []inventory.DocumentLine      { return d.lines }
func (d *testDoc) State() inventory.PostingState        { return d.state }
func (d *testDoc) MarkPosted()                          { d.state = inventory.PostingStatePosted }
func (d *testDoc) MarkReversed()                        { d.state = inventory.PostingStateReversed }
func (d *testDoc) SourceBranch() uuid.UUID              { return d.src }
func (d *testDoc) DestinationBranch() uuid.UUID         { return d.dst }
func (d *testDoc) Reference() string                    { return d.ref }

var _ inventory.StockDocument = (*testDoc)(nil)
var _ inventory.TransferDocument = (*testDoc)(nil)

// newStockFixture wires a StockService and StockTakeService over a
// fresh in-memory engine
func newStockFixture() (*memEngine, *StockService, *StockTakeService) {
	engine := newMemEngine()
	stock := NewStockService(engine, engine, engine)
	takes := NewStockTakeService(engine, takeRepo{engine}, engine, engine, stock)
	return engine, stock, takes
}
