package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockTakeService drives the stock take workflow from opening a count
// through approval to reconciliation
type StockTakeService struct {
	scope          TransactionScope
	stockTakeRepo  inventory.StockTakeRepository
	stockLevelRepo inventory.StockLevelRepository
	movementRepo   inventory.StockMovementRepository
	stock          *StockService
	eventPublisher shared.EventPublisher
}

// NewStockTakeService creates a new StockTakeService
func NewStockTakeService(
	scope TransactionScope,
	stockTakeRepo inventory.StockTakeRepository,
	stockLevelRepo inventory.StockLevelRepository,
	movementRepo inventory.StockMovementRepository,
	stock *StockService,
) *StockTakeService {
	return &StockTakeService{
		scope:          scope,
		stockTakeRepo:  stockTakeRepo,
		stockLevelRepo: stockLevelRepo,
		movementRepo:   movementRepo,
		stock:          stock,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockTakeService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *StockTakeService) publishDomainEvents(ctx context.Context, st *inventory.StockTake) {
	if s.eventPublisher == nil {
		return
	}
	events := st.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	st.ClearDomainEvents()
}

// currentQuantity reads the current ledger quantity for a product; a
// row that does not exist yet counts as zero
func (s *StockTakeService) currentQuantity(ctx context.Context, companyID, branchID, productID uuid.UUID) (int64, error) {
	level, err := s.stockLevelRepo.FindByProduct(ctx, companyID, branchID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return level.Quantity, nil
}

// Create opens a stock take, snapshotting the ledger quantity of each
// counted product as its expected quantity
func (s *StockTakeService) Create(ctx context.Context, req CreateStockTakeRequest) (*StockTakeResponse, error) {
	reference, err := s.stockTakeRepo.GenerateReferenceNumber(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}

	st := inventory.NewStockTake(req.CompanyID, req.BranchID, req.PerformedBy, reference, req.Notes)
	for _, input := range req.Items {
		expected, err := s.currentQuantity(ctx, req.CompanyID, req.BranchID, input.ProductID)
		if err != nil {
			return nil, err
		}
		if err := st.AddItem(input.ProductID, expected, input.CountedQuantity); err != nil {
			return nil, err
		}
	}

	if err := s.stockTakeRepo.Create(ctx, st); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, st)
	response := ToStockTakeResponse(st)
	return &response, nil
}

// GetByID retrieves a stock take with its items
func (s *StockTakeService) GetByID(ctx context.Context, companyID, id uuid.UUID) (*StockTakeResponse, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	response := ToStockTakeResponse(st)
	return &response, nil
}

// List retrieves stock takes for a company
func (s *StockTakeService) List(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]StockTakeResponse, int64, error) {
	takes, total, err := s.stockTakeRepo.FindAll(ctx, companyID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]StockTakeResponse, len(takes))
	for i := range takes {
		responses[i] = ToStockTakeResponse(&takes[i])
	}
	return responses, total, nil
}

// AddItem adds a counted product to an open take
func (s *StockTakeService) AddItem(ctx context.Context, companyID, stockTakeID uuid.UUID, req AddStockTakeItemRequest) (*StockTakeResponse, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, stockTakeID)
	if err != nil {
		return nil, err
	}

	expected, err := s.currentQuantity(ctx, companyID, st.BranchID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if err := st.AddItem(req.ProductID, expected, req.CountedQuantity); err != nil {
		return nil, err
	}

	if err := s.stockTakeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	response := ToStockTakeResponse(st)
	return &response, nil
}

// UpdateItem replaces the counted quantity of an unconfirmed item
func (s *StockTakeService) UpdateItem(ctx context.Context, companyID, stockTakeID, productID uuid.UUID, req UpdateStockTakeItemRequest) (*StockTakeResponse, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, stockTakeID)
	if err != nil {
		return nil, err
	}

	if err := st.UpdateItemCount(productID, req.CountedQuantity); err != nil {
		return nil, err
	}

	if err := s.stockTakeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	response := ToStockTakeResponse(st)
	return &response, nil
}

// ConfirmItem freezes an item against further count edits
func (s *StockTakeService) ConfirmItem(ctx context.Context, companyID, stockTakeID, productID uuid.UUID) (*StockTakeResponse, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, stockTakeID)
	if err != nil {
		return nil, err
	}

	if err := st.ConfirmItem(productID); err != nil {
		return nil, err
	}

	if err := s.stockTakeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	response := ToStockTakeResponse(st)
	return &response, nil
}

// Approve moves the take to approved
func (s *StockTakeService) Approve(ctx context.Context, companyID, stockTakeID, approvedBy uuid.UUID) (*StockTakeResponse, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, stockTakeID)
	if err != nil {
		return nil, err
	}

	if err := st.Approve(approvedBy); err != nil {
		return nil, err
	}

	if err := s.stockTakeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, st)
	response := ToStockTakeResponse(st)
	return &response, nil
}

// Reject moves the take to rejected with a reason
func (s *StockTakeService) Reject(ctx context.Context, companyID, stockTakeID, rejectedBy uuid.UUID, reason string) (*StockTakeResponse, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, stockTakeID)
	if err != nil {
		return nil, err
	}

	if err := st.Reject(rejectedBy, reason); err != nil {
		return nil, err
	}

	if err := s.stockTakeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, st)
	response := ToStockTakeResponse(st)
	return &response, nil
}

// Cancel abandons the take without any stock effect
func (s *StockTakeService) Cancel(ctx context.Context, companyID, stockTakeID uuid.UUID) (*StockTakeResponse, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, stockTakeID)
	if err != nil {
		return nil, err
	}

	if err := st.Cancel(); err != nil {
		return nil, err
	}

	if err := s.stockTakeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, st)
	response := ToStockTakeResponse(st)
	return &response, nil
}

// windowBreakdown buckets the movements that happened during the count
// window by type
func (s *StockTakeService) windowBreakdown(ctx context.Context, st *inventory.StockTake, productID uuid.UUID, from, to time.Time) (inventory.MovementBreakdown, error) {
	movements, err := s.movementRepo.FindInWindow(ctx, st.CompanyID, st.BranchID, productID, from, to)
	if err != nil {
		return nil, err
	}

	breakdown := make(inventory.MovementBreakdown)
	for i := range movements {
		breakdown[movements[i].MovementType] += movements[i].Quantity
	}
	return breakdown, nil
}

// reconcileItem computes what the physical count implies once the
// movements that happened during the count window are factored back in.
// The variance compares the adjusted count against the ledger quantity
// as it stands now, not against the snapshot taken when the count was
// recorded: movements posted through the ledger already moved both
// sides and must not be corrected a second time.
func (s *StockTakeService) reconcileItem(ctx context.Context, st *inventory.StockTake, item *inventory.StockTakeItem, from, to time.Time) (ItemReconciliation, error) {
	breakdown, err := s.windowBreakdown(ctx, st, item.ProductID, from, to)
	if err != nil {
		return ItemReconciliation{}, err
	}

	system, err := s.currentQuantity(ctx, st.CompanyID, st.BranchID, item.ProductID)
	if err != nil {
		return ItemReconciliation{}, err
	}

	net := breakdown.NetChange()
	adjusted := item.CountedQuantity + net
	return ItemReconciliation{
		ProductID:        item.ProductID,
		ExpectedQuantity: item.ExpectedQuantity,
		CountedQuantity:  item.CountedQuantity,
		SystemQuantity:   system,
		NetMovementDelta: net,
		AdjustedQuantity: adjusted,
		Variance:         adjusted - system,
		Breakdown:        breakdown,
	}, nil
}

// Preview computes the reconciliation outcome without touching the
// ledger or the take. The numbers match exactly what Finalize would
// post at the same moment.
func (s *StockTakeService) Preview(ctx context.Context, companyID, stockTakeID uuid.UUID) (*ReconciliationResult, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, stockTakeID)
	if err != nil {
		return nil, err
	}

	from, to := st.CountWindow()
	result := &ReconciliationResult{
		StockTakeID:     st.ID,
		ReferenceNumber: st.ReferenceNumber,
		WindowStart:     from,
		WindowEnd:       to,
		Items:           make([]ItemReconciliation, 0, len(st.Items)),
	}

	for i := range st.Items {
		rec, err := s.reconcileItem(ctx, st, &st.Items[i], from, to)
		if err != nil {
			return nil, err
		}
		result.Items = append(result.Items, rec)
		result.TotalVariance += rec.Variance
	}
	return result, nil
}

// Finalize reconciles every item and completes the take. Each item is
// its own transaction: the variance movement, the ledger change, and
// the item's reconciliation result commit together or not at all. An
// item that fails stops the run; items already reconciled stay
// reconciled and are skipped when Finalize is retried.
func (s *StockTakeService) Finalize(ctx context.Context, companyID, stockTakeID uuid.UUID) (*ReconciliationResult, error) {
	st, err := s.stockTakeRepo.FindByID(ctx, companyID, stockTakeID)
	if err != nil {
		return nil, err
	}

	if !st.Status.CanTransitionTo(inventory.StockTakeStatusCompleted) {
		return nil, shared.ErrInvalidStatusTransition
	}

	// Freeze the window before posting: the variance movements written
	// below must not feed back into the reconciliation of later items.
	// Persisted up front so a retry after a partial failure reuses the
	// same window instead of widening it.
	if st.EndedAt == nil {
		now := time.Now()
		st.EndedAt = &now
		if err := s.stockTakeRepo.Save(ctx, st); err != nil {
			return nil, err
		}
	}
	from, to := st.CountWindow()

	result := &ReconciliationResult{
		StockTakeID:     st.ID,
		ReferenceNumber: st.ReferenceNumber,
		WindowStart:     from,
		WindowEnd:       to,
		Items:           make([]ItemReconciliation, 0, len(st.Items)),
	}
	reason := fmt.Sprintf("Stock take %s", st.ReferenceNumber)
	docType := inventory.DocumentTypeStockTake
	docID := st.ID

	var pending []shared.DomainEvent
	for i := range st.Items {
		item := &st.Items[i]
		if item.AdjustedQuantity != nil {
			// Already reconciled by an earlier, partially failed run
			result.Items = append(result.Items, ItemReconciliation{
				ProductID:        item.ProductID,
				ExpectedQuantity: item.ExpectedQuantity,
				CountedQuantity:  item.CountedQuantity,
				SystemQuantity:   *item.AdjustedQuantity - item.Variance(),
				NetMovementDelta: item.MovementBreakdown.NetChange(),
				AdjustedQuantity: *item.AdjustedQuantity,
				Variance:         item.Variance(),
				Breakdown:        item.MovementBreakdown,
			})
			result.TotalVariance += item.Variance()
			continue
		}

		breakdown, err := s.windowBreakdown(ctx, st, item.ProductID, from, to)
		if err != nil {
			return nil, err
		}
		net := breakdown.NetChange()
		adjusted := item.CountedQuantity + net

		var rec ItemReconciliation
		err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			// The ledger quantity is read under the same row lock the
			// variance movement will take, so the correction lands on
			// the quantity it was computed against.
			level, err := repos.StockLevelRepo().GetOrCreateForUpdate(ctx, st.CompanyID, st.BranchID, item.ProductID)
			if err != nil {
				return err
			}
			variance := adjusted - level.Quantity

			if variance != 0 {
				movementType := inventory.MovementTypeManualIncrease
				quantity := variance
				if variance < 0 {
					movementType = inventory.MovementTypeManualDecrease
					quantity = -variance
				}
				_, events, err := s.stock.applyMovement(ctx, repos, movementRequest{
					CompanyID:    st.CompanyID,
					BranchID:     st.BranchID,
					ProductID:    item.ProductID,
					MovementType: movementType,
					Quantity:     quantity,
					UnitCost:     decimal.Zero,
					DocumentType: &docType,
					DocumentID:   &docID,
					Reason:       reason,
					PerformedBy:  &st.PerformedBy,
				})
				if err != nil {
					return err
				}
				pending = append(pending, events...)
			}

			rec = ItemReconciliation{
				ProductID:        item.ProductID,
				ExpectedQuantity: item.ExpectedQuantity,
				CountedQuantity:  item.CountedQuantity,
				SystemQuantity:   level.Quantity,
				NetMovementDelta: net,
				AdjustedQuantity: adjusted,
				Variance:         variance,
				Breakdown:        breakdown,
			}
			item.SetReconciliation(adjusted, variance, breakdown)
			return repos.StockTakeRepo().SaveItem(ctx, item)
		})
		if err != nil {
			return nil, err
		}

		result.Items = append(result.Items, rec)
		result.TotalVariance += rec.Variance
	}

	if err := st.Complete(); err != nil {
		return nil, err
	}
	if err := s.stockTakeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, st)
	s.stock.publishEvents(ctx, pending)
	return result, nil
}
