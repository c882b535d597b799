package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultPostingGuardTTL is how long a posted document key stays in the
// idempotency store
const DefaultPostingGuardTTL = 24 * time.Hour

// StockService is the stock adjustment engine. Every ledger mutation in
// the system goes through one of its entry points; each entry point
// pairs the stock level change with exactly one movement record inside
// a single transaction.
type StockService struct {
	scope            TransactionScope
	stockLevelRepo   inventory.StockLevelRepository
	movementRepo     inventory.StockMovementRepository
	eventPublisher   shared.EventPublisher
	idempotencyStore shared.IdempotencyStore
	postingGuardTTL  time.Duration
}

// NewStockService creates a new StockService
func NewStockService(
	scope TransactionScope,
	stockLevelRepo inventory.StockLevelRepository,
	movementRepo inventory.StockMovementRepository,
) *StockService {
	return &StockService{
		scope:           scope,
		stockLevelRepo:  stockLevelRepo,
		movementRepo:    movementRepo,
		postingGuardTTL: DefaultPostingGuardTTL,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables the posting guard backed by the given store
func (s *StockService) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotencyStore = store
}

// movementRequest describes one ledger mutation to apply
type movementRequest struct {
	CompanyID    uuid.UUID
	BranchID     uuid.UUID
	ProductID    uuid.UUID
	MovementType inventory.MovementType
	Quantity     int64
	UnitCost     decimal.Decimal
	DocumentType *inventory.DocumentType
	DocumentID   *uuid.UUID
	Reason       string
	PerformedBy  *uuid.UUID
}

// applyMovement mutates one stock level row under its row lock and
// appends the paired movement record. Must run inside a transaction
// scope; the caller owns commit and rollback.
func (s *StockService) applyMovement(ctx context.Context, repos TransactionalRepositories, req movementRequest) (*inventory.StockMovement, []shared.DomainEvent, error) {
	if req.Quantity <= 0 {
		return nil, nil, shared.ErrInvalidQuantity
	}

	level, err := repos.StockLevelRepo().GetOrCreateForUpdate(ctx, req.CompanyID, req.BranchID, req.ProductID)
	if err != nil {
		return nil, nil, err
	}

	before := level.Quantity
	delta := req.MovementType.Direction() * req.Quantity
	if err := level.Adjust(delta); err != nil {
		return nil, nil, err
	}

	movement, err := inventory.NewStockMovement(req.CompanyID, req.BranchID, req.ProductID, req.MovementType, req.Quantity, req.UnitCost)
	if err != nil {
		return nil, nil, err
	}
	movement.WithSnapshots(before, level.Quantity)
	if req.DocumentType != nil && req.DocumentID != nil {
		movement.WithDocument(*req.DocumentType, *req.DocumentID)
	}
	if req.Reason != "" {
		movement.WithReason(req.Reason)
	}
	if req.PerformedBy != nil {
		movement.WithPerformedBy(*req.PerformedBy)
	}

	if err := repos.StockLevelRepo().Save(ctx, level); err != nil {
		return nil, nil, err
	}
	if err := repos.MovementRepo().Create(ctx, movement); err != nil {
		return nil, nil, err
	}

	level.AddDomainEvent(inventory.NewStockAdjustedEvent(level, movement, before))
	events := level.GetDomainEvents()
	level.ClearDomainEvents()

	return movement, events, nil
}

// publishEvents publishes collected domain events after the transaction
// has committed. Best effort; a publish failure never unwinds the ledger.
func (s *StockService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}

func postingKey(doc inventory.StockDocument) string {
	return fmt.Sprintf("posting:%s:%s", doc.DocumentKind(), doc.DocumentID())
}

// guardPosting short-circuits a document that was already posted in a
// previous request. The document's own posting state remains the
// authoritative check; the store catches retries that carry a stale
// in-memory document.
func (s *StockService) guardPosting(ctx context.Context, doc inventory.StockDocument) error {
	if err := doc.State().CanPost(); err != nil {
		return err
	}
	if s.idempotencyStore == nil {
		return nil
	}
	processed, err := s.idempotencyStore.IsProcessed(ctx, postingKey(doc))
	if err != nil {
		return err
	}
	if processed {
		return shared.ErrAlreadyPosted
	}
	return nil
}

// recordPosting marks the document key as processed after a successful post
func (s *StockService) recordPosting(ctx context.Context, doc inventory.StockDocument) {
	if s.idempotencyStore == nil {
		return
	}
	_, _ = s.idempotencyStore.MarkProcessed(ctx, postingKey(doc), s.postingGuardTTL)
}

// postDocument applies every line of the document as one movement each,
// all inside a single transaction. On success the document is marked
// posted in memory; persisting the document is the caller's concern.
func (s *StockService) postDocument(ctx context.Context, doc inventory.StockDocument, movementType inventory.MovementType, reason string) error {
	if err := s.guardPosting(ctx, doc); err != nil {
		return err
	}

	docType := doc.DocumentKind()
	docID := doc.DocumentID()

	var pending []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, line := range doc.Lines() {
			_, events, err := s.applyMovement(ctx, repos, movementRequest{
				CompanyID:    doc.Company(),
				BranchID:     doc.Branch(),
				ProductID:    line.Product(),
				MovementType: movementType,
				Quantity:     line.LineQuantity(),
				UnitCost:     line.LineUnitCost(),
				DocumentType: &docType,
				DocumentID:   &docID,
				Reason:       reason,
			})
			if err != nil {
				return err
			}
			pending = append(pending, events...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	doc.MarkPosted()
	s.recordPosting(ctx, doc)
	s.publishEvents(ctx, pending)
	return nil
}

// DecreaseStockForSale posts a sales invoice: every line leaves the
// branch as a SALE movement
func (s *StockService) DecreaseStockForSale(ctx context.Context, doc inventory.StockDocument) error {
	return s.postDocument(ctx, doc, inventory.MovementTypeSale, "")
}

// IncreaseStockForPurchaseOrder posts goods received against a purchase
// order
func (s *StockService) IncreaseStockForPurchaseOrder(ctx context.Context, doc inventory.StockDocument) error {
	return s.postDocument(ctx, doc, inventory.MovementTypePurchase, "")
}

// IncreaseStockForPurchaseInvoice posts goods received against a
// purchase invoice
func (s *StockService) IncreaseStockForPurchaseInvoice(ctx context.Context, doc inventory.StockDocument) error {
	return s.postDocument(ctx, doc, inventory.MovementTypePurchase, "")
}

// IncreaseStockForSalesReturn posts a customer return: goods come back
// into the branch
func (s *StockService) IncreaseStockForSalesReturn(ctx context.Context, doc inventory.StockDocument) error {
	return s.postDocument(ctx, doc, inventory.MovementTypeSaleReturn, "")
}

// DecreaseStockForPurchaseReturn posts a return to supplier: goods leave
// the branch
func (s *StockService) DecreaseStockForPurchaseReturn(ctx context.Context, doc inventory.StockDocument) error {
	return s.postDocument(ctx, doc, inventory.MovementTypePurchaseReturn, "")
}

// IncreaseStockForVoidedSale reverses a posted sale: every line comes
// back as a VOIDED_SALE movement, symmetric with the original SALE.
// Voiding a document twice fails with ALREADY_REVERSED.
func (s *StockService) IncreaseStockForVoidedSale(ctx context.Context, doc inventory.StockDocument, reason string) error {
	if err := doc.State().CanReverse(); err != nil {
		return err
	}

	docType := doc.DocumentKind()
	docID := doc.DocumentID()

	var pending []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, line := range doc.Lines() {
			_, events, err := s.applyMovement(ctx, repos, movementRequest{
				CompanyID:    doc.Company(),
				BranchID:     doc.Branch(),
				ProductID:    line.Product(),
				MovementType: inventory.MovementTypeVoidedSale,
				Quantity:     line.LineQuantity(),
				UnitCost:     line.LineUnitCost(),
				DocumentType: &docType,
				DocumentID:   &docID,
				Reason:       reason,
			})
			if err != nil {
				return err
			}
			pending = append(pending, events...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	doc.MarkReversed()
	s.publishEvents(ctx, pending)
	return nil
}

// PostTransfer moves every line of the transfer from the source branch
// to the destination branch in one transaction. Both stock level rows
// per line are locked up front in (branch, product) order, so two
// opposite transfers touching the same rows cannot deadlock.
func (s *StockService) PostTransfer(ctx context.Context, doc inventory.TransferDocument) error {
	if err := s.guardPosting(ctx, doc); err != nil {
		return err
	}
	if doc.SourceBranch() == doc.DestinationBranch() {
		return shared.NewDomainError("INVALID_TRANSFER", "Source and destination branch must differ")
	}

	docType := doc.DocumentKind()
	docID := doc.DocumentID()
	reason := doc.Reference()

	var pending []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		type lockKey struct {
			branch  uuid.UUID
			product uuid.UUID
		}
		keys := make([]lockKey, 0, len(doc.Lines())*2)
		for _, line := range doc.Lines() {
			keys = append(keys,
				lockKey{doc.SourceBranch(), line.Product()},
				lockKey{doc.DestinationBranch(), line.Product()},
			)
		}
		sort.Slice(keys, func(i, j int) bool {
			if c := bytes.Compare(keys[i].branch[:], keys[j].branch[:]); c != 0 {
				return c < 0
			}
			return bytes.Compare(keys[i].product[:], keys[j].product[:]) < 0
		})
		for _, k := range keys {
			if _, err := repos.StockLevelRepo().GetOrCreateForUpdate(ctx, doc.Company(), k.branch, k.product); err != nil {
				return err
			}
		}

		for _, line := range doc.Lines() {
			out := movementRequest{
				CompanyID:    doc.Company(),
				BranchID:     doc.SourceBranch(),
				ProductID:    line.Product(),
				MovementType: inventory.MovementTypeTransferOut,
				Quantity:     line.LineQuantity(),
				UnitCost:     line.LineUnitCost(),
				DocumentType: &docType,
				DocumentID:   &docID,
				Reason:       reason,
			}
			_, events, err := s.applyMovement(ctx, repos, out)
			if err != nil {
				return err
			}
			pending = append(pending, events...)

			in := out
			in.BranchID = doc.DestinationBranch()
			in.MovementType = inventory.MovementTypeTransferIn
			_, events, err = s.applyMovement(ctx, repos, in)
			if err != nil {
				return err
			}
			pending = append(pending, events...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	doc.MarkPosted()
	s.recordPosting(ctx, doc)
	s.publishEvents(ctx, pending)
	return nil
}

// DecreaseStockForTransfer posts the outbound leg of a transfer on its
// own: every line leaves the document's branch as TRANSFER_OUT. Used
// when the two legs are posted independently; PostTransfer posts both
// sides atomically.
func (s *StockService) DecreaseStockForTransfer(ctx context.Context, doc inventory.StockDocument, reference string) error {
	return s.postDocument(ctx, doc, inventory.MovementTypeTransferOut, reference)
}

// IncreaseStockForTransfer posts the inbound leg of a transfer: every
// line arrives at the document's branch as TRANSFER_IN
func (s *StockService) IncreaseStockForTransfer(ctx context.Context, doc inventory.StockDocument, reference string) error {
	return s.postDocument(ctx, doc, inventory.MovementTypeTransferIn, reference)
}

// AdjustStockManually applies a signed correction outside any document
// flow. A positive delta records MANUAL_INCREASE, a negative one
// MANUAL_DECREASE.
func (s *StockService) AdjustStockManually(ctx context.Context, req ManualAdjustmentRequest) (*StockMovementResponse, error) {
	if req.Delta == 0 {
		return nil, shared.ErrInvalidQuantity
	}

	movementType := inventory.MovementTypeManualIncrease
	quantity := req.Delta
	if req.Delta < 0 {
		movementType = inventory.MovementTypeManualDecrease
		quantity = -req.Delta
	}

	var response *StockMovementResponse
	var pending []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movement, events, err := s.applyMovement(ctx, repos, movementRequest{
			CompanyID:    req.CompanyID,
			BranchID:     req.BranchID,
			ProductID:    req.ProductID,
			MovementType: movementType,
			Quantity:     quantity,
			UnitCost:     req.UnitCost,
			Reason:       req.Reason,
			PerformedBy:  req.PerformedBy,
		})
		if err != nil {
			return err
		}
		pending = events
		r := ToStockMovementResponse(movement)
		response = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, pending)
	return response, nil
}

// WriteOffStock removes stock without a counterparty, recording damage,
// shrinkage, or a general write-off
func (s *StockService) WriteOffStock(ctx context.Context, req WriteOffRequest) (*StockMovementResponse, error) {
	movementType := req.MovementType
	if movementType == "" {
		movementType = inventory.MovementTypeWriteOff
	}
	if !movementType.IsWriteOff() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", "Write-off must use DAMAGE, SHRINKAGE or WRITE_OFF")
	}

	var response *StockMovementResponse
	var pending []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		movement, events, err := s.applyMovement(ctx, repos, movementRequest{
			CompanyID:    req.CompanyID,
			BranchID:     req.BranchID,
			ProductID:    req.ProductID,
			MovementType: movementType,
			Quantity:     req.Quantity,
			UnitCost:     req.UnitCost,
			Reason:       req.Reason,
			PerformedBy:  req.PerformedBy,
		})
		if err != nil {
			return err
		}
		pending = events
		r := ToStockMovementResponse(movement)
		response = &r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, pending)
	return response, nil
}

// GetProductStockQuantity returns the on-hand quantity for a product at
// a branch. A combination no movement has ever touched reads as zero.
func (s *StockService) GetProductStockQuantity(ctx context.Context, companyID, branchID, productID uuid.UUID) (int64, error) {
	level, err := s.stockLevelRepo.FindByProduct(ctx, companyID, branchID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return level.Quantity, nil
}

// GetTotalStockAcrossBranches sums the product's quantity over every
// branch of the company
func (s *StockService) GetTotalStockAcrossBranches(ctx context.Context, companyID, productID uuid.UUID) (int64, error) {
	return s.stockLevelRepo.TotalQuantityForProduct(ctx, companyID, productID)
}

// GetCurrentStockFromMovements derives the quantity from the movement
// log alone. Used as a cross-check against the stock level row.
func (s *StockService) GetCurrentStockFromMovements(ctx context.Context, companyID, branchID, productID uuid.UUID) (int64, error) {
	return s.movementRepo.SumSignedQuantity(ctx, companyID, branchID, productID)
}

// GetStockMovements lists movement history for a company, newest first
// by default
func (s *StockService) GetStockMovements(ctx context.Context, companyID uuid.UUID, filter inventory.MovementFilter) ([]StockMovementResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "movement_date"
		filter.OrderDir = "desc"
	}

	movements, total, err := s.movementRepo.FindAll(ctx, companyID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]StockMovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToStockMovementResponse(&movements[i])
	}
	return responses, total, nil
}

// ListStockLevels lists stock level rows for a company
func (s *StockService) ListStockLevels(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]StockLevelResponse, int64, error) {
	levels, total, err := s.stockLevelRepo.FindAllForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]StockLevelResponse, len(levels))
	for i := range levels {
		responses[i] = ToStockLevelResponse(&levels[i])
	}
	return responses, total, nil
}
