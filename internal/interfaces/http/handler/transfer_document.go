package handler

import (
	"errors"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// transferLine adapts one request line to the posting engine's line interface
type transferLine struct {
	productID uuid.UUID
	quantity  int64
	unitCost  decimal.Decimal
}

func (l transferLine) Product() uuid.UUID { return l.productID }
func (l transferLine) LineQuantity() int64 { return l.quantity }
func (l transferLine) LineUnitCost() decimal.Decimal { return l.unitCost }

// transferDocument is the HTTP-originated transfer posted through the
// adjustment engine. It starts unposted; the engine flips the state and
// the idempotency store guards replays of the same document ID.
type transferDocument struct {
	id          uuid.UUID
	companyID   uuid.UUID
	source      uuid.UUID
	destination uuid.UUID
	reference   string
	lines       []inventory.DocumentLine
	state       inventory.PostingState
}

func (d *transferDocument) DocumentID() uuid.UUID { return d.id }
func (d *transferDocument) DocumentKind() inventory.DocumentType { return inventory.DocumentTypeStockTransfer }
func (d *transferDocument) Company() uuid.UUID { return d.companyID }
func (d *transferDocument) Branch() uuid.UUID { return d.source }
func (d *transferDocument) Lines() []inventory.DocumentLine { return d.lines }
func (d *transferDocument) State() inventory.PostingState { return d.state }
func (d *transferDocument) MarkPosted() { d.state = inventory.PostingStatePosted }
func (d *transferDocument) MarkReversed() { d.state = inventory.PostingStateReversed }
func (d *transferDocument) SourceBranch() uuid.UUID { return d.source }
func (d *transferDocument) DestinationBranch() uuid.UUID { return d.destination }
func (d *transferDocument) Reference() string { return d.reference }

// buildTransferDocument validates a transfer request and assembles the
// document the posting engine consumes
func buildTransferDocument(companyID uuid.UUID, req TransferRequest) (inventory.TransferDocument, error) {
	sourceID, err := uuid.Parse(req.SourceBranchID)
	if err != nil {
		return nil, errors.New("invalid source branch ID format")
	}

	destinationID, err := uuid.Parse(req.DestinationBranchID)
	if err != nil {
		return nil, errors.New("invalid destination branch ID format")
	}

	docID := uuid.New()
	if req.DocumentID != "" {
		docID, err = uuid.Parse(req.DocumentID)
		if err != nil {
			return nil, errors.New("invalid document ID format")
		}
	}

	lines := make([]inventory.DocumentLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, errors.New("invalid product ID format in transfer line")
		}
		lines = append(lines, transferLine{
			productID: productID,
			quantity:  line.Quantity,
			unitCost:  line.UnitCost,
		})
	}

	return &transferDocument{
		id:          docID,
		companyID:   companyID,
		source:      sourceID,
		destination: destinationID,
		reference:   req.Reference,
		lines:       lines,
		state:       inventory.PostingStateUnposted,
	}, nil
}
