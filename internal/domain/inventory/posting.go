package inventory

import (
	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PostingState tracks whether a document's stock effect has been applied.
// A document starts unposted, moves to posted when its stock effect is
// applied, and to reversed when that effect is undone. Each transition
// happens at most once.
type PostingState string

const (
	PostingStateUnposted PostingState = "unposted"
	PostingStatePosted   PostingState = "posted"
	PostingStateReversed PostingState = "reversed"
)

// IsValid checks if the posting state is one of the defined states
func (s PostingState) IsValid() bool {
	switch s {
	case PostingStateUnposted, PostingStatePosted, PostingStateReversed:
		return true
	}
	return false
}

// CanPost reports whether a document in this state may be posted.
// Returns the domain error to surface when it may not.
func (s PostingState) CanPost() error {
	switch s {
	case PostingStateUnposted:
		return nil
	case PostingStateReversed:
		return shared.ErrAlreadyReversed
	default:
		return shared.ErrAlreadyPosted
	}
}

// CanReverse reports whether a document in this state may be reversed
func (s PostingState) CanReverse() error {
	switch s {
	case PostingStatePosted:
		return nil
	case PostingStateReversed:
		return shared.ErrAlreadyReversed
	default:
		return shared.NewDomainError("NOT_POSTED", "Document has not been posted")
	}
}

// DocumentType identifies the kind of business document behind a movement
type DocumentType string

const (
	DocumentTypeSalesInvoice    DocumentType = "SALES_INVOICE"
	DocumentTypePurchaseOrder   DocumentType = "PURCHASE_ORDER"
	DocumentTypePurchaseInvoice DocumentType = "PURCHASE_INVOICE"
	DocumentTypeSalesReturn     DocumentType = "SALES_RETURN"
	DocumentTypePurchaseReturn  DocumentType = "PURCHASE_RETURN"
	DocumentTypeStockTransfer   DocumentType = "STOCK_TRANSFER"
	DocumentTypeStockTake       DocumentType = "STOCK_TAKE"
	DocumentTypeManual          DocumentType = "MANUAL"
)

// DocumentLine is one product line on a stock-affecting document
type DocumentLine interface {
	Product() uuid.UUID
	LineQuantity() int64
	LineUnitCost() decimal.Decimal
}

// StockDocument is a business document whose posting moves stock.
// The adjustment engine works purely against this interface; it never
// inspects the concrete document type.
type StockDocument interface {
	DocumentID() uuid.UUID
	DocumentKind() DocumentType
	Company() uuid.UUID
	Branch() uuid.UUID
	Lines() []DocumentLine
	State() PostingState
	MarkPosted()
	MarkReversed()
}

// TransferDocument is a stock document that moves lines between two
// branches of the same company
type TransferDocument interface {
	StockDocument
	SourceBranch() uuid.UUID
	DestinationBranch() uuid.UUID
	Reference() string
}
