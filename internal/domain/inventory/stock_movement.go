package inventory

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement. The set is closed: every
// ledger mutation records exactly one of these types.
type MovementType string

const (
	MovementTypePurchase       MovementType = "PURCHASE"
	MovementTypeSale           MovementType = "SALE"
	MovementTypeTransferIn     MovementType = "TRANSFER_IN"
	MovementTypeTransferOut    MovementType = "TRANSFER_OUT"
	MovementTypeSaleReturn     MovementType = "SALE_RETURN"
	MovementTypePurchaseReturn MovementType = "PURCHASE_RETURN"
	MovementTypeManualIncrease MovementType = "MANUAL_INCREASE"
	MovementTypeManualDecrease MovementType = "MANUAL_DECREASE"
	MovementTypeDamage         MovementType = "DAMAGE"
	MovementTypeShrinkage      MovementType = "SHRINKAGE"
	MovementTypeWriteOff       MovementType = "WRITE_OFF"
	MovementTypeVoidedSale     MovementType = "VOIDED_SALE"
)

// AllMovementTypes lists every valid movement type
var AllMovementTypes = []MovementType{
	MovementTypePurchase,
	MovementTypeSale,
	MovementTypeTransferIn,
	MovementTypeTransferOut,
	MovementTypeSaleReturn,
	MovementTypePurchaseReturn,
	MovementTypeManualIncrease,
	MovementTypeManualDecrease,
	MovementTypeDamage,
	MovementTypeShrinkage,
	MovementTypeWriteOff,
	MovementTypeVoidedSale,
}

// IsValid checks if the movement type is one of the defined types
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypePurchase, MovementTypeSale,
		MovementTypeTransferIn, MovementTypeTransferOut,
		MovementTypeSaleReturn, MovementTypePurchaseReturn,
		MovementTypeManualIncrease, MovementTypeManualDecrease,
		MovementTypeDamage, MovementTypeShrinkage,
		MovementTypeWriteOff, MovementTypeVoidedSale:
		return true
	}
	return false
}

// Direction returns +1 for movements that bring stock into the branch
// and -1 for movements that take stock out
func (t MovementType) Direction() int64 {
	switch t {
	case MovementTypePurchase, MovementTypeTransferIn, MovementTypeSaleReturn,
		MovementTypeManualIncrease, MovementTypeVoidedSale:
		return 1
	case MovementTypeSale, MovementTypeTransferOut, MovementTypePurchaseReturn,
		MovementTypeManualDecrease, MovementTypeDamage, MovementTypeShrinkage,
		MovementTypeWriteOff:
		return -1
	default:
		return 0
	}
}

// IsInbound checks if the movement increases branch stock
func (t MovementType) IsInbound() bool {
	return t.Direction() > 0
}

// IsOutbound checks if the movement decreases branch stock
func (t MovementType) IsOutbound() bool {
	return t.Direction() < 0
}

// IsWriteOff checks if the movement type records stock leaving the
// ledger without a counterparty (damage, shrinkage, general write-off)
func (t MovementType) IsWriteOff() bool {
	return t == MovementTypeDamage || t == MovementTypeShrinkage || t == MovementTypeWriteOff
}

// StockMovement is an immutable, append-only record of a single ledger
// mutation. Quantity is always a positive magnitude; the sign comes from
// the movement type's direction. Business flows never update a movement
// after it is written.
type StockMovement struct {
	shared.BaseEntity
	CompanyID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_movements_scope"`
	BranchID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_movements_scope"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_movements_scope"`
	MovementType    MovementType    `gorm:"type:varchar(32);not null;index"`
	Quantity        int64           `gorm:"not null"`
	QuantityBefore  *int64
	QuantityAfter   *int64
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4)"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(20,4)"`
	ReferenceNumber string          `gorm:"type:varchar(32);not null;uniqueIndex"`
	DocumentType    *DocumentType   `gorm:"type:varchar(32)"`
	DocumentID      *uuid.UUID      `gorm:"type:uuid;index"`
	Reason          string          `gorm:"type:text"`
	PerformedBy     *uuid.UUID      `gorm:"type:uuid"`
	MovementDate    time.Time       `gorm:"not null;index"`
}

// TableName returns the database table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a movement record. Quantity must be positive;
// the direction is carried by the movement type.
func NewStockMovement(
	companyID, branchID, productID uuid.UUID,
	movementType MovementType,
	quantity int64,
	unitCost decimal.Decimal,
) (*StockMovement, error) {
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_TYPE", fmt.Sprintf("invalid movement type: %s", movementType))
	}
	if quantity <= 0 {
		return nil, shared.ErrInvalidQuantity
	}

	return &StockMovement{
		BaseEntity:      shared.NewBaseEntity(),
		CompanyID:       companyID,
		BranchID:        branchID,
		ProductID:       productID,
		MovementType:    movementType,
		Quantity:        quantity,
		UnitCost:        unitCost,
		TotalCost:       unitCost.Mul(decimal.NewFromInt(quantity)),
		ReferenceNumber: GenerateMovementReference(),
		MovementDate:    time.Now(),
	}, nil
}

// WithDocument links the movement to the business document that caused it
func (m *StockMovement) WithDocument(docType DocumentType, docID uuid.UUID) *StockMovement {
	m.DocumentType = &docType
	m.DocumentID = &docID
	return m
}

// WithReason attaches a free-text reason to the movement
func (m *StockMovement) WithReason(reason string) *StockMovement {
	m.Reason = reason
	return m
}

// WithPerformedBy records the user who triggered the movement
func (m *StockMovement) WithPerformedBy(userID uuid.UUID) *StockMovement {
	m.PerformedBy = &userID
	return m
}

// WithSnapshots records the ledger quantity before and after the mutation
func (m *StockMovement) WithSnapshots(before, after int64) *StockMovement {
	m.QuantityBefore = &before
	m.QuantityAfter = &after
	return m
}

// SignedQuantity returns the quantity with the direction applied:
// positive for inbound movements, negative for outbound
func (m *StockMovement) SignedQuantity() int64 {
	return m.MovementType.Direction() * m.Quantity
}

// GenerateMovementReference generates a unique movement reference in the
// format MOV-YYYYMMDD-XXXXXXXX where the suffix is 8 random hex characters
func GenerateMovementReference() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		id := uuid.New()
		copy(buf, id[:])
	}
	return fmt.Sprintf("MOV-%s-%s", time.Now().Format("20060102"), hex.EncodeToString(buf))
}

// MovementBreakdown maps movement types to the net quantity they moved
// within a window. Stored as JSON at the database boundary.
type MovementBreakdown map[MovementType]int64

// NetChange returns the signed sum of the breakdown: each bucket's
// quantity multiplied by its type's direction
func (b MovementBreakdown) NetChange() int64 {
	var net int64
	for t, qty := range b {
		net += t.Direction() * qty
	}
	return net
}

// Value implements driver.Valuer, serializing the breakdown to JSON
func (b MovementBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal movement breakdown: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner, deserializing the breakdown from JSON
func (b *MovementBreakdown) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for movement breakdown: %T", value)
	}

	return json.Unmarshal(data, b)
}
