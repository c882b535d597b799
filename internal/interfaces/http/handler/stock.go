package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/retailpos/backend/internal/application/inventory"
	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// parseDateTime parses a datetime string in various formats
func parseDateTime(s string) (time.Time, error) {
	// Try RFC3339 first
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	// Try ISO date format
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	// Try datetime without timezone
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	// Default to RFC3339 parsing error
	return time.Parse(time.RFC3339, s)
}

// StockHandler handles stock level and movement API endpoints
type StockHandler struct {
	BaseHandler
	stockService *inventoryapp.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stockService *inventoryapp.StockService) *StockHandler {
	return &StockHandler{
		stockService: stockService,
	}
}

// StockLevelListQuery carries the query parameters for listing stock levels
type StockLevelListQuery struct {
	BranchID     string `form:"branch_id"`
	ProductID    string `form:"product_id"`
	BelowReorder bool   `form:"below_reorder"`
	HasStock     bool   `form:"has_stock"`
	NoStock      bool   `form:"no_stock"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	OrderBy      string `form:"order_by"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// MovementListQuery carries the query parameters for listing movements
type MovementListQuery struct {
	BranchID     string `form:"branch_id"`
	ProductID    string `form:"product_id"`
	MovementType string `form:"movement_type"`
	DocumentType string `form:"document_type"`
	DocumentID   string `form:"document_id"`
	From         string `form:"from"`
	To           string `form:"to"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
	OrderBy      string `form:"order_by"`
	OrderDir     string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// StockQuantityResponse reports the current quantity for one scope
type StockQuantityResponse struct {
	ProductID uuid.UUID  `json:"product_id"`
	BranchID  *uuid.UUID `json:"branch_id,omitempty"`
	Quantity  int64      `json:"quantity"`
}

// TransferLineRequest is one product line on a transfer request
type TransferLineRequest struct {
	ProductID string          `json:"product_id" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// TransferRequest moves stock between two branches of the company
type TransferRequest struct {
	DocumentID          string                `json:"document_id"`
	SourceBranchID      string                `json:"source_branch_id" binding:"required"`
	DestinationBranchID string                `json:"destination_branch_id" binding:"required"`
	Reference           string                `json:"reference"`
	Lines               []TransferLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ListStockLevels handles GET /stock/levels.
// Lists the company's stock level rows with optional branch/product and
// threshold filters.
func (h *StockHandler) ListStockLevels(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q StockLevelListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	filter := shared.DefaultFilter()
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		filter.OrderDir = q.OrderDir
	}
	if q.BranchID != "" {
		branchID, err := uuid.Parse(q.BranchID)
		if err != nil {
			h.BadRequest(c, "Invalid branch ID format")
			return
		}
		filter.Filters["branch_id"] = branchID
	}
	if q.ProductID != "" {
		productID, err := uuid.Parse(q.ProductID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		filter.Filters["product_id"] = productID
	}
	if q.BelowReorder {
		filter.Filters["below_reorder"] = true
	}
	if q.HasStock {
		filter.Filters["has_stock"] = true
	}
	if q.NoStock {
		filter.Filters["no_stock"] = true
	}

	levels, total, err := h.stockService.ListStockLevels(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, levels, total, filter.Page, filter.PageSize)
}

// GetProductQuantity handles GET /stock/levels/quantity.
// Returns the ledger quantity for one (branch, product) pair; a product
// with no ledger row reads as zero.
func (h *StockHandler) GetProductQuantity(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "Invalid branch ID format")
		return
	}

	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	quantity, err := h.stockService.GetProductStockQuantity(c.Request.Context(), companyID, branchID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, StockQuantityResponse{
		ProductID: productID,
		BranchID:  &branchID,
		Quantity:  quantity,
	})
}

// GetTotalQuantity handles GET /stock/products/:product_id/total.
// Sums the product's quantity across every branch of the company.
func (h *StockHandler) GetTotalQuantity(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	total, err := h.stockService.GetTotalStockAcrossBranches(c.Request.Context(), companyID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, StockQuantityResponse{
		ProductID: productID,
		Quantity:  total,
	})
}

// GetDerivedQuantity handles GET /stock/levels/derived.
// Derives the quantity from the signed sum of movements, as a cross-check
// against the stock level row.
func (h *StockHandler) GetDerivedQuantity(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		h.BadRequest(c, "Invalid branch ID format")
		return
	}

	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	quantity, err := h.stockService.GetCurrentStockFromMovements(c.Request.Context(), companyID, branchID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, StockQuantityResponse{
		ProductID: productID,
		BranchID:  &branchID,
		Quantity:  quantity,
	})
}

// ListMovements handles GET /stock/movements.
// Lists movement records ordered by movement date descending unless the
// query asks otherwise.
func (h *StockHandler) ListMovements(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q MovementListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	filter := inventory.MovementFilter{Filter: shared.DefaultFilter()}
	filter.OrderBy = "movement_date"
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	if q.OrderBy != "" {
		filter.OrderBy = q.OrderBy
	}
	if q.OrderDir != "" {
		filter.OrderDir = q.OrderDir
	}
	if q.BranchID != "" {
		branchID, err := uuid.Parse(q.BranchID)
		if err != nil {
			h.BadRequest(c, "Invalid branch ID format")
			return
		}
		filter.BranchID = &branchID
	}
	if q.ProductID != "" {
		productID, err := uuid.Parse(q.ProductID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		filter.ProductID = &productID
	}
	if q.MovementType != "" {
		movementType := inventory.MovementType(q.MovementType)
		if !movementType.IsValid() {
			h.BadRequest(c, "Invalid movement type")
			return
		}
		filter.MovementType = &movementType
	}
	if q.DocumentType != "" {
		documentType := inventory.DocumentType(q.DocumentType)
		filter.DocumentType = &documentType
	}
	if q.DocumentID != "" {
		documentID, err := uuid.Parse(q.DocumentID)
		if err != nil {
			h.BadRequest(c, "Invalid document ID format")
			return
		}
		filter.DocumentID = &documentID
	}
	if q.From != "" {
		from, err := parseDateTime(q.From)
		if err != nil {
			h.BadRequest(c, "Invalid from date format")
			return
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := parseDateTime(q.To)
		if err != nil {
			h.BadRequest(c, "Invalid to date format")
			return
		}
		filter.To = &to
	}

	movements, total, err := h.stockService.GetStockMovements(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, movements, total, filter.Page, filter.PageSize)
}

// AdjustStock handles POST /stock/adjustments.
// Applies a signed manual correction and records the paired movement.
func (h *StockHandler) AdjustStock(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req inventoryapp.ManualAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CompanyID = companyID

	if req.PerformedBy == nil {
		if userID, err := getUserID(c); err == nil {
			req.PerformedBy = &userID
		}
	}

	movement, err := h.stockService.AdjustStockManually(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, movement)
}

// WriteOffStock handles POST /stock/write-offs.
// Removes stock as damage, shrinkage, or a general write-off.
func (h *StockHandler) WriteOffStock(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req inventoryapp.WriteOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CompanyID = companyID

	if req.PerformedBy == nil {
		if userID, err := getUserID(c); err == nil {
			req.PerformedBy = &userID
		}
	}

	movement, err := h.stockService.WriteOffStock(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, movement)
}

// PostTransfer handles POST /stock/transfers.
// Moves the listed lines from the source branch to the destination branch
// in a single transaction.
func (h *StockHandler) PostTransfer(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := buildTransferDocument(companyID, req)
	if err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.stockService.PostTransfer(c.Request.Context(), doc); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{
		"document_id": doc.DocumentID(),
		"state":       doc.State(),
	})
}
