package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/retailpos/backend/internal/application/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
)

// StockTakeHandler handles stock take workflow API endpoints
type StockTakeHandler struct {
	BaseHandler
	stockTakeService *inventoryapp.StockTakeService
}

// NewStockTakeHandler creates a new StockTakeHandler
func NewStockTakeHandler(stockTakeService *inventoryapp.StockTakeService) *StockTakeHandler {
	return &StockTakeHandler{
		stockTakeService: stockTakeService,
	}
}

// StockTakeListQuery carries the query parameters for listing stock takes
type StockTakeListQuery struct {
	BranchID string `form:"branch_id"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// Create handles POST /stock-takes.
// Opens a new counting session, optionally seeded with counted items.
func (h *StockTakeHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req inventoryapp.CreateStockTakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CompanyID = companyID

	stockTake, err := h.stockTakeService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, stockTake)
}

// GetByID handles GET /stock-takes/:id
func (h *StockTakeHandler) GetByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	stockTake, err := h.stockTakeService.GetByID(c.Request.Context(), companyID, stockTakeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stockTake)
}

// List handles GET /stock-takes
func (h *StockTakeHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q StockTakeListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}

	filter := shared.DefaultFilter()
	filter.OrderBy = "started_at"
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
	if q.Status != "" {
		filter.Filters["status"] = q.Status
	}

	stockTakes, total, err := h.stockTakeService.List(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, stockTakes, total, filter.Page, filter.PageSize)
}

// AddItem handles POST /stock-takes/:id/items
func (h *StockTakeHandler) AddItem(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	var req inventoryapp.AddStockTakeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	stockTake, err := h.stockTakeService.AddItem(c.Request.Context(), companyID, stockTakeID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stockTake)
}

// UpdateItem handles PUT /stock-takes/:id/items/:product_id
func (h *StockTakeHandler) UpdateItem(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req inventoryapp.UpdateStockTakeItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	stockTake, err := h.stockTakeService.UpdateItem(c.Request.Context(), companyID, stockTakeID, productID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stockTake)
}

// ConfirmItem handles POST /stock-takes/:id/items/:product_id/confirm.
// A confirmed item can no longer be recounted.
func (h *StockTakeHandler) ConfirmItem(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	stockTake, err := h.stockTakeService.ConfirmItem(c.Request.Context(), companyID, stockTakeID, productID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stockTake)
}

// Approve handles POST /stock-takes/:id/approve
func (h *StockTakeHandler) Approve(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	approvedBy, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Approver user ID required")
		return
	}

	stockTake, err := h.stockTakeService.Approve(c.Request.Context(), companyID, stockTakeID, approvedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stockTake)
}

// Reject handles POST /stock-takes/:id/reject
func (h *StockTakeHandler) Reject(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	rejectedBy, err := getUserID(c)
	if err != nil {
		h.BadRequest(c, "Reviewer user ID required")
		return
	}

	var req inventoryapp.RejectStockTakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	stockTake, err := h.stockTakeService.Reject(c.Request.Context(), companyID, stockTakeID, rejectedBy, req.Reason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stockTake)
}

// Cancel handles POST /stock-takes/:id/cancel
func (h *StockTakeHandler) Cancel(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	stockTake, err := h.stockTakeService.Cancel(c.Request.Context(), companyID, stockTakeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stockTake)
}

// Preview handles GET /stock-takes/:id/preview.
// Runs the reconciliation computation read-only; nothing is written.
func (h *StockTakeHandler) Preview(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	result, err := h.stockTakeService.Preview(c.Request.Context(), companyID, stockTakeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Finalize handles POST /stock-takes/:id/finalize.
// Posts each non-zero variance as a correction and completes the take.
func (h *StockTakeHandler) Finalize(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	stockTakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid stock take ID format")
		return
	}

	result, err := h.stockTakeService.Finalize(c.Request.Context(), companyID, stockTakeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
