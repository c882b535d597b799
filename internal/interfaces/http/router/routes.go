package router

import (
	"github.com/retailpos/backend/internal/interfaces/http/handler"
)

// StockRoutes builds the route tree for the stock ledger surface
func StockRoutes(h *handler.StockHandler) *DomainGroup {
	stock := NewDomainGroup("/stock")

	stock.GET("/levels", h.ListStockLevels)
	stock.GET("/levels/quantity", h.GetProductQuantity)
	stock.GET("/levels/derived", h.GetDerivedQuantity)
	stock.GET("/products/:product_id/total", h.GetTotalQuantity)
	stock.GET("/movements", h.ListMovements)
	stock.POST("/adjustments", h.AdjustStock)
	stock.POST("/write-offs", h.WriteOffStock)
	stock.POST("/transfers", h.PostTransfer)

	return stock
}

// StockTakeRoutes builds the route tree for the stock take workflow
func StockTakeRoutes(h *handler.StockTakeHandler) *DomainGroup {
	takes := NewDomainGroup("/stock-takes")

	takes.POST("", h.Create)
	takes.GET("", h.List)
	takes.GET("/:id", h.GetByID)
	takes.POST("/:id/items", h.AddItem)
	takes.PUT("/:id/items/:product_id", h.UpdateItem)
	takes.POST("/:id/items/:product_id/confirm", h.ConfirmItem)
	takes.POST("/:id/approve", h.Approve)
	takes.POST("/:id/reject", h.Reject)
	takes.POST("/:id/cancel", h.Cancel)
	takes.GET("/:id/preview", h.Preview)
	takes.POST("/:id/finalize", h.Finalize)

	return takes
}
