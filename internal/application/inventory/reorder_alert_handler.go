package inventory

import (
	"context"
	"fmt"

	"github.com/retailpos/backend/internal/domain/inventory"
	"github.com/retailpos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReorderAlertHandler reacts to StockBelowReorderLevel events and pushes
// a reorder alert to whoever is listening
type ReorderAlertHandler struct {
	logger   *zap.Logger
	notifier ReorderNotifier
}

// ReorderNotifier is the interface for delivering reorder alerts.
// Implementations can support different channels (in-app, email, webhook).
type ReorderNotifier interface {
	// SendAlert delivers a reorder alert
	SendAlert(ctx context.Context, alert ReorderAlert) error
}

// ReorderAlert describes a product that dropped below its reorder level
type ReorderAlert struct {
	CompanyID       string `json:"company_id"`
	BranchID        string `json:"branch_id"`
	ProductID       string `json:"product_id"`
	Quantity        int64  `json:"quantity"`
	ReorderLevel    int64  `json:"reorder_level"`
	ReorderQuantity int64  `json:"reorder_quantity"`
	AlertType       string `json:"alert_type"` // "low_stock", "out_of_stock"
}

// NewReorderAlertHandler creates a new handler for reorder level events
func NewReorderAlertHandler(logger *zap.Logger) *ReorderAlertHandler {
	return &ReorderAlertHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for delivering alerts
func (h *ReorderAlertHandler) WithNotifier(notifier ReorderNotifier) *ReorderAlertHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *ReorderAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockBelowReorderLevel}
}

// Handle processes a StockBelowReorderLevelEvent
func (h *ReorderAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	reorderEvent, ok := event.(*inventory.StockBelowReorderLevelEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockBelowReorderLevel, event.EventType())
	}

	h.logger.Warn("stock below reorder level",
		zap.String("company_id", event.CompanyID().String()),
		zap.String("branch_id", reorderEvent.BranchID.String()),
		zap.String("product_id", reorderEvent.ProductID.String()),
		zap.Int64("quantity", reorderEvent.Quantity),
		zap.Int64("reorder_level", reorderEvent.ReorderLevel),
	)

	if h.notifier == nil {
		return nil
	}

	alertType := "low_stock"
	if reorderEvent.Quantity == 0 {
		alertType = "out_of_stock"
	}

	alert := ReorderAlert{
		CompanyID:       event.CompanyID().String(),
		BranchID:        reorderEvent.BranchID.String(),
		ProductID:       reorderEvent.ProductID.String(),
		Quantity:        reorderEvent.Quantity,
		ReorderLevel:    reorderEvent.ReorderLevel,
		ReorderQuantity: reorderEvent.ReorderQuantity,
		AlertType:       alertType,
	}
	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		// Notification failure must not fail event handling
		h.logger.Error("failed to send reorder alert",
			zap.String("product_id", alert.ProductID),
			zap.Error(err),
		)
	}
	return nil
}

// Ensure ReorderAlertHandler implements shared.EventHandler
var _ shared.EventHandler = (*ReorderAlertHandler)(nil)

// LoggingReorderNotifier logs alerts instead of delivering them.
// Useful for development and testing.
type LoggingReorderNotifier struct {
	logger *zap.Logger
}

// NewLoggingReorderNotifier creates a new logging notifier
func NewLoggingReorderNotifier(logger *zap.Logger) *LoggingReorderNotifier {
	return &LoggingReorderNotifier{
		logger: logger,
	}
}

// SendAlert logs the reorder alert
func (n *LoggingReorderNotifier) SendAlert(_ context.Context, alert ReorderAlert) error {
	n.logger.Warn("REORDER ALERT",
		zap.String("type", alert.AlertType),
		zap.String("product_id", alert.ProductID),
		zap.String("branch_id", alert.BranchID),
		zap.Int64("quantity", alert.Quantity),
		zap.Int64("reorder_level", alert.ReorderLevel),
		zap.Int64("reorder_quantity", alert.ReorderQuantity),
	)
	return nil
}

// Ensure LoggingReorderNotifier implements ReorderNotifier
var _ ReorderNotifier = (*LoggingReorderNotifier)(nil)
