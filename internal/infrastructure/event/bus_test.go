package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/retailpos/backend/internal/domain/shared"
)

type ledgerEvent struct {
	shared.BaseDomainEvent
	MovementType string `json:"movement_type"`
}

func newLedgerEvent(eventType string) *ledgerEvent {
	return &ledgerEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "StockLevel", uuid.New(), uuid.New()),
		MovementType:    "SALE",
	}
}

type recordingHandler struct {
	eventTypes []string
	err        error
	panicMsg   string

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func (h *recordingHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	if h.panicMsg != "" {
		panic(h.panicMsg)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, ev)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.eventTypes }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to a matching handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{}
		bus.Subscribe(handler, "StockAdjusted")

		ev := newLedgerEvent("StockAdjusted")
		require.NoError(t, bus.Publish(ctx, ev))

		require.Equal(t, 1, handler.count())
		assert.Equal(t, ev, handler.handled[0])
	})

	t.Run("fans out to every subscriber", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		first := &recordingHandler{}
		second := &recordingHandler{}
		bus.Subscribe(first, "StockAdjusted")
		bus.Subscribe(second, "StockAdjusted")

		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockAdjusted"), newLedgerEvent("StockAdjusted")))

		assert.Equal(t, 2, first.count())
		assert.Equal(t, 2, second.count())
	})

	t.Run("handler without types receives everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		audit := &recordingHandler{}
		bus.Subscribe(audit)

		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockAdjusted")))
		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockBelowReorderLevel")))

		assert.Equal(t, 2, audit.count())
	})

	t.Run("unmatched event types are dropped", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{}
		bus.Subscribe(handler, "StockBelowReorderLevel")

		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockAdjusted")))
		assert.Zero(t, handler.count())
	})

	t.Run("a failing handler does not block the others", func(t *testing.T) {
		core, recorded := observer.New(zapcore.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))
		failing := &recordingHandler{err: errors.New("smtp unreachable")}
		healthy := &recordingHandler{}
		bus.Subscribe(failing, "StockBelowReorderLevel")
		bus.Subscribe(healthy, "StockBelowReorderLevel")

		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockBelowReorderLevel")))

		assert.Equal(t, 1, healthy.count())
		assert.Len(t, recorded.FilterMessage("event handler failed").All(), 1)
	})

	t.Run("a panicking handler is contained and logged", func(t *testing.T) {
		core, recorded := observer.New(zapcore.ErrorLevel)
		bus := NewInMemoryEventBus(zap.New(core))
		bad := &recordingHandler{panicMsg: "nil threshold"}
		healthy := &recordingHandler{}
		bus.Subscribe(bad, "StockAdjusted")
		bus.Subscribe(healthy, "StockAdjusted")

		require.NotPanics(t, func() {
			require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockAdjusted")))
		})

		assert.Equal(t, 1, healthy.count())
		entries := recorded.FilterMessage("event handler failed").All()
		require.Len(t, entries, 1)
	})
}

func TestInMemoryEventBus_Subscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to the handler's own event types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{eventTypes: []string{"StockBelowReorderLevel"}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockAdjusted")))
		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockBelowReorderLevel")))

		assert.Equal(t, 1, handler.count())
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{}
		bus.Subscribe(handler, "StockAdjusted")

		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockAdjusted")))
		bus.Unsubscribe(handler)
		require.NoError(t, bus.Publish(ctx, newLedgerEvent("StockAdjusted")))

		assert.Equal(t, 1, handler.count())
	})
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	require.NoError(t, bus.Start(context.Background()))

	handler := &recordingHandler{}
	bus.Subscribe(handler, "StockAdjusted")
	require.NoError(t, bus.Publish(context.Background(), newLedgerEvent("StockAdjusted")))
	assert.Equal(t, 1, handler.count())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}
