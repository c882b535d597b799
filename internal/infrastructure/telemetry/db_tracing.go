// Package telemetry wires OpenTelemetry tracing into the stock ledger.
package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the gorm tracing plugin
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL includes query parameters in spans. Off by default:
	// ledger queries carry company and product identifiers.
	LogFullSQL bool
	// SlowQueryThresh marks spans slower than this as slow queries
	SlowQueryThresh time.Duration
}

// DefaultDBTracingConfig returns the default database tracing settings
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
	}
}

// RegisterDBTracing attaches the otelgorm plugin plus a callback that
// flags slow ledger queries and records errors on the active span
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, log *zap.Logger) error {
	if !cfg.Enabled {
		log.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName("postgresql"),
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	marker := spanMarker{slowQueryThresh: cfg.SlowQueryThresh}
	if err := marker.register(db); err != nil {
		return err
	}

	log.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

// spanMarker enriches the otelgorm span after each operation: affected
// rows, table name, errors, and a slow-query event
type spanMarker struct {
	slowQueryThresh time.Duration
}

func (m spanMarker) register(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("ledger_tracing:before_create", m.before); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register("ledger_tracing:before_query", m.before); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("ledger_tracing:before_update", m.before); err != nil {
		return err
	}
	if err := db.Callback().Raw().Before("gorm:raw").Register("ledger_tracing:before_raw", m.before); err != nil {
		return err
	}

	if err := db.Callback().Create().After("gorm:create").Register("ledger_tracing:after_create", m.after); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").Register("ledger_tracing:after_query", m.after); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("ledger_tracing:after_update", m.after); err != nil {
		return err
	}
	if err := db.Callback().Raw().After("gorm:raw").Register("ledger_tracing:after_raw", m.after); err != nil {
		return err
	}
	return nil
}

type contextKey string

const queryStartKey contextKey = "ledger_query_start"

func (m spanMarker) before(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey, time.Now())
	}
}

func (m spanMarker) after(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if start, ok := ctx.Value(queryStartKey).(time.Time); ok {
		elapsed := time.Since(start)
		if elapsed > m.slowQueryThresh {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.AddEvent("slow_query", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", m.slowQueryThresh.Milliseconds()),
			))
		}
	}
}
