package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing returns OpenTelemetry middleware for the API. Spans are named
// after the matched route and enriched with the request id and the
// company scope, so a trace can be followed from an HTTP posting request
// down to its ledger queries.
func Tracing(serviceName string) gin.HandlerFunc {
	base := otelgin.Middleware(serviceName)

	return func(c *gin.Context) {
		base(c)

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if requestID := c.GetString("request_id"); requestID != "" {
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if companyID := tracedCompanyID(c); companyID != "" {
			span.SetAttributes(attribute.String("company_id", companyID))
		}

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
	}
}

// tracedCompanyID returns the company scope for the span. Header values
// that are not UUIDs are dropped rather than recorded.
func tracedCompanyID(c *gin.Context) string {
	if companyID := GetCompanyID(c); companyID != "" {
		return companyID
	}
	header := c.GetHeader(CompanyHeaderKey)
	if _, err := uuid.Parse(header); err != nil {
		return ""
	}
	return header
}
