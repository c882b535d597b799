package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adjustmentPayload struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"max=500"`
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	assert.NotNil(t, v)
}

func TestFormatValidationErrors(t *testing.T) {
	SetupValidator()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/adjustments", func(c *gin.Context) {
		var req adjustmentPayload
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, FormatValidationErrors(err, RequestIDFromContext(c)))
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/adjustments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("invalid payload reports each field by json name", func(t *testing.T) {
		w := post(`{"product_id": "not-a-uuid", "quantity": -3}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Error   struct {
				Code    string `json:"code"`
				Message string `json:"message"`
				Details []struct {
					Field   string `json:"field"`
					Message string `json:"message"`
				} `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		assert.False(t, resp.Success)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)

		fields := make(map[string]string)
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Invalid UUID format", fields["product_id"])
		assert.Equal(t, "Must be greater than 0", fields["quantity"])
	})

	t.Run("valid payload passes", func(t *testing.T) {
		w := post(`{"product_id": "b2f6dfcd-1f6b-4f4e-8b36-0b4a9ef7d1c2", "quantity": 5}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidationMessage(t *testing.T) {
	type ruleSet struct {
		Required string `validate:"required"`
		Min      string `validate:"min=5"`
		MinNum   int    `validate:"min=1"`
		Max      string `validate:"max=10"`
		Len      string `validate:"len=5"`
		UUID     string `validate:"uuid"`
		OneOf    string `validate:"oneof=open completed"`
		GTE      int    `validate:"gte=10"`
		LTE      int    `validate:"lte=100"`
		Numeric  string `validate:"numeric"`
	}

	v := validator.New()
	err := v.Struct(ruleSet{
		Min:     "ab",
		MinNum:  0,
		Max:     "far too long for the cap",
		Len:     "ab",
		UUID:    "nope",
		OneOf:   "cancelled",
		GTE:     3,
		LTE:     200,
		Numeric: "abc",
	})
	require.Error(t, err)

	expected := map[string]string{
		"Required": "This field is required",
		"Min":      "Must be at least 5 characters",
		"MinNum":   "Must be at least 1",
		"Max":      "Must be at most 10 characters",
		"Len":      "Must be exactly 5 characters",
		"UUID":     "Invalid UUID format",
		"OneOf":    "Must be one of: open completed",
		"GTE":      "Must be greater than or equal to 10",
		"LTE":      "Must be less than or equal to 100",
		"Numeric":  "Must be numeric",
	}

	validationErrs := err.(validator.ValidationErrors)
	require.Len(t, validationErrs, len(expected))
	for _, e := range validationErrs {
		assert.Equal(t, expected[e.StructField()], validationMessage(e), e.StructField())
	}
}

func TestRequestIDFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("prefers the id set by the middleware", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		c.Request.Header.Set(RequestIDHeaderKey, "header-id")
		c.Set("request_id", "ctx-id")

		assert.Equal(t, "ctx-id", RequestIDFromContext(c))
	})

	t.Run("falls back to the header", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/", nil)
		c.Request.Header.Set(RequestIDHeaderKey, "header-id")

		assert.Equal(t, "header-id", RequestIDFromContext(c))
	})
}
