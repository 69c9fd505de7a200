package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"merch-inventory-dashboard/pkg/apierror"
)

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]int{"count": 2})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"count":2}}`, rec.Body.String())
}

func TestError_WrappedAPIError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, fmt.Errorf("sell: %w", apierror.InsufficientStock("B1")))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"INSUFFICIENT_STOCK","message":"insufficient stock for item \"B1\""}}`, rec.Body.String())
}

func TestError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, apierror.ValidationError("invalid item", apierror.FieldError{Field: "price", Message: "must not be negative"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"VALIDATION_ERROR","message":"invalid item","details":[{"field":"price","message":"must not be negative"}]}}`, rec.Body.String())
}

func TestError_PlainErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
