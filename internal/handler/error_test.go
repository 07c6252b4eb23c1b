package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{domain.EINVALID, http.StatusBadRequest},
		{domain.EUNAUTHORIZED, http.StatusUnauthorized},
		{domain.EPAYMENT, http.StatusPaymentRequired},
		{domain.EFORBIDDEN, http.StatusForbidden},
		{domain.ENOTFOUND, http.StatusNotFound},
		{domain.ECONFLICT, http.StatusConflict},
		{domain.EGONE, http.StatusGone},
		{domain.ETOOLARGE, http.StatusRequestEntityTooLarge},
		{domain.ERATELIMIT, http.StatusTooManyRequests},
		{domain.EINTERNAL, http.StatusInternalServerError},
		{domain.ENOTIMPL, http.StatusNotImplemented},
		{"unknown_code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := ErrorCodeToHTTPStatus(tt.code); got != tt.expected {
				t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.expected)
			}
		})
	}
}

// renderError runs err through the envelope error handler and returns the
// recorded response.
func renderError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(zerolog.Nop())(err, c)
	return rec
}

type failureEnvelope struct {
	Success bool `json:"success"`
	Errors  struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"errors"`
}

func decodeFailure(t *testing.T, rec *httptest.ResponseRecorder) failureEnvelope {
	t.Helper()

	var response failureEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestErrorHandler_Envelope(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "not found error",
			err:            domain.NotFound("product.get", "product", "abc-123"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   domain.ENOTFOUND,
		},
		{
			name:           "validation error",
			err:            domain.Invalid("product.create", "price must be positive"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   domain.EINVALID,
		},
		{
			name:           "forbidden error",
			err:            domain.Forbidden("order.update_status", "not authorized"),
			expectedStatus: http.StatusForbidden,
			expectedCode:   domain.EFORBIDDEN,
		},
		{
			name:           "conflict error",
			err:            domain.Conflict("payment.create", "order already paid"),
			expectedStatus: http.StatusConflict,
			expectedCode:   domain.ECONFLICT,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := renderError(t, tt.err)

			if rec.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}

			response := decodeFailure(t, rec)
			if response.Success {
				t.Error("success = true, want false")
			}
			if response.Errors.Code != tt.expectedCode {
				t.Errorf("errors.code = %q, want %q", response.Errors.Code, tt.expectedCode)
			}
			if response.Errors.Message == "" {
				t.Error("errors.message should not be empty")
			}
		})
	}
}

func TestErrorHandler_InternalHidesDetails(t *testing.T) {
	err := domain.Internal(nil, "db.query", "failed to connect to database at 192.168.1.100:5432")
	rec := renderError(t, err)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	response := decodeFailure(t, rec)
	expected := "An internal error occurred. Please try again later."
	if response.Errors.Message != expected {
		t.Errorf("message = %q, want %q", response.Errors.Message, expected)
	}
}

func TestErrorHandler_UnknownErrorHidesDetails(t *testing.T) {
	rec := renderError(t, errConnRefused{})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	response := decodeFailure(t, rec)
	if response.Errors.Code != domain.EINTERNAL {
		t.Errorf("errors.code = %q, want %q", response.Errors.Code, domain.EINTERNAL)
	}
	expected := "An internal error occurred. Please try again later."
	if response.Errors.Message != expected {
		t.Errorf("message = %q, want %q", response.Errors.Message, expected)
	}
}

type errConnRefused struct{}

func (errConnRefused) Error() string { return "dial tcp 10.0.0.9:5432: connect: connection refused" }

func TestErrorHandler_ValidationFields(t *testing.T) {
	err := domain.NewValidationError("product.create", "name", "name is required")
	err = domain.AddFieldError(err, "price", "price must be positive")

	rec := renderError(t, err)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	response := decodeFailure(t, rec)
	if response.Errors.Code != domain.EINVALID {
		t.Errorf("errors.code = %q, want %q", response.Errors.Code, domain.EINVALID)
	}
	if len(response.Errors.Fields) != 2 {
		t.Errorf("fields count = %d, want 2", len(response.Errors.Fields))
	}
	if response.Errors.Fields["name"] != "name is required" {
		t.Errorf("fields[name] = %q, want %q", response.Errors.Fields["name"], "name is required")
	}
}

func TestErrorHandler_EchoRouteMiss(t *testing.T) {
	rec := renderError(t, echo.ErrNotFound)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	response := decodeFailure(t, rec)
	if response.Errors.Code != domain.ENOTFOUND {
		t.Errorf("errors.code = %q, want %q", response.Errors.Code, domain.ENOTFOUND)
	}
}
