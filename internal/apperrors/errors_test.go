package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponse(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		hasHint bool
	}{
		{"validation", Validation("bad input", "pincode: must be 6 digits"), http.StatusBadRequest, "VALIDATION_ERROR", false},
		{"authentication", Authentication(""), http.StatusUnauthorized, "AUTHENTICATION_ERROR", false},
		{"authorization", Authorization(""), http.StatusForbidden, "AUTHORIZATION_ERROR", false},
		{"not found", NotFound("order", "x"), http.StatusNotFound, "NOT_FOUND", false},
		{"database", Database("insert order", errors.New("dial tcp 10.0.0.5:3306"), CodeUniqueViolation, "order_number already taken"), http.StatusInternalServerError, CodeUniqueViolation, true},
		{"rate limited", RateLimited(), http.StatusTooManyRequests, "RATE_LIMITED", false},
		{"gateway", Gateway("payment gateway unavailable", errors.New("secret=abc")), http.StatusBadGateway, "GATEWAY_ERROR", false},
		{"wrapped", fmt.Errorf("create order: %w", NotFound("product", "y")), http.StatusNotFound, "NOT_FOUND", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Response(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.code, body["code"])
			_, hint := body["hint"]
			assert.Equal(t, tt.hasHint, hint)
			assert.NotContains(t, fmt.Sprint(body), "10.0.0.5")
			assert.NotContains(t, fmt.Sprint(body), "secret=abc")
		})
	}
}

func TestResponse_PlainErrorIsOpaque(t *testing.T) {
	status, body := Response(errors.New("pq: password authentication failed for user storefront"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, body, "code")
}

func TestKindHelpers(t *testing.T) {
	dup := fmt.Errorf("tx: %w", Database("insert", nil, CodeUniqueViolation, ""))
	assert.True(t, IsUniqueViolation(dup))
	assert.False(t, IsNoData(dup))
	assert.True(t, IsNoData(Database("get", nil, CodeNoData, "")))
	assert.True(t, IsKind(NotFound("user", "a@b.c"), KindNotFound))
	assert.False(t, IsKind(errors.New("x"), KindNotFound))
}
