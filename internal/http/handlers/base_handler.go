// README: Base handler utilities (JSON envelopes, error-code mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"berline/internal/modules/chat"
	"berline/internal/modules/tariff"
)

// Error codes exposed on the wire. Everything else a component can fail with
// collapses into CodeInternal; diagnostics stay in the server logs.
const (
	CodeInvalidJSON    = "INVALID_JSON"
	CodeEmptyMessage   = "EMPTY_MESSAGE"
	CodeUnknownVehicle = "UNKNOWN_VEHICLE"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeUnknownTenant  = "UNKNOWN_TENANT"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInternal       = "INTERNAL"
)

type errorResponse struct {
	OK                bool   `json:"ok"`
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, code string) {
	writeJSON(c, status, errorResponse{Error: code})
}

// WriteRateLimited renders the throttling envelope; exported for the
// rate-limit middleware.
func WriteRateLimited(c *gin.Context, retryAfterSeconds int) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{
		Error:             CodeRateLimited,
		RetryAfterSeconds: retryAfterSeconds,
	})
}

func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tariff.ErrUnknownVehicle):
		writeError(c, http.StatusNotFound, CodeUnknownVehicle)
	case errors.Is(err, tariff.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, CodeInvalidInput)
	case errors.Is(err, tariff.ErrUnknownTenant):
		writeError(c, http.StatusNotFound, CodeUnknownTenant)
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(c, http.StatusBadRequest, CodeEmptyMessage)
	default:
		writeError(c, http.StatusInternalServerError, CodeInternal)
	}
}
