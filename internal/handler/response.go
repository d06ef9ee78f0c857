package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ridebook/internal/repository"
	"ridebook/internal/service"
)

// retryAfterSeconds is advertised to callers after a lock timeout.
const retryAfterSeconds = "1"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

// errorClass is the HTTP rendering of a service or repository error.
type errorClass struct {
	status    int
	code      string
	retryable bool
}

// respondError sends an error response with the appropriate HTTP status code.
// The error is attached to the context for the access log and New Relic.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	class := classifyError(err)
	msg := err.Error()
	if class.status >= http.StatusInternalServerError && class.code == "internal_error" {
		msg = "internal server error"
	}
	if class.retryable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.JSON(class.status, ErrorResponse{Error: msg, Code: class.code, Retryable: class.retryable})
}

// respondBadRequest rejects a request that could not be decoded.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "invalid_request"})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data gin.H) {
	data["ok"] = true
	c.JSON(code, data)
}

// classifyError maps service/repository errors to HTTP status codes.
func classifyError(err error) errorClass {
	switch {
	// Validation errors - Bad Request
	case errors.Is(err, service.ErrUnknownCategory):
		return errorClass{status: http.StatusBadRequest, code: "unknown_category"}
	case errors.Is(err, service.ErrInvalidFare):
		return errorClass{status: http.StatusBadRequest, code: "invalid_fare"}
	case errors.Is(err, service.ErrInvalidRider):
		return errorClass{status: http.StatusBadRequest, code: "invalid_rider"}
	case errors.Is(err, service.ErrInvalidPickupTime):
		return errorClass{status: http.StatusBadRequest, code: "invalid_pickup_time"}
	case errors.Is(err, service.ErrInvalidDateRange):
		return errorClass{status: http.StatusBadRequest, code: "invalid_date_range"}
	case errors.Is(err, service.ErrInvalidRates):
		return errorClass{status: http.StatusBadRequest, code: "invalid_rates"}
	case errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrInvalidID):
		return errorClass{status: http.StatusBadRequest, code: "invalid_request"}

	// Resource errors
	case errors.Is(err, service.ErrNoFundingSource):
		return errorClass{status: http.StatusUnprocessableEntity, code: "no_funding_source"}
	case errors.Is(err, service.ErrInsufficientFunds):
		return errorClass{status: http.StatusUnprocessableEntity, code: "insufficient_funds"}

	// Not found errors
	case errors.Is(err, service.ErrDriverNotFound):
		return errorClass{status: http.StatusNotFound, code: "driver_not_found"}
	case errors.Is(err, repository.ErrNotFound):
		return errorClass{status: http.StatusNotFound, code: "not_found"}

	// Conflict errors
	case errors.Is(err, service.ErrDriverUnavailable):
		return errorClass{status: http.StatusConflict, code: "driver_unavailable"}
	case errors.Is(err, service.ErrRideNotRequested):
		return errorClass{status: http.StatusConflict, code: "ride_not_requested"}
	case errors.Is(err, service.ErrNothingOwed):
		return errorClass{status: http.StatusConflict, code: "nothing_owed"}
	case errors.Is(err, service.ErrDuplicateRequest):
		return errorClass{status: http.StatusConflict, code: "duplicate_request"}
	case errors.Is(err, service.ErrDriverExists):
		return errorClass{status: http.StatusConflict, code: "driver_exists"}

	// Concurrency errors - the caller may resubmit the identical request
	case errors.Is(err, service.ErrLockTimeout):
		return errorClass{status: http.StatusServiceUnavailable, code: "lock_timeout", retryable: true}

	// Integrity errors
	case errors.Is(err, service.ErrResolutionConflict):
		return errorClass{status: http.StatusInternalServerError, code: "resolution_conflict"}

	default:
		return errorClass{status: http.StatusInternalServerError, code: "internal_error"}
	}
}

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.ErrInvalidID
	}
	return id, nil
}
