package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/borrowing"
	"github.com/mrlokans/library/internal/logging"
)

// GetUserID extracts the authenticated user's ID from the Gin context.
// Returns "" for anonymous requests.
func GetUserID(c *gin.Context) string {
	return auth.GetUserID(c)
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"` // machine-readable error code
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: borrowing.CodeInvalidInput})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource, code string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: code})
}

// respondForbidden sends a 403 Forbidden response.
func respondForbidden(c *gin.Context, code, message string) {
	c.JSON(http.StatusForbidden, ErrorResponse{Error: message, Code: code})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	logging.FromContext(c.Request.Context()).Error("internal error", "context", context, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "internal_error"})
}

// respondError sends an error response with the given status code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondBorrowingError maps a borrowing failure to its status code. Store
// errors are already logged by the service and only get a generic body.
func respondBorrowingError(c *gin.Context, err error) {
	be, ok := borrowing.AsError(err)
	if !ok {
		respondInternalError(c, err, "borrowing")
		return
	}

	status := http.StatusInternalServerError
	switch be.Kind {
	case borrowing.KindValidation, borrowing.KindUnavailable, borrowing.KindNoActiveLoan:
		status = http.StatusBadRequest
	case borrowing.KindNotFound:
		status = http.StatusNotFound
	case borrowing.KindLimitExceeded:
		status = http.StatusForbidden
	case borrowing.KindConflict:
		status = http.StatusConflict
	}

	message := be.Message
	if be.Kind == borrowing.KindStore {
		message = "internal server error"
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      be.Code,
		Retryable: be.Retryable(),
	})
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates a positive integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parsePage reads page and limit query parameters, clamping them to
// [1, maxLimit] with the given default limit.
func parsePage(c *gin.Context, defaultLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
