package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the structured rejection envelope every pipeline stage
// emits: {success:false, error, code}.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// SuccessResponse wraps successful payloads.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// ContextKeyErrorCode is the gin key under which the terminal error code is
// recorded for the audit trail.
const ContextKeyErrorCode = "pipeline_error_code"

// RespondError aborts the request with the structured rejection envelope. The
// HTTP status is derived from the code so the two can never disagree.
func RespondError(c *gin.Context, code, message string) {
	c.Set(ContextKeyErrorCode, code)
	c.AbortWithStatusJSON(statusForCode(code), ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// RespondRequestError aborts with a prepared RequestError.
func RespondRequestError(c *gin.Context, err *RequestError) {
	c.Set(ContextKeyErrorCode, err.Code)
	c.AbortWithStatusJSON(err.StatusCode, ErrorResponse{
		Success: false,
		Error:   err.Reason,
		Code:    err.Code,
	})
}

// RespondOK writes a success envelope.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// RespondCreated writes a success envelope with 201.
func RespondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Data: data})
}
