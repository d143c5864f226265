package utils

import (
	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every endpoint responds with. Data carries
// the endpoint-specific payload on success; Error carries the underlying
// error text on failure so clients can log it.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SuccessResponse writes a successful envelope with the given payload.
func SuccessResponse(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse writes a failure envelope. A nil err leaves the error
// field out, keeping the message as the only client-facing text.
func ErrorResponse(c *gin.Context, code int, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}

	c.JSON(code, response)
}
