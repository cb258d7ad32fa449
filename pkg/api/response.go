package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the JSON envelope of every API reply
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Error codes, HTTP status times 100 plus a reason
const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeInvalidDate    = 40001
	CodeNoCaregiver    = 40002
	CodeNotFound       = 40400
	CodeWeekLocked     = 40900
	CodeInternal       = 50000
	CodeGenerationFail = 50001
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeOK, Message: "success", Data: data})
}

func fail(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, Response{Code: code, Message: message})
}

func failWithDetails(c *gin.Context, httpStatus, code int, message string, details any) {
	c.JSON(httpStatus, Response{Code: code, Message: message, Details: details})
}

func badRequest(c *gin.Context, code int, message string) {
	fail(c, http.StatusBadRequest, code, message)
}

func internalError(c *gin.Context) {
	fail(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}
