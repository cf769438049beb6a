package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// exposeErrorDetail controls whether internal error text is sent to clients.
// Only development deployments turn it on.
var exposeErrorDetail bool

// SetExposeErrorDetail toggles internal error detail in error responses.
func SetExposeErrorDetail(expose bool) {
	exposeErrorDetail = expose
}

// Success sends a 200 response with success=true merged into payload.
func Success(c *gin.Context, payload gin.H) {
	respond(c, http.StatusOK, payload)
}

// Created sends a 201 response with success=true merged into payload.
func Created(c *gin.Context, payload gin.H) {
	respond(c, http.StatusCreated, payload)
}

func respond(c *gin.Context, statusCode int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(statusCode, body)
}

// Error sends a standard error response. detail is only included when error
// detail exposure is enabled.
func Error(c *gin.Context, statusCode int, message string, detail error) {
	body := gin.H{
		"success": false,
		"message": message,
	}
	if detail != nil && exposeErrorDetail {
		body["error"] = detail.Error()
	}
	c.JSON(statusCode, body)
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message, nil)
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

// Conflict sends a 409 Conflict error response.
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message, nil)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, err error) {
	Error(c, http.StatusInternalServerError, "Server error", err)
}
