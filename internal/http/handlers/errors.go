package handlers

import (
	"errors"
	"net/http"

	"hkiapp/internal/domain"
	"hkiapp/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	reqID := middleware.GetRequestID(c)
	if reqID != "" {
		c.JSON(status, gin.H{
			"error":      resp.Error,
			"code":       resp.Code,
			"details":    resp.Details,
			"request_id": reqID,
			"message":    message,
		})
		return
	}
	c.JSON(status, resp)
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		var ve domain.ValidationError
		errors.As(err, &ve)
		var details any
		if len(ve.Fields) > 0 {
			details = ve.Fields
		}
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), details)
	case domain.IsAuth(err):
		var ae domain.AuthError
		errors.As(err, &ae)
		if ae.Unauthenticated {
			respondError(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
			return
		}
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsTooLarge(err):
		respondError(c, http.StatusRequestEntityTooLarge, "too_large", err.Error(), nil)
	case domain.IsUpload(err), domain.IsLink(err), domain.IsDependency(err):
		respondError(c, http.StatusInternalServerError, "storage_error", err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", "terjadi kesalahan", nil)
	}
}
