package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"hkiapp/internal/domain"
)

var registerOnce sync.Once

// RegisterValidators gives gin's binding engine the field names and rules
// the domain validator uses, so both report errors the same way.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			domain.ConfigureValidator(v)
		}
	})
}

// bindOrError binds the request by content type and answers 400 on failure.
// Rule violations come back per field.
func bindOrError(c *gin.Context, dst any) bool {
	if err := c.ShouldBind(dst); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func respondBindError(c *gin.Context, err error) {
	if ve, ok := domain.FromValidator(err); ok {
		RespondDomainError(c, ve)
		return
	}
	RespondError(c, http.StatusBadRequest, "payload tidak valid", err)
}
