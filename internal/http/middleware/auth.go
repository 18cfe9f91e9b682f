package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hkiapp/internal/domain"
	"hkiapp/internal/services"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// AuthRequired validates the bearer token and stores the caller in the
// context. Websocket clients cannot set headers, so ?token= is accepted too.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("token"))
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "Anda harus login terlebih dahulu.",
				"request_id": GetRequestID(c),
			})
			return
		}

		rc, err := services.ParseToken(secret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      err.Error(),
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Set(userIDKey, int64(rc.UserID))
		c.Set(userRoleKey, rc.Role)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// Actor returns the authenticated caller set by AuthRequired.
func Actor(c *gin.Context) domain.RequestContext {
	return domain.RequestContext{
		UserID:    domain.ID(c.GetInt64(userIDKey)),
		Role:      c.GetString(userRoleKey),
		RequestID: GetRequestID(c),
	}
}
