package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hkiapp/internal/domain"
	"hkiapp/internal/http/middleware"
	"hkiapp/internal/utils"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,notblank"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if _, ok := domain.FromValidator(err); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email dan password wajib diisi"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload tidak valid"})
		return
	}

	token, user, err := a.authService(c).Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.LogWarn(middleware.GetRequestID(c), "auth", "login", "login ditolak", err)
		RespondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// GET /api/auth/me
func (a *API) Me(c *gin.Context) {
	actor := middleware.Actor(c)
	u, err := a.userService(c).Users.GetByID(c.Request.Context(), int64(actor.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
