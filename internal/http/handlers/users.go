package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hkiapp/internal/http/middleware"
	"hkiapp/internal/services"
)

// GET /api/users
func (a *API) GetUsers(c *gin.Context) {
	users, err := a.userService(c).List(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// POST /api/users
func (a *API) CreateUser(c *gin.Context) {
	var in services.NewUser
	if !BindJSONOrError(c, &in) {
		return
	}
	u, err := a.userService(c).Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// PATCH /api/users/:id
func (a *API) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch services.UserPatch
	if !BindJSONOrError(c, &patch) {
		return
	}
	u, err := a.userService(c).Update(c.Request.Context(), id, patch)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DELETE /api/users/:id
func (a *API) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := a.userService(c).Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pengguna berhasil dihapus."})
}

type profileRequest struct {
	FullName string  `json:"full_name" binding:"required,notblank,min=3"`
	Password *string `json:"password" binding:"omitempty,min=6|max=0"`
}

// PATCH /api/users/profile
func (a *API) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	u, err := a.userService(c).UpdateProfile(c.Request.Context(), middleware.Actor(c), req.FullName, req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
