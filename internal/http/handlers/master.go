package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hkiapp/internal/domain"
)

func masterTable(c *gin.Context) (domain.MasterTable, bool) {
	t, ok := domain.ParseMasterTable(c.Param("table"))
	if !ok {
		respondError(c, http.StatusNotFound, "not_found", "Tabel master tidak dikenal.", gin.H{"table": c.Param("table")})
	}
	return t, ok
}

// GET /api/master/:table
func (a *API) ListMaster(c *gin.Context) {
	t, ok := masterTable(c)
	if !ok {
		return
	}
	rows, err := a.masterService(c).List(c.Request.Context(), t)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// POST /api/master/:table
func (a *API) CreateMaster(c *gin.Context) {
	t, ok := masterTable(c)
	if !ok {
		return
	}
	var body map[string]any
	if !BindJSONOrError(c, &body) {
		return
	}
	row, err := a.masterService(c).Create(c.Request.Context(), t, body)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// PATCH /api/master/:table/:id
func (a *API) UpdateMaster(c *gin.Context) {
	t, ok := masterTable(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body map[string]any
	if !BindJSONOrError(c, &body) {
		return
	}
	row, err := a.masterService(c).Update(c.Request.Context(), t, id, body)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DELETE /api/master/:table/:id
func (a *API) DeleteMaster(c *gin.Context) {
	t, ok := masterTable(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := a.masterService(c).Delete(c.Request.Context(), t, id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data " + t.Label() + " berhasil dihapus."})
}

// GET /api/options
func (a *API) Options(c *gin.Context) {
	opts, err := a.masterService(c).Options(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}
