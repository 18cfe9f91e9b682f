package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hkiapp/internal/storage"
)

// GET /api/stats
func (a *API) Stats(c *gin.Context) {
	stats, err := a.statsService(c).Dashboard(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/reports/summary.pdf
func (a *API) SummaryReport(c *gin.Context) {
	data, name, err := a.statsService(c).SummaryPDF(c.Request.Context(), a.now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", storage.ContentDisposition(c.Query("download") == "1", name))
	c.Data(http.StatusOK, "application/pdf", data)
}
