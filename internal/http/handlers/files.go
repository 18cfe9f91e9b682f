package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hkiapp/internal/storage"
)

// GET /api/files/*path serves certificates of the filesystem backend. The
// token query parameter is the only credential.
func (a *API) ServeFile(c *gin.Context) {
	if a.FileSystem == nil {
		respondError(c, http.StatusNotFound, "not_found", "route tidak ditemukan", nil)
		return
	}
	key := strings.TrimPrefix(c.Param("path"), "/")
	claims, err := a.FileSystem.VerifyToken(key, c.Query("token"))
	if err != nil {
		respondError(c, http.StatusForbidden, "forbidden", "Tautan tidak valid atau kedaluwarsa.", nil)
		return
	}

	rc, err := a.FileSystem.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(c, http.StatusNotFound, "not_found", "File tidak ditemukan.", nil)
			return
		}
		RespondDomainError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", rc, map[string]string{
		"Content-Disposition": storage.ContentDisposition(claims.Attachment, claims.DownloadName),
		"Cache-Control":       "private, no-store",
	})
}
