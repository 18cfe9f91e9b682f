package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"hkiapp/internal/domain"
	"hkiapp/internal/http/middleware"
	"hkiapp/internal/listing"
	"hkiapp/internal/realtime"
	"hkiapp/internal/services"
	"hkiapp/internal/storage"
	"hkiapp/internal/utils"
)

// multipart overhead allowed on top of the file size limit
const formOverhead = 1 << 20

// GET /api/hki
func (a *API) ListHKI(c *gin.Context) {
	q := listing.Decode(c.Request.URL.Query())
	page, err := a.hkiService(c).List(c.Request.Context(), q.ToFilter())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/hki/:id
func (a *API) GetHKI(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rec, err := a.hkiService(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// readUpload returns the optional "file" part of a multipart form. An
// empty part counts as no file.
func (a *API) readUpload(c *gin.Context) (*services.Upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, domain.ValidationError{Field: "file", Msg: "Form upload tidak valid.", Err: err}
	}
	f, err := fh.Open()
	if err != nil {
		return nil, domain.UploadError{Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if a.MaxUploadBytes > 0 {
		// one extra byte lets the service see the file is over the limit
		r = io.LimitReader(f, a.MaxUploadBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, domain.UploadError{Err: err}
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (a *API) limitBody(c *gin.Context) {
	if a.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.MaxUploadBytes+formOverhead)
	}
}

// POST /api/hki
func (a *API) CreateHKI(c *gin.Context) {
	a.limitBody(c)
	file, err := a.readUpload(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	var form domain.HKIForm
	if !bindOrError(c, &form) {
		return
	}
	in, err := form.Input()
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	rec, err := a.hkiService(c).Create(c.Request.Context(), middleware.Actor(c), in, file)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": rec})
}

// PATCH /api/hki/:id
func (a *API) UpdateHKI(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a.limitBody(c)
	file, err := a.readUpload(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	var form domain.HKIForm
	if !bindOrError(c, &form) {
		return
	}
	in, err := form.Input()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	deleteExisting := strings.EqualFold(strings.TrimSpace(c.PostForm("delete_sertifikat")), "true")

	rec, err := a.hkiService(c).Update(c.Request.Context(), middleware.Actor(c), id, in, file, deleteExisting)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

// DELETE /api/hki/:id
func (a *API) DeleteHKI(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := a.hkiService(c).Delete(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Data HKI berhasil dihapus."})
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,dive,gt=0"`
}

// POST /api/hki/bulk-delete
func (a *API) BulkDeleteHKI(c *gin.Context) {
	var req bulkDeleteRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := a.hkiService(c).BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type statusRequest struct {
	StatusID int64 `json:"statusId" binding:"required,gt=0"`
}

// PATCH /api/hki/:id/status
func (a *API) UpdateHKIStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	msg, err := a.hkiService(c).UpdateStatus(c.Request.Context(), id, req.StatusID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// GET /api/hki/:id/signed-url
func (a *API) SignedURL(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	attachment := c.Query("disposition") == "attachment"
	link, err := a.hkiService(c).SignedURL(c.Request.Context(), id, attachment)
	if err != nil {
		if domain.IsNotFound(err) {
			RespondDomainError(c, err)
			return
		}
		utils.LogWarn(middleware.GetRequestID(c), "hki", "signed_url", "gagal membuat url", err)
		respondError(c, http.StatusInternalServerError, "link_error", err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, link)
}

// GET /api/hki/export
func (a *API) ExportHKI(c *gin.Context) {
	q := listing.Decode(c.Request.URL.Query())
	file, err := a.exportService(c).Export(c.Request.Context(), q.ToFilter(), c.Query("format"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", storage.ContentDisposition(true, file.Name))
	c.Header("Content-Length", fmt.Sprint(len(file.Data)))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// GET /api/hki/changes
func (a *API) Changes(c *gin.Context) {
	if a.Hub == nil {
		respondError(c, http.StatusServiceUnavailable, "unavailable", "Kanal perubahan tidak tersedia.", nil)
		return
	}
	realtime.Stream{Hub: a.Hub, OriginPatterns: a.OriginPatterns, Logger: a.Logger}.ServeHTTP(c.Writer, c.Request)
}
