package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	units "github.com/docker/go-units"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
	"hkiapp/internal/realtime"
	"hkiapp/internal/storage"
	"hkiapp/internal/utils"
)

// HKIStore is the record persistence used by HKIService.
type HKIStore interface {
	List(ctx context.Context, f models.HKIFilter) (models.RecordPage, error)
	GetJoined(ctx context.Context, id int64) (models.HKI, error)
	FilePath(ctx context.Context, id int64) (*string, error)
	FilesForIDs(ctx context.Context, ids []int64) ([]int64, []string, error)
	Insert(ctx context.Context, row models.HKIRow) (int64, error)
	Update(ctx context.Context, id int64, row models.HKIRow) error
	SetFile(ctx context.Context, id int64, path *string) error
	UpdateStatus(ctx context.Context, id, statusID int64) (string, error)
	Delete(ctx context.Context, id int64) error
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// PemohonStore resolves applicants by exact name.
type PemohonStore interface {
	FindOrCreate(ctx context.Context, name string, alamat *string) (int64, error)
	Upsert(ctx context.Context, name string, alamat *string) (int64, error)
}

// Upload is a certificate file received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// HKIService sequences record writes with certificate file changes. The
// database and the object store share no transaction, so every multi-step
// write compensates on failure.
type HKIService struct {
	Records HKIStore
	Pemohon PemohonStore
	Files   storage.ObjectStore
	Events  realtime.Publisher

	SignedURLTTL   time.Duration
	MaxUploadBytes int64
	// ValidateFile checks upload content; defaults to storage.ValidatePDF.
	ValidateFile func([]byte) (int, error)
	RequestID    string
}

// BulkDeleteResult mirrors the bulk delete response body.
type BulkDeleteResult struct {
	Message    string  `json:"message"`
	DeletedIDs []int64 `json:"deletedIds"`
}

// SignedLink is a short-lived certificate URL with its download name.
type SignedLink struct {
	SignedURL string `json:"signedUrl"`
	FileName  string `json:"fileName"`
}

func (s HKIService) publish(ctx context.Context, eventType string, ids ...int64) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, realtime.NewEvent(eventType, "hki", ids...))
}

func (s HKIService) List(ctx context.Context, f models.HKIFilter) (models.RecordPage, error) {
	return s.Records.List(ctx, f)
}

func (s HKIService) Get(ctx context.Context, id int64) (models.HKI, error) {
	return s.Records.GetJoined(ctx, id)
}

// checkUpload rejects oversized or non-PDF files before anything is written.
func (s HKIService) checkUpload(file *Upload) error {
	if file == nil {
		return nil
	}
	if s.MaxUploadBytes > 0 && int64(len(file.Data)) > s.MaxUploadBytes {
		return domain.ValidationError{
			Field: "file",
			Msg:   "Ukuran file melebihi batas " + units.HumanSize(float64(s.MaxUploadBytes)) + ".",
		}
	}
	validate := s.ValidateFile
	if validate == nil {
		validate = storage.ValidatePDF
	}
	if _, err := validate(file.Data); err != nil {
		return domain.ValidationError{Field: "file", Msg: "File sertifikat harus berupa PDF yang valid.", Err: err}
	}
	return nil
}

func hasFile(file *Upload) bool {
	return file != nil && len(file.Data) > 0
}

func contentType(file *Upload) string {
	if file.ContentType != "" {
		return file.ContentType
	}
	return "application/pdf"
}

// Create inserts a filing and, when a file is supplied, attaches it.
func (s HKIService) Create(ctx context.Context, actor domain.RequestContext, in models.HKIInput, file *Upload) (models.HKI, error) {
	if !hasFile(file) {
		file = nil
	}
	if err := s.checkUpload(file); err != nil {
		return models.HKI{}, err
	}

	pemohonID, err := s.Pemohon.FindOrCreate(ctx, in.NamaPemohon, in.Alamat)
	if err != nil {
		return models.HKI{}, domain.DependencyError{Resource: "pemohon", Err: err}
	}

	id, err := s.Records.Insert(ctx, rowFromInput(in, pemohonID, nil))
	if err != nil {
		return models.HKI{}, fmt.Errorf("Gagal menyimpan data HKI: %w", err)
	}
	utils.LogEvent(s.RequestID, "hki", "create", "id_hki="+strconv.FormatInt(id, 10))

	if file != nil {
		path := storage.NewObjectPath(int64(actor.UserID), file.Filename)
		if err := s.Files.Upload(ctx, path, file.Data, contentType(file)); err != nil {
			s.dropRecord(ctx, id, "create_upload_rollback")
			return models.HKI{}, domain.UploadError{Path: path, Err: err}
		}

		if err := s.Records.SetFile(ctx, id, &path); err != nil {
			s.dropFiles(ctx, []string{path}, "create_link_rollback")
			s.dropRecord(ctx, id, "create_link_rollback")
			return models.HKI{}, domain.LinkError{Path: path, Err: err}
		}
	}

	rec, err := s.Records.GetJoined(ctx, id)
	if err != nil {
		return models.HKI{}, fmt.Errorf("Gagal mengambil data yang baru dibuat: %w", err)
	}
	s.publish(ctx, realtime.EventCreated, id)
	return rec, nil
}

// Update rewrites a filing's fields and replaces, removes or keeps its file.
func (s HKIService) Update(ctx context.Context, actor domain.RequestContext, id int64, in models.HKIInput, file *Upload, deleteExisting bool) (models.HKI, error) {
	if !hasFile(file) {
		file = nil
	}
	if err := s.checkUpload(file); err != nil {
		return models.HKI{}, err
	}

	oldPath, err := s.Records.FilePath(ctx, id)
	if err != nil {
		return models.HKI{}, err
	}

	finalPath := oldPath
	var newPath *string
	switch {
	case file != nil:
		path := storage.NewObjectPath(int64(actor.UserID), file.Filename)
		if err := s.Files.Upload(ctx, path, file.Data, contentType(file)); err != nil {
			return models.HKI{}, domain.UploadError{Path: path, Err: err}
		}
		newPath = &path
		finalPath = &path
	case deleteExisting:
		finalPath = nil
	}

	pemohonID, err := s.Pemohon.Upsert(ctx, in.NamaPemohon, in.Alamat)
	if err != nil {
		if newPath != nil {
			s.dropFiles(ctx, []string{*newPath}, "update_pemohon_rollback")
		}
		return models.HKI{}, domain.DependencyError{Resource: "pemohon", Err: err}
	}

	if err := s.Records.Update(ctx, id, rowFromInput(in, pemohonID, finalPath)); err != nil {
		if newPath != nil {
			s.dropFiles(ctx, []string{*newPath}, "update_rollback")
		}
		return models.HKI{}, err
	}
	utils.LogEvent(s.RequestID, "hki", "update", "id_hki="+strconv.FormatInt(id, 10))

	if oldPath != nil && *oldPath != "" && (finalPath == nil || *finalPath != *oldPath) {
		s.dropFiles(ctx, []string{*oldPath}, "update_old_file_cleanup")
	}

	rec, err := s.Records.GetJoined(ctx, id)
	if err != nil {
		return models.HKI{}, err
	}
	s.publish(ctx, realtime.EventUpdated, id)
	return rec, nil
}

// Delete removes the stored certificate first, then the row.
func (s HKIService) Delete(ctx context.Context, id int64) error {
	path, err := s.Records.FilePath(ctx, id)
	if err != nil {
		return err
	}
	if path != nil && *path != "" {
		if err := s.Files.Remove(ctx, []string{*path}); err != nil {
			return fmt.Errorf("Gagal menghapus file sertifikat: %w", err)
		}
	}
	if err := s.Records.Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "hki", "delete", "id_hki="+strconv.FormatInt(id, 10))
	s.publish(ctx, realtime.EventDeleted, id)
	return nil
}

// BulkDelete removes rows first; their files are cleaned up best-effort.
func (s HKIService) BulkDelete(ctx context.Context, ids []int64) (BulkDeleteResult, error) {
	ids = uniquePositive(ids)
	if len(ids) == 0 {
		return BulkDeleteResult{}, domain.ValidationError{Field: "ids", Msg: "Daftar ID tidak valid atau kosong."}
	}

	found, paths, err := s.Records.FilesForIDs(ctx, ids)
	if err != nil {
		return BulkDeleteResult{}, fmt.Errorf("Gagal mengambil data file: %w", err)
	}

	n, err := s.Records.DeleteByIDs(ctx, ids)
	if err != nil {
		return BulkDeleteResult{}, fmt.Errorf("Gagal menghapus data: %w", err)
	}
	utils.LogEvent(s.RequestID, "hki", "bulk_delete", fmt.Sprintf("requested=%d deleted=%d", len(ids), n))

	if len(paths) > 0 {
		s.dropFiles(ctx, paths, "bulk_delete_files")
	}

	if found == nil {
		found = []int64{}
	}
	if n > 0 {
		s.publish(ctx, realtime.EventDeleted, found...)
	}
	return BulkDeleteResult{
		Message:    fmt.Sprintf("%d entri berhasil dihapus.", n),
		DeletedIDs: found,
	}, nil
}

// UpdateStatus changes only the status and returns the confirmation message.
func (s HKIService) UpdateStatus(ctx context.Context, id, statusID int64) (string, error) {
	if statusID <= 0 {
		return "", domain.ValidationError{Field: "statusId", Msg: "Status tidak valid."}
	}
	name, err := s.Records.UpdateStatus(ctx, id, statusID)
	if err != nil {
		return "", err
	}
	s.publish(ctx, realtime.EventStatus, id)
	return fmt.Sprintf("Status berhasil diperbarui ke %q", name), nil
}

// SignedURL issues a short-lived link to the record's certificate.
func (s HKIService) SignedURL(ctx context.Context, id int64, attachment bool) (SignedLink, error) {
	rec, err := s.Records.GetJoined(ctx, id)
	if err != nil {
		return SignedLink{}, err
	}
	if rec.SertifikatPDF == nil || *rec.SertifikatPDF == "" {
		return SignedLink{}, domain.NotFoundError{Resource: "sertifikat", Msg: "Sertifikat tidak tersedia untuk entri ini"}
	}

	fileName := "Sertifikat-" + utils.SanitizeFilenamePart(rec.PemohonName(), "Tanpa_Nama") + ".pdf"
	ttl := s.SignedURLTTL
	if ttl <= 0 {
		ttl = storage.DefaultSignedURLTTL
	}

	url, err := s.Files.SignedURL(ctx, *rec.SertifikatPDF, ttl, storage.SignOptions{
		Attachment:   attachment,
		DownloadName: fileName,
	})
	if err != nil {
		return SignedLink{}, fmt.Errorf("Gagal membuat URL: %w", err)
	}
	return SignedLink{SignedURL: url, FileName: fileName}, nil
}

func (s HKIService) dropRecord(ctx context.Context, id int64, action string) {
	if err := s.Records.Delete(ctx, id); err != nil {
		utils.LogWarn(s.RequestID, "hki", action, "gagal menghapus record id_hki="+strconv.FormatInt(id, 10), err)
	}
}

func (s HKIService) dropFiles(ctx context.Context, paths []string, action string) {
	if err := s.Files.Remove(ctx, paths); err != nil {
		utils.LogWarn(s.RequestID, "hki", action, fmt.Sprintf("gagal menghapus %d file", len(paths)), err)
	}
}

func rowFromInput(in models.HKIInput, pemohonID int64, path *string) models.HKIRow {
	return models.HKIRow{
		NamaHKI:         in.NamaHKI,
		PemohonID:       pemohonID,
		JenisProduk:     in.JenisProduk,
		TahunFasilitasi: in.TahunFasilitasi,
		Keterangan:      in.Keterangan,
		JenisID:         in.JenisID,
		StatusID:        in.StatusID,
		PengusulID:      in.PengusulID,
		KelasID:         in.KelasID,
		SertifikatPDF:   path,
	}
}

func uniquePositive(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
