package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
	"hkiapp/internal/realtime"
	"hkiapp/internal/storage"
)

type fakePemohon struct {
	names map[int64]string
	ids   map[string]int64
	fail  error
}

func newFakePemohon() *fakePemohon {
	return &fakePemohon{names: map[int64]string{}, ids: map[string]int64{}}
}

func (p *fakePemohon) FindOrCreate(_ context.Context, name string, _ *string) (int64, error) {
	if p.fail != nil {
		return 0, p.fail
	}
	name = strings.TrimSpace(name)
	if id, ok := p.ids[name]; ok {
		return id, nil
	}
	id := int64(len(p.ids) + 1)
	p.ids[name] = id
	p.names[id] = name
	return id, nil
}

func (p *fakePemohon) Upsert(ctx context.Context, name string, alamat *string) (int64, error) {
	return p.FindOrCreate(ctx, name, alamat)
}

type fakeRecords struct {
	rows       map[int64]models.HKIRow
	nextID     int64
	pemohon    *fakePemohon
	setFileErr error
	updateErr  error
	deleteErr  error
}

func newFakeRecords(p *fakePemohon) *fakeRecords {
	return &fakeRecords{rows: map[int64]models.HKIRow{}, nextID: 100, pemohon: p}
}

func (r *fakeRecords) List(context.Context, models.HKIFilter) (models.RecordPage, error) {
	return models.RecordPage{}, nil
}

func (r *fakeRecords) GetJoined(_ context.Context, id int64) (models.HKI, error) {
	row, ok := r.rows[id]
	if !ok {
		return models.HKI{}, domain.NotFoundError{Resource: "HKI", ID: id}
	}
	return models.HKI{
		ID:            id,
		NamaHKI:       row.NamaHKI,
		SertifikatPDF: row.SertifikatPDF,
		Pemohon:       &models.Pemohon{ID: row.PemohonID, NamaPemohon: r.pemohon.names[row.PemohonID]},
	}, nil
}

func (r *fakeRecords) FilePath(_ context.Context, id int64) (*string, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "HKI", ID: id}
	}
	return row.SertifikatPDF, nil
}

func (r *fakeRecords) FilesForIDs(_ context.Context, ids []int64) ([]int64, []string, error) {
	var found []int64
	var paths []string
	for _, id := range ids {
		if row, ok := r.rows[id]; ok {
			found = append(found, id)
			if row.SertifikatPDF != nil {
				paths = append(paths, *row.SertifikatPDF)
			}
		}
	}
	return found, paths, nil
}

func (r *fakeRecords) Insert(_ context.Context, row models.HKIRow) (int64, error) {
	r.nextID++
	r.rows[r.nextID] = row
	return r.nextID, nil
}

func (r *fakeRecords) Update(_ context.Context, id int64, row models.HKIRow) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.rows[id]; !ok {
		return domain.NotFoundError{Resource: "HKI", ID: id}
	}
	r.rows[id] = row
	return nil
}

func (r *fakeRecords) SetFile(_ context.Context, id int64, path *string) error {
	if r.setFileErr != nil {
		return r.setFileErr
	}
	row := r.rows[id]
	row.SertifikatPDF = path
	r.rows[id] = row
	return nil
}

func (r *fakeRecords) UpdateStatus(_ context.Context, id, statusID int64) (string, error) {
	row, ok := r.rows[id]
	if !ok {
		return "", domain.NotFoundError{Resource: "HKI", ID: id}
	}
	row.StatusID = statusID
	r.rows[id] = row
	return "Terdaftar", nil
}

func (r *fakeRecords) Delete(_ context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.rows[id]; !ok {
		return domain.NotFoundError{Resource: "HKI", ID: id}
	}
	delete(r.rows, id)
	return nil
}

func (r *fakeRecords) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := r.rows[id]; ok {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeFiles struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	removeErr error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{objects: map[string][]byte{}}
}

func (f *fakeFiles) Upload(_ context.Context, path string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[path] = data
	return nil
}

func (f *fakeFiles) Remove(_ context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	for _, p := range paths {
		delete(f.objects, p)
	}
	return nil
}

func (f *fakeFiles) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeFiles) SignedURL(_ context.Context, path string, ttl time.Duration, opts storage.SignOptions) (string, error) {
	u := "https://files.test/" + path
	if opts.Attachment {
		u += "?download=" + opts.DownloadName
	}
	return u, nil
}

func (f *fakeFiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type recordingPublisher struct {
	events []realtime.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt realtime.ChangeEvent) {
	p.events = append(p.events, evt)
}

type fixture struct {
	svc     HKIService
	records *fakeRecords
	files   *fakeFiles
	pemohon *fakePemohon
	events  *recordingPublisher
}

func newFixture() fixture {
	p := newFakePemohon()
	rec := newFakeRecords(p)
	files := newFakeFiles()
	events := &recordingPublisher{}
	return fixture{
		svc: HKIService{
			Records:      rec,
			Pemohon:      p,
			Files:        files,
			Events:       events,
			ValidateFile: func([]byte) (int, error) { return 1, nil },
		},
		records: rec,
		files:   files,
		pemohon: p,
		events:  events,
	}
}

var admin = domain.RequestContext{UserID: 7, Role: domain.RoleAdmin}

func merkA() models.HKIInput {
	return models.HKIInput{
		NamaHKI:         "Merk A",
		NamaPemohon:     "Budi",
		TahunFasilitasi: 2023,
		JenisID:         1,
		StatusID:        1,
		PengusulID:      1,
	}
}

func pdfUpload() *Upload {
	return &Upload{Filename: "sertifikat.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 test")}
}

func TestCreateWithFileLinksPath(t *testing.T) {
	fx := newFixture()

	rec, err := fx.svc.Create(context.Background(), admin, merkA(), pdfUpload())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.SertifikatPDF == nil || !strings.HasPrefix(*rec.SertifikatPDF, "public/7-") {
		t.Fatalf("file path not linked: %+v", rec.SertifikatPDF)
	}
	if rec.PemohonName() != "Budi" {
		t.Fatalf("pemohon not joined: %+v", rec.Pemohon)
	}
	if fx.files.count() != 1 {
		t.Fatalf("expected one stored file, got %d", fx.files.count())
	}
	if len(fx.events.events) != 1 || fx.events.events[0].Type != realtime.EventCreated {
		t.Fatalf("expected created event, got %+v", fx.events.events)
	}
}

func TestCreateWithoutFile(t *testing.T) {
	fx := newFixture()
	rec, err := fx.svc.Create(context.Background(), admin, merkA(), &Upload{Filename: "kosong.pdf"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.SertifikatPDF != nil || fx.files.count() != 0 {
		t.Fatalf("empty upload must be ignored")
	}
}

func TestCreateUploadFailureRemovesRecord(t *testing.T) {
	fx := newFixture()
	fx.files.uploadErr = errors.New("bucket penuh")

	_, err := fx.svc.Create(context.Background(), admin, merkA(), pdfUpload())
	if !domain.IsUpload(err) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if err.Error() != "Upload file gagal: bucket penuh" {
		t.Fatalf("storage message not appended: %q", err.Error())
	}
	if len(fx.records.rows) != 0 {
		t.Fatalf("inserted record must be gone, store has %d rows", len(fx.records.rows))
	}
	if len(fx.events.events) != 0 {
		t.Fatalf("failed create must not publish")
	}
}

func TestCreateLinkFailureRemovesFileAndRecord(t *testing.T) {
	fx := newFixture()
	fx.records.setFileErr = errors.New("koneksi terputus")

	_, err := fx.svc.Create(context.Background(), admin, merkA(), pdfUpload())
	if !domain.IsLink(err) {
		t.Fatalf("expected LinkError, got %v", err)
	}
	if len(fx.records.rows) != 0 {
		t.Fatalf("record must be deleted, store has %d rows", len(fx.records.rows))
	}
	if fx.files.count() != 0 {
		t.Fatalf("uploaded file must be removed, store has %d files", fx.files.count())
	}
}

func TestCreateCompensationFailureKeepsOriginalError(t *testing.T) {
	fx := newFixture()
	fx.files.uploadErr = errors.New("timeout")
	fx.records.deleteErr = errors.New("db down")

	_, err := fx.svc.Create(context.Background(), admin, merkA(), pdfUpload())
	if !domain.IsUpload(err) {
		t.Fatalf("compensation failure must not mask UploadError, got %v", err)
	}
}

func TestCreatePemohonFailure(t *testing.T) {
	fx := newFixture()
	fx.pemohon.fail = errors.New("duplikat")

	_, err := fx.svc.Create(context.Background(), admin, merkA(), pdfUpload())
	if !domain.IsDependency(err) {
		t.Fatalf("expected DependencyError, got %v", err)
	}
	if len(fx.records.rows) != 0 || fx.files.count() != 0 {
		t.Fatalf("nothing may be written when the applicant cannot be resolved")
	}
}

func TestCreateRejectsInvalidUpload(t *testing.T) {
	fx := newFixture()
	fx.svc.MaxUploadBytes = 4
	_, err := fx.svc.Create(context.Background(), admin, merkA(), pdfUpload())
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for oversized file, got %v", err)
	}

	fx = newFixture()
	fx.svc.ValidateFile = storage.ValidatePDF
	_, err = fx.svc.Create(context.Background(), admin, merkA(), &Upload{Filename: "a.pdf", Data: []byte("hello")})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for non-pdf, got %v", err)
	}
	if len(fx.records.rows) != 0 {
		t.Fatalf("invalid upload must not insert")
	}
}

func seed(fx fixture, path string) int64 {
	id, _ := fx.records.Insert(context.Background(), models.HKIRow{NamaHKI: "Lama", PemohonID: 1})
	fx.pemohon.ids["Budi"] = 1
	fx.pemohon.names[1] = "Budi"
	if path != "" {
		p := path
		fx.records.SetFile(context.Background(), id, &p)
		fx.files.objects[path] = []byte("old")
	}
	return id
}

func TestUpdateReplacesFileAndRemovesOld(t *testing.T) {
	fx := newFixture()
	id := seed(fx, "public/1-old.pdf")

	rec, err := fx.svc.Update(context.Background(), admin, id, merkA(), pdfUpload(), false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.SertifikatPDF == nil || *rec.SertifikatPDF == "public/1-old.pdf" {
		t.Fatalf("new file not linked")
	}
	if _, ok := fx.files.objects["public/1-old.pdf"]; ok {
		t.Fatalf("old file should be removed")
	}
	if fx.files.count() != 1 {
		t.Fatalf("expected exactly the new file, got %d", fx.files.count())
	}
}

func TestUpdateKeepsFileWhenNoneSupplied(t *testing.T) {
	fx := newFixture()
	id := seed(fx, "public/1-old.pdf")

	rec, err := fx.svc.Update(context.Background(), admin, id, merkA(), nil, false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.SertifikatPDF == nil || *rec.SertifikatPDF != "public/1-old.pdf" {
		t.Fatalf("existing path must be kept, got %v", rec.SertifikatPDF)
	}
	if fx.files.count() != 1 {
		t.Fatalf("file must stay")
	}
}

func TestUpdateDeleteExisting(t *testing.T) {
	fx := newFixture()
	id := seed(fx, "public/1-old.pdf")

	rec, err := fx.svc.Update(context.Background(), admin, id, merkA(), nil, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.SertifikatPDF != nil || fx.files.count() != 0 {
		t.Fatalf("file should be detached and removed")
	}
}

func TestUpdateFailureRemovesNewUpload(t *testing.T) {
	fx := newFixture()
	id := seed(fx, "public/1-old.pdf")
	fx.records.updateErr = errors.New("deadlock")

	_, err := fx.svc.Update(context.Background(), admin, id, merkA(), pdfUpload(), false)
	if err == nil || err.Error() != "deadlock" {
		t.Fatalf("expected original error, got %v", err)
	}
	if fx.files.count() != 1 {
		t.Fatalf("only the old file may remain, got %d", fx.files.count())
	}
	if _, ok := fx.files.objects["public/1-old.pdf"]; !ok {
		t.Fatalf("old file must survive a failed update")
	}
}

func TestUpdateOldFileCleanupFailureIsNotSurfaced(t *testing.T) {
	fx := newFixture()
	id := seed(fx, "public/1-old.pdf")
	fx.files.removeErr = errors.New("permission denied")

	if _, err := fx.svc.Update(context.Background(), admin, id, merkA(), nil, true); err != nil {
		t.Fatalf("best-effort cleanup must not fail the update: %v", err)
	}
}

func TestUpdateMissingRecord(t *testing.T) {
	fx := newFixture()
	_, err := fx.svc.Update(context.Background(), admin, 404, merkA(), pdfUpload(), false)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if fx.files.count() != 0 {
		t.Fatalf("nothing should be uploaded for a missing record")
	}
}

func TestDeleteRemovesFileBeforeRow(t *testing.T) {
	fx := newFixture()
	id := seed(fx, "public/1-old.pdf")
	fx.files.removeErr = errors.New("storage offline")

	if err := fx.svc.Delete(context.Background(), id); err == nil {
		t.Fatalf("expected storage error")
	}
	if _, ok := fx.records.rows[id]; !ok {
		t.Fatalf("row must remain when file removal fails")
	}

	fx.files.removeErr = nil
	if err := fx.svc.Delete(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fx.records.rows) != 0 || fx.files.count() != 0 {
		t.Fatalf("row and file should be gone")
	}
}

func TestBulkDelete(t *testing.T) {
	fx := newFixture()
	if _, err := fx.svc.BulkDelete(context.Background(), nil); !domain.IsValidation(err) {
		t.Fatalf("empty ids: %v", err)
	}

	a := seed(fx, "public/1-a.pdf")
	b := seed(fx, "")
	fx.files.removeErr = errors.New("ignored")

	res, err := fx.svc.BulkDelete(context.Background(), []int64{a, b, a, -1})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if res.Message != "2 entri berhasil dihapus." || len(res.DeletedIDs) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(fx.records.rows) != 0 {
		t.Fatalf("rows should be deleted even when file cleanup fails")
	}

	c := seed(fx, "")
	res, err = fx.svc.BulkDelete(context.Background(), []int64{c, 404, 405})
	if err != nil {
		t.Fatalf("bulk delete with missing ids: %v", err)
	}
	if res.Message != "1 entri berhasil dihapus." || len(res.DeletedIDs) != 1 || res.DeletedIDs[0] != c {
		t.Fatalf("message should count deleted rows only, got %+v", res)
	}
}

func TestUpdateStatusMessage(t *testing.T) {
	fx := newFixture()
	id := seed(fx, "")
	msg, err := fx.svc.UpdateStatus(context.Background(), id, 2)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if msg != `Status berhasil diperbarui ke "Terdaftar"` {
		t.Fatalf("unexpected message %q", msg)
	}
	if _, err := fx.svc.UpdateStatus(context.Background(), 999, 2); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSignedURL(t *testing.T) {
	fx := newFixture()
	bare := seed(fx, "")
	if _, err := fx.svc.SignedURL(context.Background(), bare, false); err == nil || err.Error() != "Sertifikat tidak tersedia untuk entri ini" {
		t.Fatalf("expected missing certificate error, got %v", err)
	}

	withFile := seed(fx, "public/1-a.pdf")
	link, err := fx.svc.SignedURL(context.Background(), withFile, true)
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}
	if link.FileName != "Sertifikat-Budi.pdf" {
		t.Fatalf("unexpected file name %q", link.FileName)
	}
	if !strings.Contains(link.SignedURL, "download=Sertifikat-Budi.pdf") {
		t.Fatalf("attachment option not forwarded: %q", link.SignedURL)
	}
}
