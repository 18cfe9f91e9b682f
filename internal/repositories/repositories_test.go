package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var hkiColumns = []string{
	"id_hki", "nama_hki", "jenis_produk", "tahun_fasilitasi", "sertifikat_pdf",
	"keterangan", "created_at", "updated_at",
	"id_pemohon", "nama_pemohon", "alamat",
	"id_jenis_hki", "nama_jenis_hki",
	"id_status", "nama_status",
	"id_pengusul", "nama_opd",
	"id_kelas", "nama_kelas", "tipe",
}

func addHKIRow(rows *sqlmock.Rows, id int64, name string) *sqlmock.Rows {
	return rows.AddRow(
		id, name, "Kopi bubuk", int64(2024), "public/1-a.pdf",
		nil, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), nil,
		int64(3), "Budi Santoso", "Jl. Merdeka",
		int64(1), "Merek",
		int64(2), "Dalam Proses",
		int64(4), "Dinas Koperasi",
		nil, nil, nil,
	)
}

func TestBuildHKIWhere(t *testing.T) {
	where, args := buildHKIWhere(models.HKIFilter{})
	if where != "" || len(args) != 0 {
		t.Fatalf("empty filter should not constrain, got %q %v", where, args)
	}

	where, args = buildHKIWhere(models.HKIFilter{Search: " kopi ", StatusID: 2, Year: 2024})
	if !strings.Contains(where, "nama_pemohon LIKE ?") || !strings.Contains(where, "h.id_status = ?") {
		t.Fatalf("unexpected where %q", where)
	}
	if len(args) != 5 || args[0] != "%kopi%" {
		t.Fatalf("unexpected args %v", args)
	}
}

func TestHKIOrderByFallsBackToCreatedAt(t *testing.T) {
	got := hkiOrderBy(models.HKIFilter{SortBy: "id_hki; DROP TABLE hki", SortOrder: "asc"})
	if got != " ORDER BY h.created_at ASC, h.id_hki ASC" {
		t.Fatalf("unexpected order by %q", got)
	}
	got = hkiOrderBy(models.HKIFilter{SortBy: "nama_hki"})
	if got != " ORDER BY h.nama_hki DESC, h.id_hki DESC" {
		t.Fatalf("unexpected order by %q", got)
	}
}

func TestHKIListReturnsPageAndCount(t *testing.T) {
	db, mock := newMock(t)
	repo := HKIRepository{DB: db}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM hki h WHERE`).
		WithArgs("%budi%", "%budi%", "%budi%", 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`SELECT h.id_hki, .* FROM hki h .* ORDER BY h.nama_hki ASC, h.id_hki ASC LIMIT \? OFFSET \?`).
		WithArgs("%budi%", "%budi%", "%budi%", 2, 5, 5).
		WillReturnRows(addHKIRow(sqlmock.NewRows(hkiColumns), 11, "Kopi Gayo"))

	page, err := repo.List(context.Background(), models.HKIFilter{
		Search: "budi", JenisID: 2, SortBy: "nama_hki", SortOrder: "asc", Page: 2, PageSize: 5,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 7 || len(page.Records) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	rec := page.Records[0]
	if rec.PemohonName() != "Budi Santoso" || rec.StatusName() != "Dalam Proses" {
		t.Fatalf("joined rows not mapped: %+v", rec)
	}
	if rec.Kelas != nil || rec.Keterangan != nil {
		t.Fatalf("null columns should stay nil")
	}
	if rec.TahunFasilitasi == nil || *rec.TahunFasilitasi != 2024 {
		t.Fatalf("tahun not mapped")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHKIGetJoinedNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`WHERE h.id_hki = \?`).WithArgs(99).WillReturnRows(sqlmock.NewRows(hkiColumns))

	_, err := HKIRepository{DB: db}.GetJoined(context.Background(), 99)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "Data HKI dengan ID 99 tidak ditemukan." {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestHKIUpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := HKIRepository{DB: db}

	mock.ExpectQuery(`SELECT nama_status FROM status_hki`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"nama_status"}).AddRow("Terdaftar"))
	mock.ExpectExec(`UPDATE hki SET id_status = \?`).WithArgs(3, sqlmock.AnyArg(), 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	name, err := repo.UpdateStatus(context.Background(), 10, 3)
	if err != nil || name != "Terdaftar" {
		t.Fatalf("got %q, %v", name, err)
	}

	mock.ExpectQuery(`SELECT nama_status FROM status_hki`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"nama_status"}).AddRow("Terdaftar"))
	mock.ExpectExec(`UPDATE hki SET id_status = \?`).WithArgs(3, sqlmock.AnyArg(), 11).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM hki WHERE id_hki = \?`).WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	if _, err := repo.UpdateStatus(context.Background(), 11, 3); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectQuery(`SELECT nama_status FROM status_hki`).WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"nama_status"}))
	if _, err := repo.UpdateStatus(context.Background(), 10, 42); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHKIUnchangedRowIsNotMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := HKIRepository{DB: db}

	// same status again within one second: matched but not changed
	mock.ExpectQuery(`SELECT nama_status FROM status_hki`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"nama_status"}).AddRow("Dalam Proses"))
	mock.ExpectExec(`UPDATE hki SET id_status = \?`).WithArgs(2, sqlmock.AnyArg(), 10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM hki WHERE id_hki = \?`).WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	name, err := repo.UpdateStatus(context.Background(), 10, 2)
	if err != nil || name != "Dalam Proses" {
		t.Fatalf("unchanged status should succeed, got %q, %v", name, err)
	}

	row := models.HKIRow{NamaHKI: "Kopi Arabika", PemohonID: 3, TahunFasilitasi: 2024, JenisID: 1, StatusID: 2, PengusulID: 4}
	mock.ExpectExec(`UPDATE hki SET nama_hki = \?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM hki WHERE id_hki = \?`).WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	if err := repo.Update(context.Background(), 10, row); err != nil {
		t.Fatalf("identical re-save should succeed, got %v", err)
	}

	mock.ExpectExec(`UPDATE hki SET nama_hki = \?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM hki WHERE id_hki = \?`).WithArgs(77).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	if err := repo.Update(context.Background(), 77, row); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHKIFilesForIDs(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT id_hki, sertifikat_pdf FROM hki WHERE id_hki IN \(\?,\?,\?\)`).
		WithArgs(1, 2, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id_hki", "sertifikat_pdf"}).
			AddRow(int64(1), "public/1-a.pdf").
			AddRow(int64(3), nil))

	found, paths, err := HKIRepository{DB: db}.FilesForIDs(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(found) != 2 || len(paths) != 1 || paths[0] != "public/1-a.pdf" {
		t.Fatalf("unexpected result %v %v", found, paths)
	}
}

func TestHKIInsertTranslatesMissingReference(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO hki`).WillReturnError(&mysql.MySQLError{Number: 1452, Message: "fk"})

	_, err := HKIRepository{DB: db}.Insert(context.Background(), models.HKIRow{NamaHKI: "x"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPemohonFindOrCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := PemohonRepository{DB: db}

	mock.ExpectQuery(`SELECT id_pemohon FROM pemohon WHERE nama_pemohon = \?`).WithArgs("Budi Santoso").
		WillReturnRows(sqlmock.NewRows([]string{"id_pemohon"}).AddRow(int64(8)))
	id, err := repo.FindOrCreate(context.Background(), "  Budi Santoso ", nil)
	if err != nil || id != 8 {
		t.Fatalf("existing: got %d, %v", id, err)
	}

	alamat := "Jl. Sudirman"
	mock.ExpectQuery(`SELECT id_pemohon FROM pemohon`).WithArgs("Siti").
		WillReturnRows(sqlmock.NewRows([]string{"id_pemohon"}))
	mock.ExpectExec(`INSERT INTO pemohon`).WithArgs("Siti", "Jl. Sudirman").
		WillReturnResult(sqlmock.NewResult(21, 1))
	id, err = repo.FindOrCreate(context.Background(), "Siti", &alamat)
	if err != nil || id != 21 {
		t.Fatalf("created: got %d, %v", id, err)
	}

	if _, err := repo.FindOrCreate(context.Background(), "   ", nil); err == nil {
		t.Fatalf("blank name must fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPemohonUpsert(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`ON DUPLICATE KEY UPDATE alamat = VALUES\(alamat\), id_pemohon = LAST_INSERT_ID\(id_pemohon\)`).
		WithArgs("Budi", nil).
		WillReturnResult(sqlmock.NewResult(8, 2))

	id, err := PemohonRepository{DB: db}.Upsert(context.Background(), "Budi", nil)
	if err != nil || id != 8 {
		t.Fatalf("got %d, %v", id, err)
	}
}

func TestMasterDeleteInUse(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`DELETE FROM pengusul WHERE id_pengusul = \?`).WithArgs(5).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "a foreign key constraint fails"})

	err := MasterRepository{DB: db}.Delete(context.Background(), domain.MasterPengusul, 5)
	var conflict domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if conflict.Msg != "Data tidak dapat dihapus karena masih digunakan oleh entri HKI." {
		t.Fatalf("unexpected message %q", conflict.Msg)
	}
}

func TestMasterCreateAndUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := MasterRepository{DB: db}

	mock.ExpectExec(`INSERT INTO kelas_hki \(nama_kelas, tipe\) VALUES \(\?,\?\)`).
		WithArgs("Kopi", "Barang").
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectQuery(`SELECT id_kelas, nama_kelas, tipe FROM kelas_hki WHERE id_kelas = \?`).WithArgs(30).
		WillReturnRows(sqlmock.NewRows([]string{"id_kelas", "nama_kelas", "tipe"}).AddRow(int64(30), "Kopi", "Barang"))

	row, err := repo.Create(context.Background(), domain.MasterKelasHKI, map[string]string{"tipe": "Barang", "nama_kelas": "Kopi"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if row["id_kelas"] != int64(30) || row["tipe"] != "Barang" {
		t.Fatalf("unexpected row %v", row)
	}

	mock.ExpectExec(`UPDATE jenis_hki SET nama_jenis_hki = \? WHERE id_jenis_hki = \?`).
		WithArgs("Paten Sederhana", 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM jenis_hki WHERE id_jenis_hki = \?`).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"id_jenis_hki", "nama_jenis_hki"}))

	_, err = repo.Update(context.Background(), domain.MasterJenisHKI, 9, map[string]string{"nama_jenis_hki": "Paten Sederhana"})
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("admin@hki.go.id", "Admin", "hash", "admin", sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := UserRepository{DB: db}.Create(context.Background(), models.User{
		Email: " Admin@HKI.go.id ", FullName: "Admin", PasswordHash: "hash", Role: "admin",
	})
	var conflict domain.ConflictError
	if !errors.As(err, &conflict) || conflict.Msg != "Email ini sudah terdaftar." {
		t.Fatalf("expected duplicate conflict, got %v", err)
	}
}

func TestUserUpdateRequiresFields(t *testing.T) {
	db, _ := newMock(t)
	if _, err := (UserRepository{DB: db}).Update(context.Background(), 1, models.UserUpdate{}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatsCountBy(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT s.nama_status, COUNT\(h.id_hki\) FROM hki h`).
		WillReturnRows(sqlmock.NewRows([]string{"nama_status", "count"}).
			AddRow("Diterima", 4).AddRow("Ditolak", 1))

	got, err := StatsRepository{DB: db}.CountBy(context.Background(), ByStatus)
	if err != nil || len(got) != 2 || got[0].Label != "Diterima" || got[0].Count != 4 {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := (StatsRepository{DB: db}).CountBy(context.Background(), Dimension("x")); err == nil {
		t.Fatalf("unknown dimension must fail")
	}
}
