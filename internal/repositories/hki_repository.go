package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "hkiapp/internal/config"
	intdb "hkiapp/internal/db"
	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
)

// HKIRepository wraps DB access for the hki table and its joined reference rows.
type HKIRepository struct {
	DB *sql.DB
}

func (r HKIRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const hkiSelect = `
	SELECT h.id_hki, h.nama_hki, h.jenis_produk, h.tahun_fasilitasi, h.sertifikat_pdf,
	       h.keterangan, h.created_at, h.updated_at,
	       p.id_pemohon, p.nama_pemohon, p.alamat,
	       j.id_jenis_hki, j.nama_jenis_hki,
	       s.id_status, s.nama_status,
	       g.id_pengusul, g.nama_opd,
	       k.id_kelas, k.nama_kelas, k.tipe
	FROM hki h
	JOIN pemohon p ON p.id_pemohon = h.id_pemohon
	JOIN jenis_hki j ON j.id_jenis_hki = h.id_jenis_hki
	JOIN status_hki s ON s.id_status = h.id_status
	JOIN pengusul g ON g.id_pengusul = h.id_pengusul
	LEFT JOIN kelas_hki k ON k.id_kelas = h.id_kelas`

var hkiSortColumns = map[string]string{
	"created_at":       "h.created_at",
	"nama_hki":         "h.nama_hki",
	"tahun_fasilitasi": "h.tahun_fasilitasi",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHKI(s rowScanner) (models.HKI, error) {
	var (
		h          models.HKI
		jenisProd  sql.NullString
		tahun      sql.NullInt64
		sertifikat sql.NullString
		ket        sql.NullString
		updated    sql.NullTime
		pemohon    models.Pemohon
		alamat     sql.NullString
		jenis      models.JenisHKI
		status     models.StatusHKI
		pengusul   models.Pengusul
		kelasID    sql.NullInt64
		kelasNama  sql.NullString
		kelasTipe  sql.NullString
	)
	err := s.Scan(
		&h.ID, &h.NamaHKI, &jenisProd, &tahun, &sertifikat,
		&ket, &h.CreatedAt, &updated,
		&pemohon.ID, &pemohon.NamaPemohon, &alamat,
		&jenis.ID, &jenis.NamaJenis,
		&status.ID, &status.NamaStatus,
		&pengusul.ID, &pengusul.NamaOPD,
		&kelasID, &kelasNama, &kelasTipe,
	)
	if err != nil {
		return models.HKI{}, err
	}

	h.JenisProduk = intdb.StringPtr(jenisProd)
	h.SertifikatPDF = intdb.StringPtr(sertifikat)
	h.Keterangan = intdb.StringPtr(ket)
	if tahun.Valid {
		y := int(tahun.Int64)
		h.TahunFasilitasi = &y
	}
	if updated.Valid {
		t := updated.Time
		h.UpdatedAt = &t
	}
	pemohon.Alamat = intdb.StringPtr(alamat)
	h.Pemohon = &pemohon
	h.Jenis = &jenis
	h.StatusHKI = &status
	h.Pengusul = &pengusul
	if kelasID.Valid {
		h.Kelas = &models.KelasHKI{ID: kelasID.Int64, NamaKelas: kelasNama.String, Tipe: kelasTipe.String}
	}
	return h, nil
}

// buildHKIWhere applies search over name/product/applicant plus the equality filters.
func buildHKIWhere(f models.HKIFilter) (string, []any) {
	where := []string{}
	args := []any{}

	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, `(h.nama_hki LIKE ? OR h.jenis_produk LIKE ?
			OR h.id_pemohon IN (SELECT id_pemohon FROM pemohon WHERE nama_pemohon LIKE ?))`)
		args = append(args, like, like, like)
	}
	if f.JenisID > 0 {
		where = append(where, "h.id_jenis_hki = ?")
		args = append(args, f.JenisID)
	}
	if f.StatusID > 0 {
		where = append(where, "h.id_status = ?")
		args = append(args, f.StatusID)
	}
	if f.Year > 0 {
		where = append(where, "h.tahun_fasilitasi = ?")
		args = append(args, f.Year)
	}
	if f.PengusulID > 0 {
		where = append(where, "h.id_pengusul = ?")
		args = append(args, f.PengusulID)
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func hkiOrderBy(f models.HKIFilter) string {
	col, ok := hkiSortColumns[f.SortBy]
	if !ok {
		col = hkiSortColumns["created_at"]
	}
	dir := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		dir = "ASC"
	}
	// id tiebreak keeps paging stable when the sort column repeats
	return fmt.Sprintf(" ORDER BY %s %s, h.id_hki %s", col, dir, dir)
}

// List returns one page plus the exact count for the same filter.
func (r HKIRepository) List(ctx context.Context, f models.HKIFilter) (models.RecordPage, error) {
	where, args := buildHKIWhere(f)

	var total int
	if err := r.db().QueryRowContext(ctx, `SELECT COUNT(*) FROM hki h`+where, args...).Scan(&total); err != nil {
		return models.RecordPage{}, fmt.Errorf("count hki: %w", err)
	}

	page := domain.Pagination{Page: f.Page, PageSize: f.PageSize}
	if page.PageSize <= 0 {
		page.PageSize = domain.DefaultPageSize
	}
	q := hkiSelect + where + hkiOrderBy(f) + " LIMIT ? OFFSET ?"
	pageArgs := append(append([]any{}, args...), page.PageSize, page.Offset())

	records, err := r.query(ctx, q, pageArgs...)
	if err != nil {
		return models.RecordPage{}, err
	}
	return models.RecordPage{Records: records, TotalCount: total}, nil
}

// ListAll returns every matching record oldest first, for exports. limit <= 0 means no cap.
func (r HKIRepository) ListAll(ctx context.Context, f models.HKIFilter, limit int) ([]models.HKI, error) {
	where, args := buildHKIWhere(f)
	q := hkiSelect + where + " ORDER BY h.created_at ASC, h.id_hki ASC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	return r.query(ctx, q, args...)
}

// Recent returns the newest n records.
func (r HKIRepository) Recent(ctx context.Context, n int) ([]models.HKI, error) {
	return r.query(ctx, hkiSelect+" ORDER BY h.created_at DESC, h.id_hki DESC LIMIT ?", n)
}

func (r HKIRepository) query(ctx context.Context, q string, args ...any) ([]models.HKI, error) {
	rows, err := r.db().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query hki: %w", err)
	}
	defer rows.Close()

	out := []models.HKI{}
	for rows.Next() {
		h, err := scanHKI(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hki: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetJoined loads one record with every reference row attached.
func (r HKIRepository) GetJoined(ctx context.Context, id int64) (models.HKI, error) {
	h, err := scanHKI(r.db().QueryRowContext(ctx, hkiSelect+" WHERE h.id_hki = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.HKI{}, domain.NotFoundError{Resource: "HKI", ID: id}
	}
	if err != nil {
		return models.HKI{}, fmt.Errorf("get hki %d: %w", id, err)
	}
	return h, nil
}

// FilePath returns the stored certificate path (nil when none).
func (r HKIRepository) FilePath(ctx context.Context, id int64) (*string, error) {
	var path sql.NullString
	err := r.db().QueryRowContext(ctx, `SELECT sertifikat_pdf FROM hki WHERE id_hki = ?`, id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{Resource: "HKI", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get sertifikat hki %d: %w", id, err)
	}
	return intdb.StringPtr(path), nil
}

// FilesForIDs returns the ids that exist and the non-empty certificate paths among them.
func (r HKIRepository) FilesForIDs(ctx context.Context, ids []int64) ([]int64, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	rows, err := r.db().QueryContext(ctx,
		`SELECT id_hki, sertifikat_pdf FROM hki WHERE id_hki IN (`+intdb.Placeholders(len(ids))+`)`,
		intdb.Int64Args(ids)...)
	if err != nil {
		return nil, nil, fmt.Errorf("query sertifikat: %w", err)
	}
	defer rows.Close()

	var found []int64
	var paths []string
	for rows.Next() {
		var id int64
		var path sql.NullString
		if err := rows.Scan(&id, &path); err != nil {
			return nil, nil, err
		}
		found = append(found, id)
		if path.Valid && path.String != "" {
			paths = append(paths, path.String)
		}
	}
	return found, paths, rows.Err()
}

func (r HKIRepository) Insert(ctx context.Context, row models.HKIRow) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO hki (nama_hki, id_pemohon, jenis_produk, tahun_fasilitasi, keterangan,
		                 id_jenis_hki, id_status, id_pengusul, id_kelas, sertifikat_pdf, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.NamaHKI, row.PemohonID, intdb.NullString(row.JenisProduk), row.TahunFasilitasi,
		intdb.NullString(row.Keterangan), row.JenisID, row.StatusID, row.PengusulID,
		intdb.NullInt64(row.KelasID), intdb.NullString(row.SertifikatPDF), time.Now(),
	)
	if err != nil {
		return 0, translateWriteErr(err)
	}
	return res.LastInsertId()
}

// Update writes every column of row, including the certificate path.
func (r HKIRepository) Update(ctx context.Context, id int64, row models.HKIRow) error {
	res, err := r.db().ExecContext(ctx, `
		UPDATE hki SET nama_hki = ?, id_pemohon = ?, jenis_produk = ?, tahun_fasilitasi = ?,
		       keterangan = ?, id_jenis_hki = ?, id_status = ?, id_pengusul = ?, id_kelas = ?,
		       sertifikat_pdf = ?, updated_at = ?
		WHERE id_hki = ?`,
		row.NamaHKI, row.PemohonID, intdb.NullString(row.JenisProduk), row.TahunFasilitasi,
		intdb.NullString(row.Keterangan), row.JenisID, row.StatusID, row.PengusulID,
		intdb.NullInt64(row.KelasID), intdb.NullString(row.SertifikatPDF), time.Now(), id,
	)
	if err != nil {
		return translateWriteErr(err)
	}
	return r.ensureUpdated(ctx, res, id)
}

// ensureUpdated turns zero affected rows into NotFoundError when the row is
// really gone. MySQL reports changed rows unless clientFoundRows is set, and
// a same-second re-save changes nothing.
func (r HKIRepository) ensureUpdated(ctx context.Context, res sql.Result, id int64) error {
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	err := r.db().QueryRowContext(ctx, `SELECT 1 FROM hki WHERE id_hki = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: "HKI", ID: id}
	}
	if err != nil {
		return fmt.Errorf("check hki %d: %w", id, err)
	}
	return nil
}

func (r HKIRepository) SetFile(ctx context.Context, id int64, path *string) error {
	_, err := r.db().ExecContext(ctx,
		`UPDATE hki SET sertifikat_pdf = ? WHERE id_hki = ?`, intdb.NullString(path), id)
	return err
}

// UpdateStatus sets id_status and returns the new status label.
func (r HKIRepository) UpdateStatus(ctx context.Context, id, statusID int64) (string, error) {
	var name string
	err := r.db().QueryRowContext(ctx, `SELECT nama_status FROM status_hki WHERE id_status = ?`, statusID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ValidationError{Field: "statusId", Msg: "Status tidak valid."}
	}
	if err != nil {
		return "", fmt.Errorf("get status %d: %w", statusID, err)
	}

	res, err := r.db().ExecContext(ctx,
		`UPDATE hki SET id_status = ?, updated_at = ? WHERE id_hki = ?`, statusID, time.Now(), id)
	if err != nil {
		return "", translateWriteErr(err)
	}
	if err := r.ensureUpdated(ctx, res, id); err != nil {
		return "", err
	}
	return name, nil
}

func (r HKIRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db().ExecContext(ctx, `DELETE FROM hki WHERE id_hki = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "HKI", ID: id}
	}
	return nil
}

func (r HKIRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db().ExecContext(ctx,
		`DELETE FROM hki WHERE id_hki IN (`+intdb.Placeholders(len(ids))+`)`, intdb.Int64Args(ids)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Years lists distinct facilitation years, newest first.
func (r HKIRepository) Years(ctx context.Context) ([]int, error) {
	rows, err := r.db().QueryContext(ctx,
		`SELECT DISTINCT tahun_fasilitasi FROM hki WHERE tahun_fasilitasi IS NOT NULL ORDER BY tahun_fasilitasi DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// translateWriteErr maps constraint failures to domain errors.
func translateWriteErr(err error) error {
	switch intdb.MySQLErrorNumber(err) {
	case intdb.ErrNoReferencedRow:
		return domain.ValidationError{Msg: "Data referensi (jenis, status, pengusul atau kelas) tidak ditemukan.", Err: err}
	case intdb.ErrDuplicateEntry:
		return domain.ConflictError{Msg: "Data dengan nilai tersebut sudah ada.", Err: err}
	}
	return err
}
