package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	intconfig "hkiapp/internal/config"
	intdb "hkiapp/internal/db"
	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
)

// MasterRow is one reference row keyed by column name.
type MasterRow map[string]any

// MasterRepository serves the closed set of editable reference tables.
// Table and column names come only from domain.MasterTable, never from input.
type MasterRepository struct {
	DB *sql.DB
}

func (r MasterRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func masterColumns(t domain.MasterTable) []string {
	cols := []string{t.IDColumn()}
	for _, f := range t.Fields() {
		cols = append(cols, f.Column)
	}
	return cols
}

func (r MasterRepository) List(ctx context.Context, t domain.MasterTable) ([]MasterRow, error) {
	if !t.Valid() {
		return nil, domain.ValidationError{Field: "table", Msg: "Tabel tidak valid"}
	}
	cols := masterColumns(t)
	rows, err := r.db().QueryContext(ctx,
		`SELECT `+strings.Join(cols, ", ")+` FROM `+t.Table()+` ORDER BY `+t.IDColumn()+` ASC`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t, err)
	}
	defer rows.Close()

	out := []MasterRow{}
	for rows.Next() {
		row, err := scanMaster(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r MasterRepository) Get(ctx context.Context, t domain.MasterTable, id int64) (MasterRow, error) {
	cols := masterColumns(t)
	row, err := scanMaster(r.db().QueryRowContext(ctx,
		`SELECT `+strings.Join(cols, ", ")+` FROM `+t.Table()+` WHERE `+t.IDColumn()+` = ?`, id), cols)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundError{Resource: t.Label(), ID: id}
	}
	return row, err
}

func (r MasterRepository) Create(ctx context.Context, t domain.MasterTable, values map[string]string) (MasterRow, error) {
	cols, args := sortedValues(values)
	res, err := r.db().ExecContext(ctx,
		`INSERT INTO `+t.Table()+` (`+strings.Join(cols, ", ")+`) VALUES (`+intdb.Placeholders(len(cols))+`)`, args...)
	if err != nil {
		return nil, translateMasterErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, t, id)
}

func (r MasterRepository) Update(ctx context.Context, t domain.MasterTable, id int64, values map[string]string) (MasterRow, error) {
	cols, args := sortedValues(values)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	args = append(args, id)
	if _, err := r.db().ExecContext(ctx,
		`UPDATE `+t.Table()+` SET `+strings.Join(sets, ", ")+` WHERE `+t.IDColumn()+` = ?`, args...); err != nil {
		return nil, translateMasterErr(err)
	}
	// unchanged values report zero affected rows, so existence is checked by re-reading
	return r.Get(ctx, t, id)
}

func (r MasterRepository) Delete(ctx context.Context, t domain.MasterTable, id int64) error {
	res, err := r.db().ExecContext(ctx, `DELETE FROM `+t.Table()+` WHERE `+t.IDColumn()+` = ?`, id)
	if err != nil {
		return translateMasterErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: t.Label(), ID: id}
	}
	return nil
}

// Options loads every reference list used by the filing form and filters.
func (r MasterRepository) Options(ctx context.Context, years []int) (models.FormOptions, error) {
	opts := models.FormOptions{
		JenisOptions:    []models.JenisHKI{},
		StatusOptions:   []models.StatusHKI{},
		TahunOptions:    []models.TahunOption{},
		PengusulOptions: []models.SelectOption{},
		KelasOptions:    []models.SelectOption{},
	}
	for _, y := range years {
		opts.TahunOptions = append(opts.TahunOptions, models.TahunOption{Tahun: y})
	}

	if err := r.each(ctx, `SELECT id_jenis_hki, nama_jenis_hki FROM jenis_hki ORDER BY nama_jenis_hki`, func(s rowScanner) error {
		var j models.JenisHKI
		if err := s.Scan(&j.ID, &j.NamaJenis); err != nil {
			return err
		}
		opts.JenisOptions = append(opts.JenisOptions, j)
		return nil
	}); err != nil {
		return opts, err
	}

	if err := r.each(ctx, `SELECT id_status, nama_status FROM status_hki ORDER BY id_status`, func(s rowScanner) error {
		var st models.StatusHKI
		if err := s.Scan(&st.ID, &st.NamaStatus); err != nil {
			return err
		}
		opts.StatusOptions = append(opts.StatusOptions, st)
		return nil
	}); err != nil {
		return opts, err
	}

	if err := r.each(ctx, `SELECT id_pengusul, nama_opd FROM pengusul ORDER BY nama_opd`, func(s rowScanner) error {
		var p models.Pengusul
		if err := s.Scan(&p.ID, &p.NamaOPD); err != nil {
			return err
		}
		opts.PengusulOptions = append(opts.PengusulOptions, models.SelectOption{
			Value: strconv.FormatInt(p.ID, 10),
			Label: p.NamaOPD,
		})
		return nil
	}); err != nil {
		return opts, err
	}

	err := r.each(ctx, `SELECT id_kelas, nama_kelas, tipe FROM kelas_hki ORDER BY id_kelas`, func(s rowScanner) error {
		var k models.KelasHKI
		if err := s.Scan(&k.ID, &k.NamaKelas, &k.Tipe); err != nil {
			return err
		}
		opts.KelasOptions = append(opts.KelasOptions, models.SelectOption{
			Value: strconv.FormatInt(k.ID, 10),
			Label: fmt.Sprintf("%d - %s (%s)", k.ID, k.NamaKelas, k.Tipe),
		})
		return nil
	})
	return opts, err
}

func (r MasterRepository) each(ctx context.Context, q string, fn func(rowScanner) error) error {
	rows, err := r.db().QueryContext(ctx, q)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanMaster(s rowScanner, cols []string) (MasterRow, error) {
	var id int64
	texts := make([]sql.NullString, len(cols)-1)
	dest := []any{&id}
	for i := range texts {
		dest = append(dest, &texts[i])
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	row := MasterRow{cols[0]: id}
	for i, c := range cols[1:] {
		row[c] = texts[i].String
	}
	return row, nil
}

func sortedValues(values map[string]string) ([]string, []any) {
	cols := make([]string, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = values[c]
	}
	return cols, args
}

func translateMasterErr(err error) error {
	switch intdb.MySQLErrorNumber(err) {
	case intdb.ErrRowIsReferenced:
		return domain.ConflictError{Msg: "Data tidak dapat dihapus karena masih digunakan oleh entri HKI.", Err: err}
	case intdb.ErrDuplicateEntry:
		return domain.ConflictError{Msg: "Data dengan nama tersebut sudah ada.", Err: err}
	}
	return err
}
