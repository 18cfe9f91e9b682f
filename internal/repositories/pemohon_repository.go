package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "hkiapp/internal/config"
	intdb "hkiapp/internal/db"
)

// PemohonRepository resolves applicants by their exact (trimmed) name.
type PemohonRepository struct {
	DB *sql.DB
}

func (r PemohonRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// FindOrCreate returns the id of the applicant named name, inserting it when
// absent. An existing applicant keeps its stored address.
func (r PemohonRepository) FindOrCreate(ctx context.Context, name string, alamat *string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("nama pemohon tidak boleh kosong")
	}

	id, err := r.findByName(ctx, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("gagal memeriksa data pemohon: %w", err)
	}

	res, err := r.db().ExecContext(ctx,
		`INSERT INTO pemohon (nama_pemohon, alamat) VALUES (?, ?)`, name, intdb.NullString(alamat))
	if err != nil {
		if intdb.IsDuplicate(err) {
			// inserted concurrently by another request
			return r.findByName(ctx, name)
		}
		return 0, fmt.Errorf("gagal membuat pemohon: %w", err)
	}
	return res.LastInsertId()
}

// Upsert creates the applicant or overwrites its address, returning its id.
func (r PemohonRepository) Upsert(ctx context.Context, name string, alamat *string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("nama pemohon tidak boleh kosong")
	}
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO pemohon (nama_pemohon, alamat) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE alamat = VALUES(alamat), id_pemohon = LAST_INSERT_ID(id_pemohon)`,
		name, intdb.NullString(alamat))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		return 0, errors.New("tidak dapat menemukan atau membuat data pemohon")
	}
	return id, nil
}

func (r PemohonRepository) findByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db().QueryRowContext(ctx,
		`SELECT id_pemohon FROM pemohon WHERE nama_pemohon = ? LIMIT 1`, name).Scan(&id)
	return id, err
}
