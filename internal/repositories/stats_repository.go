package repositories

import (
	"context"
	"database/sql"
	"fmt"

	intconfig "hkiapp/internal/config"
	"hkiapp/internal/domain/models"
)

// StatsRepository runs the grouped counts behind the dashboard and reports.
type StatsRepository struct {
	DB *sql.DB
}

func (r StatsRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Dimension names a group-by column with its label source.
type Dimension string

const (
	ByStatus   Dimension = "status"
	ByJenis    Dimension = "jenis"
	ByPengusul Dimension = "pengusul"
)

var dimensionQueries = map[Dimension]string{
	ByStatus: `SELECT s.nama_status, COUNT(h.id_hki) FROM hki h
		JOIN status_hki s ON s.id_status = h.id_status
		GROUP BY s.nama_status ORDER BY COUNT(h.id_hki) DESC, s.nama_status ASC`,
	ByJenis: `SELECT j.nama_jenis_hki, COUNT(h.id_hki) FROM hki h
		JOIN jenis_hki j ON j.id_jenis_hki = h.id_jenis_hki
		GROUP BY j.nama_jenis_hki ORDER BY COUNT(h.id_hki) DESC, j.nama_jenis_hki ASC`,
	ByPengusul: `SELECT g.nama_opd, COUNT(h.id_hki) FROM hki h
		JOIN pengusul g ON g.id_pengusul = h.id_pengusul
		GROUP BY g.nama_opd ORDER BY COUNT(h.id_hki) DESC, g.nama_opd ASC`,
}

// CountBy returns counts per label, largest first.
func (r StatsRepository) CountBy(ctx context.Context, dim Dimension) ([]models.LabelCount, error) {
	q, ok := dimensionQueries[dim]
	if !ok {
		return nil, fmt.Errorf("unknown dimension %q", dim)
	}
	rows, err := r.db().QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", dim, err)
	}
	defer rows.Close()

	out := []models.LabelCount{}
	for rows.Next() {
		var lc models.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}

// CountByYear returns counts per facilitation year, oldest first.
func (r StatsRepository) CountByYear(ctx context.Context) ([]models.YearCount, error) {
	rows, err := r.db().QueryContext(ctx, `
		SELECT tahun_fasilitasi, COUNT(*) FROM hki
		WHERE tahun_fasilitasi IS NOT NULL
		GROUP BY tahun_fasilitasi ORDER BY tahun_fasilitasi ASC`)
	if err != nil {
		return nil, fmt.Errorf("count by year: %w", err)
	}
	defer rows.Close()

	out := []models.YearCount{}
	for rows.Next() {
		var yc models.YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, err
		}
		out = append(out, yc)
	}
	return out, rows.Err()
}
