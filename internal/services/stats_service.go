package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"golang.org/x/sync/errgroup"

	"hkiapp/internal/domain/models"
	"hkiapp/internal/repositories"
	"hkiapp/internal/utils"
)

// StatsSource runs grouped counts.
type StatsSource interface {
	CountBy(ctx context.Context, dim repositories.Dimension) ([]models.LabelCount, error)
	CountByYear(ctx context.Context) ([]models.YearCount, error)
}

// RecentSource returns the newest records.
type RecentSource interface {
	Recent(ctx context.Context, n int) ([]models.HKI, error)
}

type StatsService struct {
	Stats     StatsSource
	Records   RecentSource
	RequestID string
}

const recentLimit = 5

// Dashboard runs its queries concurrently and folds the status counts into
// the headline totals.
func (s StatsService) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	var (
		out       models.DashboardStats
		perStatus []models.LabelCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		perStatus, err = s.Stats.CountBy(gctx, repositories.ByStatus)
		return err
	})
	g.Go(func() error {
		var err error
		out.Yearly, err = s.Stats.CountByYear(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Recent, err = s.Records.Recent(gctx, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, fmt.Errorf("gagal memuat statistik: %w", err)
	}

	for _, lc := range perStatus {
		out.Total += lc.Count
		switch strings.ToLower(lc.Label) {
		case "diterima", "terdaftar":
			out.DiterimaTerdaftar += lc.Count
		case "dalam proses":
			out.Diproses += lc.Count
		case "ditolak":
			out.Ditolak += lc.Count
		}
	}
	out.PerStatus = perStatus
	utils.LogEvent(s.RequestID, "stats", "dashboard", fmt.Sprintf("total=%d", out.Total))
	return out, nil
}

// Summary gathers every chart series used by the report page.
func (s StatsService) Summary(ctx context.Context) (models.ReportSummary, error) {
	var out models.ReportSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Yearly, err = s.Stats.CountByYear(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.PerStatus, err = s.Stats.CountBy(gctx, repositories.ByStatus)
		return err
	})
	g.Go(func() (err error) {
		out.PerJenis, err = s.Stats.CountBy(gctx, repositories.ByJenis)
		return err
	})
	g.Go(func() (err error) {
		out.PerPengusul, err = s.Stats.CountBy(gctx, repositories.ByPengusul)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.ReportSummary{}, fmt.Errorf("gagal memuat laporan: %w", err)
	}
	return out, nil
}

// SummaryPDF renders the report summary as a printable document.
func (s StatsService) SummaryPDF(ctx context.Context, at time.Time) ([]byte, string, error) {
	sum, err := s.Summary(ctx)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "reports", "summary_pdf", "render")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Laporan HKI", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "LAPORAN FASILITASI HKI")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Dicetak: "+utils.FormatDateTime(at))
	pdf.Ln(10)

	yearly := make([]models.LabelCount, 0, len(sum.Yearly))
	for _, y := range sum.Yearly {
		yearly = append(yearly, models.LabelCount{Label: fmt.Sprintf("%d", y.Year), Count: y.Count})
	}

	section := func(title string, items []models.LabelCount) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		if len(items) == 0 {
			pdf.Cell(0, 7, "-")
			pdf.Ln(9)
			return
		}
		for _, it := range items {
			pdf.CellFormat(120, 7, tr(it.Label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 7, fmt.Sprintf("%d", it.Count), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	section("Per Tahun Fasilitasi", yearly)
	section("Per Status", sum.PerStatus)
	section("Per Jenis HKI", sum.PerJenis)
	section("Per Pengusul (OPD)", sum.PerPengusul)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "laporan-hki_" + utils.FormatDate(at) + ".pdf", nil
}
