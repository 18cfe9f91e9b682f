package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/xuri/excelize/v2"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
	"hkiapp/internal/utils"
)

// MaxXLSXRows caps spreadsheet exports; CSV has no cap.
const MaxXLSXRows = 2000

var exportHeaders = []string{
	"Nama HKI",
	"Jenis Produk",
	"Nama Pemohon",
	"Alamat Pemohon",
	"Jenis HKI",
	"Kelas HKI",
	"Pengusul (OPD)",
	"Tahun Fasilitasi",
	"Status",
	"Keterangan",
}

// ExportSource lists every record matching a filter, oldest first.
type ExportSource interface {
	ListAll(ctx context.Context, f models.HKIFilter, limit int) ([]models.HKI, error)
}

type ExportService struct {
	Records   ExportSource
	Now       func() time.Time
	RequestID string
}

// ExportFile is a rendered download.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

func (s ExportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Export renders the filtered records as csv, xlsx (default) or pdf.
func (s ExportService) Export(ctx context.Context, f models.HKIFilter, format string) (ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "xlsx"
	}
	if format != "csv" && format != "xlsx" && format != "pdf" {
		return ExportFile{}, domain.ValidationError{Field: "format", Msg: "Format file tidak valid: " + format}
	}

	limit := 0
	if format == "xlsx" {
		limit = MaxXLSXRows + 1
	}
	records, err := s.Records.ListAll(ctx, f, limit)
	if err != nil {
		return ExportFile{}, fmt.Errorf("Kesalahan Database: %w", err)
	}
	if len(records) == 0 {
		return ExportFile{}, domain.NotFoundError{Msg: "Tidak ada data yang cocok dengan filter Anda."}
	}
	if format == "xlsx" && len(records) > MaxXLSXRows {
		return ExportFile{}, domain.TooLargeError{Msg: fmt.Sprintf(
			"Data terlalu besar (lebih dari %d baris) untuk ekspor Excel. Gunakan format CSV atau persempit filter Anda.", MaxXLSXRows)}
	}

	rows := ExportRows(records)
	base := "hki-export_" + utils.FormatDate(s.now())
	utils.LogEvent(s.RequestID, "export", format, fmt.Sprintf("rows=%d", len(rows)))

	switch format {
	case "csv":
		data, err := renderCSV(rows)
		return ExportFile{Name: base + ".csv", ContentType: "text/csv; charset=utf-8", Data: data}, err
	case "pdf":
		data, err := renderPDFTable(rows, s.now())
		return ExportFile{Name: base + ".pdf", ContentType: "application/pdf", Data: data}, err
	default:
		data, err := renderXLSX(rows)
		return ExportFile{
			Name:        base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, err
	}
}

// ExportRows flattens records into the export column order. Missing values are "".
func ExportRows(records []models.HKI) [][]string {
	out := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			r.NamaHKI,
			deref(r.JenisProduk),
			r.PemohonName(),
			"",
			"",
			"-",
			"",
			"",
			r.StatusName(),
			deref(r.Keterangan),
		}
		if r.Pemohon != nil {
			row[3] = deref(r.Pemohon.Alamat)
		}
		if r.Jenis != nil {
			row[4] = r.Jenis.NamaJenis
		}
		if r.Kelas != nil {
			row[5] = fmt.Sprintf("Kelas %d: %s", r.Kelas.ID, r.Kelas.NamaKelas)
		}
		if r.Pengusul != nil {
			row[6] = r.Pengusul.NamaOPD
		}
		if r.TahunFasilitasi != nil {
			row[7] = strconv.Itoa(*r.TahunFasilitasi)
		}
		out = append(out, row)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func renderCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeaders); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Data HKI"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheet, "A", "J", 25); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		// keep the year numeric so spreadsheet filters work
		if y, err := strconv.Atoi(row[7]); err == nil {
			values[7] = y
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderPDFTable(rows [][]string, at time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Data HKI", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Data Fasilitasi HKI")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Dicetak: "+utils.FormatDateTime(at))
	pdf.Ln(9)

	// subset of columns that fits a landscape page
	cols := []int{0, 2, 4, 6, 7, 8}
	widths := []float64{70, 50, 35, 60, 25, 37}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 9)
	for i, c := range cols {
		pdf.CellFormat(widths[i], 7, exportHeaders[c], "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		for i, c := range cols {
			pdf.CellFormat(widths[i], 6, tr(truncate(row[c], int(widths[i]/1.8))), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
