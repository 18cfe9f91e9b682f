package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"hkiapp/internal/domain/models"
	"hkiapp/internal/listing"
)

func statusColor(name string) *color.Color {
	switch strings.ToLower(name) {
	case "diterima", "terdaftar", "selesai":
		return color.New(color.FgHiGreen)
	case "ditolak":
		return color.New(color.FgRed)
	case "dalam proses", "diajukan":
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// renderPage prints one list page with its pagination strip.
func renderPage(w io.Writer, q listing.Query, page models.RecordPage) {
	if len(page.Records) == 0 {
		dimColor.Fprintln(w, "Tidak ada data.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, headColor.Sprint("ID\tNAMA HKI\tPEMOHON\tJENIS\tTAHUN\tSTATUS"))
	for _, r := range page.Records {
		jenis, year := "", ""
		if r.Jenis != nil {
			jenis = r.Jenis.NamaJenis
		}
		if r.TahunFasilitasi != nil {
			year = strconv.Itoa(*r.TahunFasilitasi)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.NamaHKI, orDash(r.PemohonName()), orDash(jenis), orDash(year),
			statusColor(r.StatusName()).Sprint(orDash(r.StatusName())))
	}
	tw.Flush()

	pages := listing.TotalPages(page.TotalCount, q.PageSize)
	fmt.Fprintf(w, "\n%s  %s\n",
		dimColor.Sprintf("%d entri", page.TotalCount),
		listing.FormatPageItems(min(q.Page, pages), pages))
}
