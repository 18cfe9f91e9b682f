package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"hkiapp/internal/listing"
)

// queryFlags are the list filters shared by list, delete, status and watch.
type queryFlags struct {
	search   string
	jenis    string
	status   string
	year     string
	pengusul string
	sortBy   string
	order    string
	page     int
	pageSize int
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.search, "search", "s", "", "search nama HKI, jenis produk or pemohon")
	fl.StringVar(&f.jenis, "jenis", "", "jenis HKI id")
	fl.StringVar(&f.status, "status", "", "status id")
	fl.StringVar(&f.year, "year", "", "tahun fasilitasi")
	fl.StringVar(&f.pengusul, "pengusul", "", "pengusul id")
	fl.StringVar(&f.sortBy, "sort", listing.DefaultSortField, "sort field: created_at, nama_hki, tahun_fasilitasi")
	fl.StringVar(&f.order, "order", listing.DefaultSortOrder, "asc or desc")
	fl.IntVarP(&f.page, "page", "p", 1, "page number")
	fl.IntVar(&f.pageSize, "page-size", 0, "rows per page (default from config)")
}

// query runs the flags through the same table state the dashboard uses, so
// invalid values fall back exactly as they do there.
func (f *queryFlags) query(defaultPageSize int) listing.Query {
	start := listing.DefaultQuery()
	if defaultPageSize > 0 {
		start.PageSize = defaultPageSize
	}
	if f.pageSize > 0 {
		start.PageSize = f.pageSize
	}
	start.Sort = listing.Sort{Field: f.sortBy, Order: f.order}

	tbl := listing.NewTable(start, nil)
	tbl.SetFilter(listing.FilterJenis, f.jenis)
	tbl.SetFilter(listing.FilterStatus, f.status)
	tbl.SetFilter(listing.FilterYear, f.year)
	tbl.SetFilter(listing.FilterPengusul, f.pengusul)
	if f.search != "" {
		tbl.SetSearch(f.search)
		tbl.FlushSearch()
	}

	q := tbl.Query()
	q.Page = f.page
	return q.Normalize()
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("ID tidak valid: %s", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
