// Package listing keeps a client-side view of the HKI list in sync with the
// API: query encoding, page fetching, a cache with optimistic mutations and
// the selection/table state that drives it.
package listing

import (
	"net/url"
	"strconv"
	"strings"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
)

// Namespace prefixes every list signature so push events can invalidate
// all cached pages at once.
const Namespace = "hki"

const (
	DefaultSortField = "created_at"
	DefaultSortOrder = "desc"
)

// Query parameter keys.
const (
	KeySearch    = "search"
	KeyJenis     = "jenisId"
	KeyStatus    = "statusId"
	KeyYear      = "year"
	KeyPengusul  = "pengusulId"
	KeyPage      = "page"
	KeyPageSize  = "pageSize"
	KeySortBy    = "sortBy"
	KeySortOrder = "sortOrder"
)

// Filter is the set of list constraints; zero values mean no constraint.
type Filter struct {
	Search     string
	JenisID    int64
	StatusID   int64
	Year       int
	PengusulID int64
}

type Sort struct {
	Field string
	Order string
}

// Query is the full list state: filters, sort and pagination.
type Query struct {
	Filter   Filter
	Sort     Sort
	Page     int
	PageSize int
}

// Signature is the canonical cache key of a normalized query.
type Signature string

func DefaultQuery() Query {
	return Query{
		Sort:     Sort{Field: DefaultSortField, Order: DefaultSortOrder},
		Page:     1,
		PageSize: domain.DefaultPageSize,
	}
}

func sortable(field string) bool {
	for _, f := range domain.HKISortFields {
		if f == field {
			return true
		}
	}
	return false
}

// Normalize replaces every invalid or empty field with its default.
func (q Query) Normalize() Query {
	q.Filter.Search = strings.TrimSpace(q.Filter.Search)
	if q.Filter.JenisID < 0 {
		q.Filter.JenisID = 0
	}
	if q.Filter.StatusID < 0 {
		q.Filter.StatusID = 0
	}
	if q.Filter.PengusulID < 0 {
		q.Filter.PengusulID = 0
	}
	if q.Filter.Year < 0 {
		q.Filter.Year = 0
	}
	if !sortable(q.Sort.Field) {
		q.Sort.Field = DefaultSortField
	}
	if q.Sort.Order != "asc" && q.Sort.Order != "desc" {
		q.Sort.Order = DefaultSortOrder
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > domain.MaxPageSize {
		q.PageSize = domain.DefaultPageSize
	}
	return q
}

// Encode writes only the fields that differ from their defaults; the default
// query encodes to an empty set.
func Encode(q Query) url.Values {
	q = q.Normalize()
	v := url.Values{}
	if q.Filter.Search != "" {
		v.Set(KeySearch, q.Filter.Search)
	}
	setID(v, KeyJenis, q.Filter.JenisID)
	setID(v, KeyStatus, q.Filter.StatusID)
	setID(v, KeyYear, int64(q.Filter.Year))
	setID(v, KeyPengusul, q.Filter.PengusulID)
	if q.Page != 1 {
		v.Set(KeyPage, strconv.Itoa(q.Page))
	}
	if q.PageSize != domain.DefaultPageSize {
		v.Set(KeyPageSize, strconv.Itoa(q.PageSize))
	}
	if q.Sort.Field != DefaultSortField {
		v.Set(KeySortBy, q.Sort.Field)
	}
	if q.Sort.Order != DefaultSortOrder {
		v.Set(KeySortOrder, q.Sort.Order)
	}
	return v
}

func setID(v url.Values, key string, id int64) {
	if id > 0 {
		v.Set(key, strconv.FormatInt(id, 10))
	}
}

// Decode reads a query, falling back to defaults for anything missing or invalid.
func Decode(v url.Values) Query {
	q := DefaultQuery()
	q.Filter.Search = v.Get(KeySearch)
	q.Filter.JenisID = parseID(v.Get(KeyJenis))
	q.Filter.StatusID = parseID(v.Get(KeyStatus))
	q.Filter.Year = int(parseID(v.Get(KeyYear)))
	q.Filter.PengusulID = parseID(v.Get(KeyPengusul))
	if s := v.Get(KeySortBy); s != "" {
		q.Sort.Field = s
	}
	if s := v.Get(KeySortOrder); s != "" {
		q.Sort.Order = strings.ToLower(s)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.Get(KeyPage))); err == nil {
		q.Page = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v.Get(KeyPageSize))); err == nil {
		q.PageSize = n
	}
	return q.Normalize()
}

// parseID accepts positive integers; "", "all" and garbage mean no constraint.
func parseID(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func (q Query) Signature() Signature {
	return Signature(Namespace + "?" + Encode(q).Encode())
}

// WithFilter replaces the filter and goes back to the first page.
func (q Query) WithFilter(f Filter) Query {
	q.Filter = f
	q.Page = 1
	return q.Normalize()
}

// TotalPages is never less than one.
func TotalPages(total, pageSize int) int {
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	if total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// Clamp pulls the page back into [1, TotalPages(total)].
func (q Query) Clamp(total int) Query {
	q = q.Normalize()
	if last := TotalPages(total, q.PageSize); q.Page > last {
		q.Page = last
	}
	return q
}

// ToFilter converts the query into the repository filter.
func (q Query) ToFilter() models.HKIFilter {
	q = q.Normalize()
	return models.HKIFilter{
		Search:     q.Filter.Search,
		JenisID:    q.Filter.JenisID,
		StatusID:   q.Filter.StatusID,
		Year:       q.Filter.Year,
		PengusulID: q.Filter.PengusulID,
		SortBy:     q.Sort.Field,
		SortOrder:  q.Sort.Order,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
}
