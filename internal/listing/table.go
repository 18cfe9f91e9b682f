package listing

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// SearchDebounce is how long SetSearch waits for typing to settle.
const SearchDebounce = 400 * time.Millisecond

// Filter names accepted by Table.SetFilter; they match the query keys.
const (
	FilterJenis    = KeyJenis
	FilterStatus   = KeyStatus
	FilterYear     = KeyYear
	FilterPengusul = KeyPengusul
)

// Table holds the editable list state behind a data table: filters, sort
// and pagination. Every change reports the new query through onChange.
type Table struct {
	mu       sync.Mutex
	query    Query
	debounce time.Duration
	timer    *time.Timer
	pending  *string
	onChange func(Query)
}

func NewTable(initial Query, onChange func(Query)) *Table {
	if onChange == nil {
		onChange = func(Query) {}
	}
	return &Table{query: initial.Normalize(), debounce: SearchDebounce, onChange: onChange}
}

func (t *Table) Query() Query {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.query
}

func (t *Table) apply(fn func(q Query) Query) Query {
	t.mu.Lock()
	t.query = fn(t.query).Normalize()
	q := t.query
	t.mu.Unlock()
	t.onChange(q)
	return q
}

// SetFilter sets one id filter; "", "all" or an invalid value clears it.
// The page goes back to 1.
func (t *Table) SetFilter(name, value string) Query {
	id := parseID(value)
	return t.apply(func(q Query) Query {
		f := q.Filter
		switch name {
		case FilterJenis:
			f.JenisID = id
		case FilterStatus:
			f.StatusID = id
		case FilterYear:
			f.Year = int(id)
		case FilterPengusul:
			f.PengusulID = id
		default:
			return q
		}
		return q.WithFilter(f)
	})
}

// SetSearch applies text after the debounce delay. A newer call replaces
// the pending one.
func (t *Table) SetSearch(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = &text
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, t.FlushSearch)
}

// FlushSearch applies a pending search immediately.
func (t *Table) FlushSearch() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	text := t.pending
	t.pending = nil
	t.mu.Unlock()
	if text == nil {
		return
	}
	t.apply(func(q Query) Query {
		if strings.TrimSpace(*text) == q.Filter.Search {
			return q
		}
		f := q.Filter
		f.Search = *text
		return q.WithFilter(f)
	})
}

// ToggleSort sorts ascending by field, or flips to descending when the
// table is already ascending by it. Unsortable fields are ignored.
func (t *Table) ToggleSort(field string) Query {
	if !sortable(field) {
		return t.Query()
	}
	return t.apply(func(q Query) Query {
		order := "asc"
		if q.Sort.Field == field && q.Sort.Order == "asc" {
			order = "desc"
		}
		q.Sort = Sort{Field: field, Order: order}
		q.Page = 1
		return q
	})
}

// SetPage moves to page, clamped to the pages available for total rows.
func (t *Table) SetPage(page, total int) Query {
	return t.apply(func(q Query) Query {
		last := TotalPages(total, q.PageSize)
		q.Page = min(max(page, 1), last)
		return q
	})
}

func (t *Table) SetPageSize(n int) Query {
	return t.apply(func(q Query) Query {
		q.PageSize = n
		q.Page = 1
		return q
	})
}

// ClearFilters drops every filter and restores the default sort.
func (t *Table) ClearFilters() Query {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
	t.mu.Unlock()
	return t.apply(func(q Query) Query {
		q.Filter = Filter{}
		q.Sort = Sort{Field: DefaultSortField, Order: DefaultSortOrder}
		q.Page = 1
		return q
	})
}

// PageItems lays out the pagination strip for current of total pages.
// Zero marks an ellipsis.
func PageItems(current, total int) []int {
	if total <= 7 {
		out := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, i)
		}
		return out
	}
	switch {
	case current < 5:
		return []int{1, 2, 3, 4, 0, total}
	case current > total-4:
		return []int{1, 0, total - 3, total - 2, total - 1, total}
	default:
		return []int{1, 0, current - 1, current, current + 1, 0, total}
	}
}

// FormatPageItems renders the strip as text, e.g. "1 … 4 [5] 6 … 12".
func FormatPageItems(current, total int) string {
	items := PageItems(current, total)
	parts := make([]string, len(items))
	for i, p := range items {
		switch {
		case p == 0:
			parts[i] = "…"
		case p == current:
			parts[i] = "[" + strconv.Itoa(p) + "]"
		default:
			parts[i] = strconv.Itoa(p)
		}
	}
	return strings.Join(parts, " ")
}
