package listing

import (
	"context"
	"slices"
	"sync"

	"hkiapp/internal/domain"
)

// Deleter is the part of Controller the selection needs.
type Deleter interface {
	OptimisticDelete(ctx context.Context, ids []int64) (Outcome, error)
}

// Selection tracks checked rows across pages while selection mode is on;
// outside the mode Select and SelectAllOnPage do nothing. Ids that are not on
// any loaded page are accepted and simply have no effect.
type Selection struct {
	mu     sync.Mutex
	list   Deleter
	active bool
	ids    map[int64]struct{}
}

func NewSelection(d Deleter) *Selection {
	return &Selection{list: d, ids: map[int64]struct{}{}}
}

// ToggleMode flips selection mode; leaving it clears the set.
func (s *Selection) ToggleMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = !s.active
	if !s.active {
		clear(s.ids)
	}
	return s.active
}

func (s *Selection) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Selection) Select(id int64, included bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	if included {
		s.ids[id] = struct{}{}
	} else {
		delete(s.ids, id)
	}
}

func (s *Selection) SelectAllOnPage(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *Selection) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selection in ascending order.
func (s *Selection) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// BulkDelete deletes the selected rows through the list controller. On
// success the selection is cleared and selection mode ends; on failure both
// are kept so the user can retry.
func (s *Selection) BulkDelete(ctx context.Context) (Outcome, error) {
	ids := s.IDs()
	if len(ids) == 0 {
		return Outcome{}, domain.ValidationError{Field: "ids", Msg: "Tidak ada entri yang dipilih."}
	}
	out, err := s.list.OptimisticDelete(ctx, ids)
	if err != nil {
		return out, err
	}
	s.mu.Lock()
	clear(s.ids)
	s.active = false
	s.mu.Unlock()
	return out, nil
}
