package listing

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"hkiapp/internal/domain/models"
	"hkiapp/internal/realtime"
)

// State is the lifecycle of one cached signature.
type State int

const (
	Idle State = iota
	Fetching
	Ready
	Errored
	OptimisticallyMutated
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Ready:
		return "ready"
	case Errored:
		return "errored"
	case OptimisticallyMutated:
		return "optimistic"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

const defaultCapacity = 32

// View is what a caller renders for one signature.
type View struct {
	Query Query
	Page  models.RecordPage
	State State
	// Loading is set while the first fetch runs and there is nothing to show.
	Loading bool
	// Refreshing is set while a background refetch runs behind cached data.
	Refreshing bool
	Err        error
}

// Outcome reports a settled optimistic mutation.
type Outcome struct {
	Message string
	Removed int
	// Query is the active query after the mutation; its page may have been
	// clamped when the total shrank.
	Query Query
}

type entry struct {
	query    Query
	page     models.RecordPage
	hasData  bool
	state    State
	err      error
	gen      uint64
	stale    bool
	fetching bool
	inflight uint64
	pending  int
	elem     *list.Element
}

// Controller owns the cached list pages. All access to a page goes through
// its methods; callers only ever receive copies.
type Controller struct {
	backend  Backend
	capacity int
	logger   *slog.Logger
	notify   func(Signature)

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[Signature]*entry
	lru     *list.List
	active  Signature
	query   Query
}

type Option func(*Controller)

// WithCapacity bounds the number of cached signatures.
func WithCapacity(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.capacity = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNotify registers a callback fired after a signature's view changed.
// It runs outside the controller lock.
func WithNotify(fn func(Signature)) Option {
	return func(c *Controller) { c.notify = fn }
}

func NewController(backend Backend, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:  backend,
		capacity: defaultCapacity,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		entries:  map[Signature]*entry{},
		lru:      list.New(),
		query:    DefaultQuery(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.active = c.query.Signature()
	return c
}

// Close cancels background fetches and waits for them to return.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// Wait blocks until no background fetch is running.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// ActiveQuery is the query most recently read, clamped when the total shrinks.
func (c *Controller) ActiveQuery() Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

func (c *Controller) fire(sigs ...Signature) {
	if c.notify == nil {
		return
	}
	for _, s := range sigs {
		c.notify(s)
	}
}

// lookup returns the entry for q, creating it and evicting the least
// recently used inactive entry when over capacity. Caller holds mu.
func (c *Controller) lookup(q Query) (Signature, *entry) {
	sig := q.Signature()
	if e, ok := c.entries[sig]; ok {
		c.lru.MoveToFront(e.elem)
		return sig, e
	}
	e := &entry{query: q, state: Idle}
	e.elem = c.lru.PushFront(sig)
	c.entries[sig] = e

	for c.lru.Len() > c.capacity {
		victim := c.lru.Back()
		for victim != nil && (victim.Value.(Signature) == c.active || victim.Value.(Signature) == sig) {
			victim = victim.Prev()
		}
		if victim == nil {
			break
		}
		vs := victim.Value.(Signature)
		c.lru.Remove(victim)
		delete(c.entries, vs)
		c.logger.Debug("listing cache evict", "signature", string(vs))
	}
	return sig, e
}

func (c *Controller) view(e *entry) View {
	return View{
		Query:      e.query,
		Page:       e.page.Clone(),
		State:      e.state,
		Loading:    e.fetching && !e.hasData,
		Refreshing: e.fetching && e.hasData,
		Err:        e.err,
	}
}

// Read makes q the active query and returns what is cached for it. Missing,
// stale or failed pages start a background fetch; cached data stays visible
// while it runs.
func (c *Controller) Read(q Query) View {
	q = q.Normalize()
	c.mu.Lock()
	sig, e := c.lookup(q)
	c.active = sig
	c.query = q
	if !e.fetching && (!e.hasData || e.stale || e.state == Errored) {
		c.startFetch(sig, e)
	}
	v := c.view(e)
	c.mu.Unlock()
	return v
}

// Peek returns the cached view without fetching or changing the active query.
func (c *Controller) Peek(q Query) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[q.Normalize().Signature()]
	if !ok {
		return View{}, false
	}
	return c.view(e), true
}

// Load is the blocking form of Read for callers without a render loop.
func (c *Controller) Load(ctx context.Context, q Query) (models.RecordPage, error) {
	q = q.Normalize()
	c.mu.Lock()
	sig, e := c.lookup(q)
	c.active = sig
	c.query = q
	if e.hasData && !e.stale && e.state != Errored {
		page := e.page.Clone()
		c.mu.Unlock()
		return page, nil
	}
	if !e.fetching {
		e.fetching = true
		e.inflight = e.gen
		if !e.hasData {
			e.state = Fetching
		}
	}
	gen := e.inflight
	c.mu.Unlock()

	page, err := c.fetch(ctx, sig, gen, q)
	c.settle(sig, e, gen, page, err)
	if err != nil {
		return models.RecordPage{}, err
	}
	return page.Clone(), nil
}

func flightKey(sig Signature, gen uint64) string {
	return string(sig) + "#" + strconv.FormatUint(gen, 10)
}

// fetch coalesces concurrent requests for the same signature and generation.
func (c *Controller) fetch(ctx context.Context, sig Signature, gen uint64, q Query) (models.RecordPage, error) {
	v, err, _ := c.group.Do(flightKey(sig, gen), func() (any, error) {
		return c.backend.Fetch(ctx, q)
	})
	if err != nil {
		return models.RecordPage{}, err
	}
	return v.(models.RecordPage), nil
}

// startFetch runs a background fetch for the entry's current generation.
// Caller holds mu.
func (c *Controller) startFetch(sig Signature, e *entry) {
	e.fetching = true
	e.inflight = e.gen
	e.state = Fetching
	gen, q := e.gen, e.query
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		page, err := c.fetch(c.ctx, sig, gen, q)
		c.settle(sig, e, gen, page, err)
	}()
}

// settle applies a fetch result unless it is stale: the entry was evicted,
// invalidated after the fetch started, or has an optimistic mutation pending.
func (c *Controller) settle(sig Signature, e *entry, gen uint64, page models.RecordPage, err error) {
	c.mu.Lock()
	if cur, ok := c.entries[sig]; !ok || cur != e {
		c.mu.Unlock()
		c.logger.Debug("listing fetch discarded: evicted", "signature", string(sig))
		return
	}
	if e.fetching && e.inflight == gen {
		e.fetching = false
	}

	switch {
	case gen != e.gen:
		c.logger.Debug("listing fetch discarded: superseded", "signature", string(sig))
		if !e.fetching && e.stale && e.pending == 0 && sig == c.active {
			c.startFetch(sig, e)
		}
		c.mu.Unlock()
		return
	case e.pending > 0:
		// the mutation's own invalidation refetches once it settles
		c.logger.Debug("listing fetch discarded: mutation pending", "signature", string(sig))
		e.stale = true
		c.mu.Unlock()
		return
	case err != nil:
		e.err = err
		if !e.hasData {
			e.state = Errored
		} else {
			// keep showing the last good page
			e.state = Ready
		}
	default:
		e.page = page.Clone()
		if e.page.Records == nil {
			e.page.Records = []models.HKI{}
		}
		e.hasData = true
		e.stale = false
		e.err = nil
		e.state = Ready
		if moved, ok := c.clampActive(sig, e.page.TotalCount); ok {
			c.mu.Unlock()
			c.fire(sig, moved)
			return
		}
	}
	c.mu.Unlock()
	c.fire(sig)
}

// clampActive moves the active query back inside [1, totalPages] when a
// fresh page for it reports a smaller total, and loads the new page.
// Caller holds mu.
func (c *Controller) clampActive(sig Signature, total int) (Signature, bool) {
	if sig != c.active {
		return "", false
	}
	clamped := c.query.Clamp(total)
	if clamped.Page == c.query.Page {
		return "", false
	}
	c.logger.Debug("listing page clamped", "from", c.query.Page, "to", clamped.Page, "total", total)
	c.query = clamped
	next, e := c.lookup(clamped)
	c.active = next
	if !e.fetching && (!e.hasData || e.stale || e.state == Errored) {
		c.startFetch(next, e)
	}
	return next, true
}

// Invalidate marks one signature stale. The active signature refetches in
// the background; its data stays visible until the new page arrives.
func (c *Controller) Invalidate(sig Signature) {
	c.mu.Lock()
	e, ok := c.entries[sig]
	if ok {
		c.invalidate(sig, e)
	}
	c.mu.Unlock()
	if ok {
		c.fire(sig)
	}
}

// InvalidatePrefix marks every signature starting with prefix stale.
func (c *Controller) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	var hit []Signature
	for sig, e := range c.entries {
		if strings.HasPrefix(string(sig), prefix) {
			c.invalidate(sig, e)
			hit = append(hit, sig)
		}
	}
	c.mu.Unlock()
	c.fire(hit...)
}

func (c *Controller) invalidate(sig Signature, e *entry) {
	e.gen++
	e.stale = true
	if sig == c.active && !e.fetching && e.pending == 0 {
		c.startFetch(sig, e)
	}
}

// OnExternalChange handles a push notification. Events only ever cause a
// coarse invalidation of the whole list namespace.
func (c *Controller) OnExternalChange(evt realtime.ChangeEvent) {
	c.logger.Debug("listing external change", "type", evt.Type, "resource", evt.Resource)
	c.InvalidatePrefix(Namespace)
}

type snapshot struct {
	sig   Signature
	e     *entry
	page  models.RecordPage
	query Query
	// clamped is the signature the active query moved to, if any.
	clamped Signature
}

// begin records the active page before an optimistic edit. Caller holds mu.
func (c *Controller) begin() (snapshot, bool) {
	e, ok := c.entries[c.active]
	if !ok || !e.hasData {
		return snapshot{}, false
	}
	e.pending++
	return snapshot{sig: c.active, e: e, page: e.page.Clone(), query: c.query}, true
}

// rollback restores the snapshot exactly.
func (c *Controller) rollback(s snapshot) {
	c.mu.Lock()
	s.e.pending--
	s.e.page = s.page
	s.e.state = RolledBack
	if s.clamped != "" && c.active == s.clamped {
		c.active, c.query = s.sig, s.query
	}
	c.mu.Unlock()
	c.fire(s.sig)
}

func (c *Controller) commit(s snapshot) {
	c.mu.Lock()
	s.e.pending--
	if s.e.pending == 0 && s.e.state == OptimisticallyMutated {
		s.e.state = Ready
	}
	c.mu.Unlock()
	c.InvalidatePrefix(Namespace)
}

// OptimisticDelete removes ids from the active page and decrements the
// total before asking the server. A failure restores the page as it was.
func (c *Controller) OptimisticDelete(ctx context.Context, ids []int64) (Outcome, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	c.mu.Lock()
	snap, ok := c.begin()
	var names []string
	removed := 0
	if ok {
		e := snap.e
		kept := make([]models.HKI, 0, len(e.page.Records))
		for _, r := range e.page.Records {
			if _, hit := want[r.ID]; hit {
				names = append(names, r.NamaHKI)
				continue
			}
			kept = append(kept, r)
		}
		removed = len(e.page.Records) - len(kept)
		e.page.Records = kept
		e.page.TotalCount -= removed
		if e.page.TotalCount < 0 {
			e.page.TotalCount = 0
		}
		e.state = OptimisticallyMutated

		if clamped := c.query.Clamp(e.page.TotalCount); clamped.Page != c.query.Page {
			c.query = clamped
			c.active = clamped.Signature()
			snap.clamped = c.active
		}
	}
	c.mu.Unlock()
	if ok {
		c.fire(snap.sig)
	}

	res, err := c.backend.BulkDelete(ctx, ids)
	if err != nil {
		if ok {
			c.rollback(snap)
		}
		return Outcome{Query: c.ActiveQuery()}, fmt.Errorf("Gagal menghapus: %w", err)
	}
	if ok {
		c.commit(snap)
	} else {
		c.InvalidatePrefix(Namespace)
	}

	// the message follows the names resolved from the loaded page
	msg := res.Message
	switch {
	case len(names) == 1:
		msg = fmt.Sprintf("Data \"%s\" berhasil dihapus.", names[0])
	case len(names) > 1:
		msg = fmt.Sprintf("%d entri berhasil dihapus.", len(names))
	case msg == "":
		msg = "Entri berhasil dihapus!"
	}
	return Outcome{Message: msg, Removed: removed, Query: c.ActiveQuery()}, nil
}

// OptimisticStatusChange shows the new status straight away. The status
// label comes from options; an unknown id leaves the record untouched.
func (c *Controller) OptimisticStatusChange(ctx context.Context, id, statusID int64, options []models.StatusHKI) (Outcome, error) {
	var next *models.StatusHKI
	for _, o := range options {
		if o.ID == statusID {
			st := o
			next = &st
			break
		}
	}

	c.mu.Lock()
	snap, ok := c.begin()
	if ok && next != nil {
		recs := snap.e.page.Records
		for i := range recs {
			if recs[i].ID == id {
				recs[i].StatusHKI = next
			}
		}
		snap.e.state = OptimisticallyMutated
	}
	c.mu.Unlock()
	if ok {
		c.fire(snap.sig)
	}

	msg, err := c.backend.UpdateStatus(ctx, id, statusID)
	if err != nil {
		if ok {
			c.rollback(snap)
		}
		return Outcome{Query: c.ActiveQuery()}, fmt.Errorf("Gagal memperbarui status: %w", err)
	}
	if ok {
		c.commit(snap)
	} else {
		c.InvalidatePrefix(Namespace)
	}
	if msg == "" {
		msg = "Status berhasil diperbarui."
	}
	return Outcome{Message: msg, Query: c.ActiveQuery()}, nil
}
