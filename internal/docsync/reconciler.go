package docsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// PageSpec is the desired state of one page.
type PageSpec struct {
	Title    string
	Body     string // storage format
	Space    string
	ParentID string // empty: space root on create, keep current parent on update
}

// Outcome reports what an upsert did.
type Outcome struct {
	ID      string
	URL     string
	Created bool
}

// Reconciler creates or updates a page identified by (space, title).
type Reconciler struct {
	store PageStore
	log   *slog.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewReconciler returns a reconciler writing to store.
func NewReconciler(store PageStore, log *slog.Logger) *Reconciler {
	return &Reconciler{
		store: store,
		log:   log,
		locks: make(map[string]*keyLock),
	}
}

// Upsert makes the page titled spec.Title in spec.Space hold spec.Body. It
// performs exactly one write: an update when one page matches, a create when
// none does. More than one match returns *ConflictError without writing.
// Calls for the same (space, title) are serialized.
func (r *Reconciler) Upsert(ctx context.Context, spec PageSpec) (Outcome, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return Outcome{}, fmt.Errorf("upsert: page title is required")
	}
	if strings.TrimSpace(spec.Space) == "" {
		return Outcome{}, fmt.Errorf("upsert %q: space is required", spec.Title)
	}

	unlock := r.lock(spec.Space + "\x00" + spec.Title)
	defer unlock()

	matches, err := r.store.FindPages(ctx, spec.Space, spec.Title)
	if err != nil {
		return Outcome{}, fmt.Errorf("looking up %q: %w", spec.Title, err)
	}

	switch len(matches) {
	case 0:
		page, err := r.store.CreatePage(ctx, spec.Space, spec.Title, spec.Body, spec.ParentID)
		if err != nil {
			return Outcome{}, fmt.Errorf("creating %q: %w", spec.Title, err)
		}
		r.log.Info("page created", "space", spec.Space, "title", spec.Title, "id", page.ID)
		return Outcome{ID: page.ID, URL: page.URL, Created: true}, nil

	case 1:
		existing := matches[0]
		page, err := r.store.UpdatePage(ctx, existing.ID, spec.Title, spec.Body, spec.ParentID)
		if err != nil {
			return Outcome{}, fmt.Errorf("updating %q: %w", spec.Title, err)
		}
		url := page.URL
		if url == "" {
			url = existing.URL
		}
		r.log.Info("page updated", "space", spec.Space, "title", spec.Title, "id", existing.ID)
		return Outcome{ID: existing.ID, URL: url}, nil

	default:
		ids := make([]string, 0, len(matches))
		for _, p := range matches {
			ids = append(ids, p.ID)
		}
		return Outcome{}, &ConflictError{Space: spec.Space, Title: spec.Title, PageIDs: ids}
	}
}

// lock acquires the per-key mutex and returns its release func. Entries are
// dropped once no caller holds or waits on them.
func (r *Reconciler) lock(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &keyLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}
