package docsync

import "sync"

// PageRef points at a page, by id once it is known and always by title.
type PageRef struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
}

// IsZero reports whether the ref points nowhere.
func (r PageRef) IsZero() bool {
	return r.ID == "" && r.Title == ""
}

// SyncPlan maps logical roles (overview, epic:<key>, story:<key>) to the pages
// written during one run. It is safe for concurrent use.
type SyncPlan struct {
	mu   sync.RWMutex
	refs map[string]PageRef
}

// NewSyncPlan returns an empty plan.
func NewSyncPlan() *SyncPlan {
	return &SyncPlan{refs: make(map[string]PageRef)}
}

// Set records the page written for role.
func (p *SyncPlan) Set(role string, ref PageRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs[role] = ref
}

// Get returns the page written for role in this run, if any.
func (p *SyncPlan) Get(role string) (PageRef, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ref, ok := p.refs[role]
	return ref, ok
}

// Len returns the number of resolved roles.
func (p *SyncPlan) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.refs)
}
