package docsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/dt-pm-tools/atlsync/internal/report"
)

// Kind selects what a sync covers.
type Kind string

const (
	KindOverview Kind = "overview"
	KindEpic     Kind = "epic"
	KindStory    Kind = "story"
	KindFull     Kind = "full"
)

// ParseKind validates a sync type name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindOverview, KindEpic, KindStory, KindFull:
		return k, nil
	}
	return "", fmt.Errorf("unknown sync type %q (want overview, epic, story or full)", s)
}

// Target is the Jira project synced into a Confluence space.
type Target struct {
	Project string
	Space   string
}

// Validate checks that both project and space are set.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Project) == "" {
		return fmt.Errorf("%w: project key is required", ErrInvalidTarget)
	}
	if strings.TrimSpace(t.Space) == "" {
		return fmt.Errorf("%w: space key is required", ErrInvalidTarget)
	}
	return nil
}

// Options configures an Orchestrator.
type Options struct {
	JiraURL        string
	ConfluenceURL  string
	Rules          report.Rules
	Types          IssueTypes
	StoryPageLimit int    // default story limit for full syncs
	Concurrency    int    // parallel epic / story syncs; < 1 means 1
	Label          string // added to every synced page; empty disables
	Now            func() time.Time
}

// Entry records one attempted page write.
type Entry struct {
	Role    string `json:"role"`
	Key     string `json:"key,omitempty"`
	Title   string `json:"title"`
	PageID  string `json:"page_id,omitempty"`
	URL     string `json:"url,omitempty"`
	Created bool   `json:"created"`
	Err     error  `json:"-"`
}

// FullResult is the outcome of SyncFull, one entry per attempted document in
// write order (overview, epics by key, stories by key).
type FullResult struct {
	Entries []Entry
	Created int
	Updated int
	Failed  int
}

// Failures returns the entries that did not sync.
func (r FullResult) Failures() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

func (r *FullResult) add(entries ...Entry) {
	for _, e := range entries {
		r.Entries = append(r.Entries, e)
		switch {
		case e.Err != nil:
			r.Failed++
		case e.Created:
			r.Created++
		default:
			r.Updated++
		}
	}
}

// Orchestrator syncs Jira issues into Confluence pages.
type Orchestrator struct {
	issues IssueSource
	store  PageStore
	rec    *Reconciler
	opts   Options
	log    *slog.Logger
}

// NewOrchestrator wires an orchestrator. A nil Now uses time.Now.
func NewOrchestrator(issues IssueSource, store PageStore, opts Options, log *slog.Logger) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		issues: issues,
		store:  store,
		rec:    NewReconciler(store, log),
		opts:   opts,
		log:    log,
	}
}

func (o *Orchestrator) renderer() Renderer {
	return Renderer{
		JiraURL:       o.opts.JiraURL,
		ConfluenceURL: o.opts.ConfluenceURL,
		Rules:         o.opts.Rules,
		Types:         o.opts.Types,
		Now:           o.opts.Now(),
	}
}

// SyncOverview upserts "<Project> - Project Overview" at the space root.
func (o *Orchestrator) SyncOverview(ctx context.Context, target Target) (Entry, error) {
	if err := target.Validate(); err != nil {
		return Entry{}, err
	}
	doc, err := o.overviewDocument(ctx, o.renderer(), target)
	if err != nil {
		return Entry{Role: RoleOverview, Title: OverviewTitle(target.Project), Err: err}, err
	}
	entry := o.write(ctx, target, doc, "")
	return entry, entry.Err
}

// SyncEpic upserts one epic page. It is parented under the overview page
// when one exists (looked up, never created), else the space root.
func (o *Orchestrator) SyncEpic(ctx context.Context, target Target, epicKey string) (Entry, error) {
	if err := target.Validate(); err != nil {
		return Entry{}, err
	}
	epic, err := o.issues.GetIssue(ctx, epicKey)
	if err != nil {
		err = fmt.Errorf("fetching epic %s: %w", epicKey, err)
		return Entry{Role: EpicRole(epicKey), Key: epicKey, Err: err}, err
	}
	if err := o.checkType(epic, o.opts.Types.withDefaults().Epic); err != nil {
		return Entry{Role: EpicRole(epicKey), Key: epicKey, Err: err}, err
	}

	up := o.lookupOverview(ctx, target)
	entry := o.syncEpic(ctx, o.renderer(), target, epic, up, nil)
	return entry, entry.Err
}

// SyncStory upserts one story page at the space root (or under its existing
// parent when the page already exists).
func (o *Orchestrator) SyncStory(ctx context.Context, target Target, storyKey string) (Entry, error) {
	if err := target.Validate(); err != nil {
		return Entry{}, err
	}
	story, err := o.issues.GetIssue(ctx, storyKey)
	if err != nil {
		err = fmt.Errorf("fetching story %s: %w", storyKey, err)
		return Entry{Role: StoryRole(storyKey), Key: storyKey, Err: err}, err
	}
	if err := o.checkType(story, o.opts.Types.withDefaults().Story); err != nil {
		return Entry{Role: StoryRole(storyKey), Key: storyKey, Err: err}, err
	}
	entry := o.syncStory(ctx, o.renderer(), target, story, NewSyncPlan())
	return entry, entry.Err
}

// SyncFull syncs the overview, every epic and up to storyLimit stories
// (0 uses the configured default). Epic and story failures are recorded in
// the result and the run continues; failing to list epics or stories stops
// the run and returns the partial result with the error.
func (o *Orchestrator) SyncFull(ctx context.Context, target Target, storyLimit int) (FullResult, error) {
	var result FullResult
	if err := target.Validate(); err != nil {
		return result, err
	}
	if storyLimit <= 0 {
		storyLimit = o.opts.StoryPageLimit
	}

	r := o.renderer()
	plan := NewSyncPlan()

	overview, err := o.overviewDocument(ctx, r, target)
	if err != nil {
		result.add(Entry{Role: RoleOverview, Title: OverviewTitle(target.Project), Err: err})
		o.log.Warn("overview sync failed", "project", target.Project, "err", err)
	} else {
		entry := o.write(ctx, target, overview, "")
		result.add(entry)
		if entry.Err == nil {
			plan.Set(RoleOverview, PageRef{ID: entry.PageID, Title: entry.Title})
		}
	}
	up, _ := plan.Get(RoleOverview)

	epics, err := o.issues.Query(ctx, model.IssueQuery{
		Project: target.Project,
		Types:   []string{o.opts.Types.withDefaults().Epic},
	})
	if err != nil {
		return result, fmt.Errorf("listing epics of %s: %w", target.Project, err)
	}
	result.add(o.forEach(ctx, epics, func(ctx context.Context, epic model.Issue) Entry {
		return o.syncEpic(ctx, r, target, epic, up, plan)
	})...)

	stories, err := o.issues.Query(ctx, model.IssueQuery{
		Project: target.Project,
		Types:   []string{o.opts.Types.withDefaults().Story},
		Limit:   storyLimit,
	})
	if err != nil {
		return result, fmt.Errorf("listing stories of %s: %w", target.Project, err)
	}
	if storyLimit > 0 && len(stories) > storyLimit {
		stories = stories[:storyLimit]
	}
	result.add(o.forEach(ctx, stories, func(ctx context.Context, story model.Issue) Entry {
		return o.syncStory(ctx, r, target, story, plan)
	})...)

	o.log.Info("full sync finished", "project", target.Project, "space", target.Space,
		"created", result.Created, "updated", result.Updated, "failed", result.Failed)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// Preview renders what a sync of the given kind would write without writing
// to Confluence. An epic preview looks up the overview page like SyncEpic;
// every other link is by title.
func (o *Orchestrator) Preview(ctx context.Context, target Target, kind Kind, key string, storyLimit int) ([]Document, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	r := o.renderer()

	switch kind {
	case KindOverview:
		doc, err := o.overviewDocument(ctx, r, target)
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil

	case KindEpic:
		epic, err := o.issues.GetIssue(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fetching epic %s: %w", key, err)
		}
		if err := o.checkType(epic, o.opts.Types.withDefaults().Epic); err != nil {
			return nil, err
		}
		doc, err := o.epicDocument(ctx, r, target, epic, o.lookupOverview(ctx, target))
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil

	case KindStory:
		story, err := o.issues.GetIssue(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("fetching story %s: %w", key, err)
		}
		if err := o.checkType(story, o.opts.Types.withDefaults().Story); err != nil {
			return nil, err
		}
		doc, err := o.storyDocument(ctx, r, target, story, PageRef{})
		if err != nil {
			return nil, err
		}
		return []Document{doc}, nil

	case KindFull:
		if storyLimit <= 0 {
			storyLimit = o.opts.StoryPageLimit
		}
		snap, err := o.Snapshot(ctx, target, storyLimit)
		if err != nil {
			return nil, err
		}
		return r.RenderFull(snap), nil
	}
	return nil, fmt.Errorf("unknown sync type %q", kind)
}

// Snapshot gathers the issues a full sync reads: active issues, all epics
// with their children, and the first storyLimit stories with their subtasks.
func (o *Orchestrator) Snapshot(ctx context.Context, target Target, storyLimit int) (ProjectSnapshot, error) {
	types := o.opts.Types.withDefaults()
	seen := map[string]model.Issue{}
	collect := func(q model.IssueQuery) ([]model.Issue, error) {
		issues, err := o.issues.Query(ctx, q)
		for _, i := range issues {
			seen[i.Key] = i
		}
		return issues, err
	}

	if _, err := collect(model.IssueQuery{Project: target.Project, ExcludeStatuses: o.opts.Rules.DoneStatuses}); err != nil {
		return ProjectSnapshot{}, fmt.Errorf("listing active issues: %w", err)
	}
	epics, err := collect(model.IssueQuery{Project: target.Project, Types: []string{types.Epic}})
	if err != nil {
		return ProjectSnapshot{}, fmt.Errorf("listing epics: %w", err)
	}
	stories, err := collect(model.IssueQuery{Project: target.Project, Types: []string{types.Story}, Limit: storyLimit})
	if err != nil {
		return ProjectSnapshot{}, fmt.Errorf("listing stories: %w", err)
	}
	for _, parent := range append(epics, stories...) {
		if _, err := collect(model.IssueQuery{Project: target.Project, ParentKey: parent.Key}); err != nil {
			return ProjectSnapshot{}, fmt.Errorf("listing children of %s: %w", parent.Key, err)
		}
	}

	issues := make([]model.Issue, 0, len(seen))
	for _, i := range seen {
		issues = append(issues, i)
	}
	model.SortIssues(issues)
	return ProjectSnapshot{Project: target.Project, Issues: issues, StoryLimit: storyLimit}, nil
}

// checkType rejects an issue whose type is not want, so a key of the wrong
// kind never produces a page.
func (o *Orchestrator) checkType(i model.Issue, want string) error {
	if strings.EqualFold(i.Type, want) {
		return nil
	}
	return fmt.Errorf("%s is a %s, not a %s: %w", i.Key, i.Type, want, ErrWrongIssueType)
}

// lookupOverview finds the existing overview page without writing. Missing
// or ambiguous pages yield a zero ref.
func (o *Orchestrator) lookupOverview(ctx context.Context, target Target) PageRef {
	title := OverviewTitle(target.Project)
	pages, err := o.store.FindPages(ctx, target.Space, title)
	if err != nil {
		o.log.Warn("overview lookup failed", "space", target.Space, "title", title, "err", err)
		return PageRef{}
	}
	if len(pages) != 1 {
		o.log.Debug("overview page not resolved", "space", target.Space, "matches", len(pages))
		return PageRef{}
	}
	return PageRef{ID: pages[0].ID, Title: title}
}

func (o *Orchestrator) overviewDocument(ctx context.Context, r Renderer, target Target) (Document, error) {
	issues, err := o.issues.Query(ctx, model.IssueQuery{
		Project:         target.Project,
		ExcludeStatuses: o.opts.Rules.DoneStatuses,
	})
	if err != nil {
		return Document{}, fmt.Errorf("listing active issues of %s: %w", target.Project, err)
	}
	return Document{
		Role:  RoleOverview,
		Title: OverviewTitle(target.Project),
		Body:  r.RenderProjectOverview(target.Project, issues),
	}, nil
}

func (o *Orchestrator) epicDocument(ctx context.Context, r Renderer, target Target, epic model.Issue, up PageRef) (Document, error) {
	stories, err := o.issues.Query(ctx, model.IssueQuery{
		Project:   target.Project,
		ParentKey: epic.Key,
		Types:     []string{o.opts.Types.withDefaults().Story},
	})
	if err != nil {
		return Document{}, fmt.Errorf("listing children of %s: %w", epic.Key, err)
	}
	doc := Document{
		Role:  EpicRole(epic.Key),
		Key:   epic.Key,
		Title: EpicTitle(epic),
		Body:  r.RenderEpic(epic, stories, up),
	}
	if !up.IsZero() {
		doc.ParentRole = RoleOverview
	}
	return doc, nil
}

func (o *Orchestrator) storyDocument(ctx context.Context, r Renderer, target Target, story model.Issue, up PageRef) (Document, error) {
	subtasks, err := o.issues.Query(ctx, model.IssueQuery{Project: target.Project, ParentKey: story.Key})
	if err != nil {
		return Document{}, fmt.Errorf("listing subtasks of %s: %w", story.Key, err)
	}
	doc := Document{
		Role:  StoryRole(story.Key),
		Key:   story.Key,
		Title: StoryTitle(story),
		Body:  r.RenderStory(story, subtasks, up),
	}
	if !up.IsZero() {
		doc.ParentRole = EpicRole(story.ParentKey)
	}
	return doc, nil
}

// syncEpic renders and writes one epic page. plan may be nil.
func (o *Orchestrator) syncEpic(ctx context.Context, r Renderer, target Target, epic model.Issue, up PageRef, plan *SyncPlan) Entry {
	doc, err := o.epicDocument(ctx, r, target, epic, up)
	if err != nil {
		return Entry{Role: EpicRole(epic.Key), Key: epic.Key, Title: EpicTitle(epic), Err: err}
	}
	entry := o.write(ctx, target, doc, up.ID)
	if entry.Err == nil && plan != nil {
		plan.Set(entry.Role, PageRef{ID: entry.PageID, Title: entry.Title})
	}
	return entry
}

// syncStory renders and writes one story page, parented under its epic's
// page when that epic was written earlier in this run.
func (o *Orchestrator) syncStory(ctx context.Context, r Renderer, target Target, story model.Issue, plan *SyncPlan) Entry {
	var up PageRef
	if story.ParentKey != "" {
		up, _ = plan.Get(EpicRole(story.ParentKey))
	}
	doc, err := o.storyDocument(ctx, r, target, story, up)
	if err != nil {
		return Entry{Role: StoryRole(story.Key), Key: story.Key, Title: StoryTitle(story), Err: err}
	}
	entry := o.write(ctx, target, doc, up.ID)
	if entry.Err == nil {
		plan.Set(entry.Role, PageRef{ID: entry.PageID, Title: entry.Title})
	}
	return entry
}

// write upserts a rendered document and applies the sync label.
func (o *Orchestrator) write(ctx context.Context, target Target, doc Document, parentID string) Entry {
	entry := Entry{Role: doc.Role, Key: doc.Key, Title: doc.Title}

	out, err := o.rec.Upsert(ctx, PageSpec{
		Title:    doc.Title,
		Body:     doc.Body,
		Space:    target.Space,
		ParentID: parentID,
	})
	if err != nil {
		entry.Err = err
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			o.log.Warn("ambiguous page title", "space", conflict.Space, "title", conflict.Title, "ids", conflict.PageIDs)
		}
		return entry
	}
	entry.PageID = out.ID
	entry.URL = out.URL
	entry.Created = out.Created

	if o.opts.Label != "" {
		if err := o.store.AddLabel(ctx, out.ID, o.opts.Label); err != nil {
			o.log.Warn("labelling page failed", "id", out.ID, "label", o.opts.Label, "err", err)
		}
	}
	return entry
}

// forEach runs fn over issues with bounded concurrency and returns the
// entries in input order.
func (o *Orchestrator) forEach(ctx context.Context, issues []model.Issue, fn func(context.Context, model.Issue) Entry) []Entry {
	entries := make([]Entry, len(issues))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for idx, issue := range issues {
		g.Go(func() error {
			entry := fn(gctx, issue)
			if entry.Err != nil {
				o.log.Warn("page sync failed", "role", entry.Role, "err", entry.Err)
			}
			entries[idx] = entry
			return nil
		})
	}
	// Workers record failures in their entry and never return an error.
	_ = g.Wait()
	return entries
}
