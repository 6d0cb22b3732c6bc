package atlassian

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/model"
)

// maxListPage is the largest page size the v2 list endpoints accept.
const maxListPage = 250

// GetSpaceByKey resolves a space key to its id. Results are cached for the
// lifetime of the client.
func (c *Client) GetSpaceByKey(ctx context.Context, key string) (model.Space, error) {
	c.mu.Lock()
	cached, ok := c.spaces[key]
	c.mu.Unlock()
	if ok {
		return toSpace(cached), nil
	}

	endpoint := fmt.Sprintf("%s/wiki/api/v2/spaces?keys=%s", c.baseURL, url.QueryEscape(key))
	var resp listResponse[spaceInfo]
	if err := c.do(ctx, confluenceService, http.MethodGet, endpoint, nil, &resp); err != nil {
		return model.Space{}, fmt.Errorf("fetching space %s: %w", key, err)
	}
	for _, s := range resp.Results {
		if s.Key == key {
			c.mu.Lock()
			c.spaces[key] = s
			c.mu.Unlock()
			return toSpace(s), nil
		}
	}
	return model.Space{}, fmt.Errorf("space %s: %w", key, ErrNotFound)
}

// GetSpace fetches a space by id.
func (c *Client) GetSpace(ctx context.Context, id string) (model.Space, error) {
	endpoint := fmt.Sprintf("%s/wiki/api/v2/spaces/%s", c.baseURL, url.PathEscape(id))
	var s spaceInfo
	if err := c.do(ctx, confluenceService, http.MethodGet, endpoint, nil, &s); err != nil {
		return model.Space{}, fmt.Errorf("fetching space %s: %w", id, err)
	}
	return toSpace(s), nil
}

// ListSpaces returns up to limit spaces (limit <= 0 means all).
func (c *Client) ListSpaces(ctx context.Context, limit int) ([]model.Space, error) {
	first := fmt.Sprintf("%s/wiki/api/v2/spaces?limit=%d", c.baseURL, pageLimit(limit))
	raw, err := listAll[spaceInfo](ctx, c, first, limit)
	if err != nil {
		return nil, fmt.Errorf("listing spaces: %w", err)
	}
	spaces := make([]model.Space, 0, len(raw))
	for _, s := range raw {
		spaces = append(spaces, toSpace(s))
	}
	return spaces, nil
}

// ListPages returns up to limit current pages in a space (limit <= 0 means all).
// Bodies are not included.
func (c *Client) ListPages(ctx context.Context, spaceKey string, limit int) ([]model.Page, error) {
	space, err := c.GetSpaceByKey(ctx, spaceKey)
	if err != nil {
		return nil, err
	}
	first := fmt.Sprintf("%s/wiki/api/v2/spaces/%s/pages?status=current&limit=%d",
		c.baseURL, url.PathEscape(space.ID), pageLimit(limit))
	raw, err := listAll[confluencePage](ctx, c, first, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pages in %s: %w", spaceKey, err)
	}
	pages := make([]model.Page, 0, len(raw))
	for _, p := range raw {
		pages = append(pages, c.toPage(p, spaceKey))
	}
	return pages, nil
}

// FindPages returns the current pages in a space whose title equals title
// exactly (case-sensitive).
func (c *Client) FindPages(ctx context.Context, spaceKey, title string) ([]model.Page, error) {
	space, err := c.GetSpaceByKey(ctx, spaceKey)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("space-id", space.ID)
	params.Set("title", title)
	params.Set("status", "current")
	params.Set("limit", "25")
	first := fmt.Sprintf("%s/wiki/api/v2/pages?%s", c.baseURL, params.Encode())

	raw, err := listAll[confluencePage](ctx, c, first, 0)
	if err != nil {
		return nil, fmt.Errorf("finding page %q in %s: %w", title, spaceKey, err)
	}
	var pages []model.Page
	for _, p := range raw {
		if p.Title == title {
			pages = append(pages, c.toPage(p, spaceKey))
		}
	}
	return pages, nil
}

// GetPage fetches a page by id with its storage body.
func (c *Client) GetPage(ctx context.Context, id string) (model.Page, error) {
	p, err := c.getPage(ctx, id)
	if err != nil {
		return model.Page{}, err
	}
	return c.toPage(p, ""), nil
}

func (c *Client) getPage(ctx context.Context, id string) (confluencePage, error) {
	endpoint := fmt.Sprintf("%s/wiki/api/v2/pages/%s?body-format=storage", c.baseURL, url.PathEscape(id))
	var p confluencePage
	if err := c.do(ctx, confluenceService, http.MethodGet, endpoint, nil, &p); err != nil {
		return confluencePage{}, fmt.Errorf("fetching page %s: %w", id, err)
	}
	return p, nil
}

// CreatePage creates a page with a storage-format body. parentID may be
// empty to create at the space root.
func (c *Client) CreatePage(ctx context.Context, spaceKey, title, body, parentID string) (model.Page, error) {
	space, err := c.GetSpaceByKey(ctx, spaceKey)
	if err != nil {
		return model.Page{}, err
	}

	payload := createPagePayload{
		SpaceID:  space.ID,
		Status:   "current",
		Title:    title,
		ParentID: parentID,
		Body:     bodyValue{Representation: "storage", Value: body},
	}
	var created confluencePage
	if err := c.do(ctx, confluenceService, http.MethodPost, c.baseURL+"/wiki/api/v2/pages", payload, &created); err != nil {
		return model.Page{}, fmt.Errorf("creating page %q: %w", title, err)
	}
	return c.toPage(created, spaceKey), nil
}

// UpdatePage replaces a page's title and body, bumping the version. An empty
// parentID keeps the current parent.
func (c *Client) UpdatePage(ctx context.Context, id, title, body, parentID string) (model.Page, error) {
	current, err := c.getPage(ctx, id)
	if err != nil {
		return model.Page{}, err
	}
	if parentID == "" {
		parentID = current.ParentID
	}

	payload := updatePagePayload{
		ID:       id,
		Status:   "current",
		Title:    title,
		ParentID: parentID,
		Body:     bodyValue{Representation: "storage", Value: body},
		Version:  pageVersion{Number: current.Version.Number + 1, Message: "Updated by atlsync"},
	}
	endpoint := fmt.Sprintf("%s/wiki/api/v2/pages/%s", c.baseURL, url.PathEscape(id))
	var updated confluencePage
	if err := c.do(ctx, confluenceService, http.MethodPut, endpoint, payload, &updated); err != nil {
		return model.Page{}, fmt.Errorf("updating page %s: %w", id, err)
	}
	return c.toPage(updated, ""), nil
}

// DeletePage moves a page to the trash.
func (c *Client) DeletePage(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/wiki/api/v2/pages/%s", c.baseURL, url.PathEscape(id))
	if err := c.do(ctx, confluenceService, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("deleting page %s: %w", id, err)
	}
	return nil
}

// SearchCQL runs a CQL query against the v1 search endpoint.
func (c *Client) SearchCQL(ctx context.Context, cql string, limit int) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = 25
	}
	params := url.Values{}
	params.Set("cql", cql)
	params.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/wiki/rest/api/search?%s", c.baseURL, params.Encode())

	var resp cqlResponse
	if err := c.do(ctx, confluenceService, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("searching %q: %w", cql, err)
	}

	results := make([]model.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		title := r.Content.Title
		if title == "" {
			title = r.Title
		}
		webui := r.Content.Links.WebUI
		if webui == "" {
			webui = r.URL
		}
		results = append(results, model.SearchResult{
			ID:       r.Content.ID,
			Title:    title,
			Type:     r.Content.Type,
			SpaceKey: r.Content.Space.Key,
			URL:      c.webURL("", webui),
			Excerpt:  r.Excerpt,
		})
	}
	return results, nil
}

// AddLabel attaches a global label to a page.
func (c *Client) AddLabel(ctx context.Context, pageID, name string) error {
	endpoint := fmt.Sprintf("%s/wiki/rest/api/content/%s/label", c.baseURL, url.PathEscape(pageID))
	payload := []label{{Prefix: "global", Name: name}}
	if err := c.do(ctx, confluenceService, http.MethodPost, endpoint, payload, nil); err != nil {
		return fmt.Errorf("labelling page %s: %w", pageID, err)
	}
	return nil
}

// AttachFile uploads a local file as a page attachment and returns the
// attachment id.
func (c *Client) AttachFile(ctx context.Context, pageID, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening attachment: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building upload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/wiki/rest/api/content/%s/child/attachment", c.baseURL, url.PathEscape(pageID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Atlassian-Token", "no-check")

	var resp attachmentResponse
	if err := c.send(confluenceService, req, &resp); err != nil {
		return "", fmt.Errorf("attaching %s to page %s: %w", filepath.Base(path), pageID, err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].ID, nil
}

// listAll follows v2 cursor links until limit results are collected
// (limit <= 0 means every page).
func listAll[T any](ctx context.Context, c *Client, first string, limit int) ([]T, error) {
	var out []T
	next := first
	for next != "" {
		var resp listResponse[T]
		if err := c.do(ctx, confluenceService, http.MethodGet, next, nil, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Results...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}

		next = ""
		if link := resp.Links.Next; link != "" && len(resp.Results) > 0 {
			next = c.baseURL + link
			if !strings.HasPrefix(link, "/wiki") {
				next = c.baseURL + "/wiki" + link
			}
		}
	}
	return out, nil
}

func pageLimit(limit int) int {
	if limit <= 0 || limit > maxListPage {
		return maxListPage
	}
	return limit
}

func (c *Client) toPage(p confluencePage, spaceKey string) model.Page {
	page := model.Page{
		ID:       p.ID,
		Title:    p.Title,
		Status:   p.Status,
		SpaceKey: spaceKey,
		SpaceID:  p.SpaceID,
		ParentID: p.ParentID,
		Version:  p.Version.Number,
		URL:      c.webURL(p.Links.Base, p.Links.WebUI),
	}
	if p.Body.Storage != nil {
		page.Body = p.Body.Storage.Value
	}
	if page.SpaceKey == "" {
		page.SpaceKey = c.cachedSpaceKey(p.SpaceID)
	}
	return page
}

func (c *Client) cachedSpaceKey(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, s := range c.spaces {
		if s.ID == id {
			return key
		}
	}
	return ""
}

// webURL joins a webui link with its base, defaulting to <site>/wiki.
func (c *Client) webURL(base, webui string) string {
	if webui == "" {
		return ""
	}
	if strings.HasPrefix(webui, "http://") || strings.HasPrefix(webui, "https://") {
		return webui
	}
	if base == "" {
		base = c.baseURL + "/wiki"
	}
	return strings.TrimRight(base, "/") + webui
}

func toSpace(s spaceInfo) model.Space {
	return model.Space{ID: s.ID, Key: s.Key, Name: s.Name, Type: s.Type}
}
