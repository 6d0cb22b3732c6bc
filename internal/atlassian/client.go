// Package atlassian is a thin REST client for Jira Cloud (v3), Confluence
// Cloud (v2 plus the v1 search, label and attachment endpoints) and Compass
// (GraphQL gateway). One Client serves all three products on the same site.
package atlassian

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/config"
)

const (
	jiraService       = "JIRA"
	confluenceService = "Confluence"
	compassService    = "Compass"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

// Client talks to one Atlassian Cloud site.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client

	storyPointsField string
	flaggedField     string

	mu      sync.Mutex
	spaces  map[string]spaceInfo // keyed by space key
	cloudID string
}

// NewClient creates a new client from the given config.
func NewClient(cfg config.Config) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Email + ":" + cfg.Token))
	return &Client{
		baseURL:          strings.TrimRight(cfg.URL, "/"),
		authHeader:       "Basic " + creds,
		httpClient:       &http.Client{Timeout: DefaultTimeout},
		storyPointsField: cfg.Jira.StoryPointsField,
		flaggedField:     cfg.Jira.FlaggedField,
		spaces:           make(map[string]spaceInfo),
	}
}

// BaseURL returns the site URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, service, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshalling payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	return c.send(service, req, out)
}

func (c *Client) send(service string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("executing request: %w", ctxErr)
		}
		return fmt.Errorf("executing request: %v: %w", err, ErrRemoteUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(service, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
