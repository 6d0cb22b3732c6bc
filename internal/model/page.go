package model

// Page is a Confluence page. Title is the lookup key this tool uses within a
// space, even though Confluence does not guarantee it unique.
type Page struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status,omitempty"`
	SpaceKey string `json:"space_key,omitempty"`
	SpaceID  string `json:"space_id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Version  int    `json:"version,omitempty"`
	Body     string `json:"body,omitempty"` // storage format
	URL      string `json:"url,omitempty"`
}

// Space is a Confluence space.
type Space struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// SearchResult is a single CQL hit.
type SearchResult struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	SpaceKey string `json:"space_key,omitempty"`
	URL      string `json:"url,omitempty"`
	Excerpt  string `json:"excerpt,omitempty"`
}

// Component is a Compass component.
type Component struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Transition is an available Jira workflow transition.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   string `json:"to"`
}
