package atlassian

import "encoding/json"

// Jira REST API v3 wire types.

type searchResponse struct {
	Issues        []rawIssue `json:"issues"`
	NextPageToken string     `json:"nextPageToken"`
	IsLast        bool       `json:"isLast"`
}

// rawIssue keeps fields raw so configurable custom fields can be read.
type rawIssue struct {
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

type issueFields struct {
	Summary      string        `json:"summary"`
	Status       status        `json:"status"`
	IssueType    issueType     `json:"issuetype"`
	Priority     *priority     `json:"priority"`
	Assignee     *user         `json:"assignee"`
	Description  *ADFNode      `json:"description"`
	Parent       *parentRef    `json:"parent"`
	DueDate      string        `json:"duedate"`
	IssueLinks   []issueLink   `json:"issuelinks"`
	TimeTracking *timeTracking `json:"timetracking"`
}

type status struct {
	Name           string          `json:"name"`
	StatusCategory *statusCategory `json:"statusCategory,omitempty"`
}

type statusCategory struct {
	Key  string `json:"key"` // "new", "indeterminate", "done"
	Name string `json:"name"`
}

type issueType struct {
	Name string `json:"name"`
}

type priority struct {
	Name string `json:"name"`
}

type user struct {
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

type parentRef struct {
	Key string `json:"key"`
}

type timeTracking struct {
	OriginalEstimate string `json:"originalEstimate"`
}

type issueLink struct {
	Type         linkType     `json:"type"`
	InwardIssue  *linkedIssue `json:"inwardIssue,omitempty"`
	OutwardIssue *linkedIssue `json:"outwardIssue,omitempty"`
}

type linkType struct {
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

type linkedIssue struct {
	Key    string `json:"key"`
	Fields struct {
		Status status `json:"status"`
	} `json:"fields"`
}

// ADFNode represents a node in the Atlassian Document Format.
type ADFNode struct {
	Type    string         `json:"type"`
	Content []ADFNode      `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []ADFMark      `json:"marks,omitempty"`
}

// ADFMark represents an inline formatting mark in ADF.
type ADFMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

type transitionRef struct {
	ID string `json:"id"`
}

type transitionPayload struct {
	Transition transitionRef `json:"transition"`
}

type transitionsResponse struct {
	Transitions []transitionInfo `json:"transitions"`
}

type transitionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   status `json:"to"`
}

type commentPayload struct {
	Body ADFNode `json:"body"`
}

type serverInfo struct {
	BaseURL        string `json:"baseUrl"`
	Version        string `json:"version"`
	DeploymentType string `json:"deploymentType"`
	ServerTitle    string `json:"serverTitle"`
}

// Confluence REST API v2 wire types.

type confluencePage struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Status   string      `json:"status"`
	SpaceID  string      `json:"spaceId"`
	ParentID string      `json:"parentId"`
	Version  pageVersion `json:"version"`
	Body     pageBody    `json:"body"`
	Links    pageLinks   `json:"_links"`
}

type pageVersion struct {
	Number    int    `json:"number"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type pageBody struct {
	Storage *bodyValue `json:"storage,omitempty"`
}

type bodyValue struct {
	Representation string `json:"representation"`
	Value          string `json:"value"`
}

type pageLinks struct {
	WebUI string `json:"webui"`
	Base  string `json:"base"`
	Next  string `json:"next"`
}

type spaceInfo struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// listResponse is the cursor-paginated envelope used by v2 list endpoints.
type listResponse[T any] struct {
	Results []T       `json:"results"`
	Links   pageLinks `json:"_links"`
}

type createPagePayload struct {
	SpaceID  string    `json:"spaceId"`
	Status   string    `json:"status"`
	Title    string    `json:"title"`
	ParentID string    `json:"parentId,omitempty"`
	Body     bodyValue `json:"body"`
}

type updatePagePayload struct {
	ID       string      `json:"id"`
	Status   string      `json:"status"`
	Title    string      `json:"title"`
	ParentID string      `json:"parentId,omitempty"`
	Body     bodyValue   `json:"body"`
	Version  pageVersion `json:"version"`
}

// Confluence REST API v1 wire types (search, labels, attachments).

type cqlResponse struct {
	Results []cqlResult `json:"results"`
}

type cqlResult struct {
	Content struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Title string `json:"title"`
		Space struct {
			Key string `json:"key"`
		} `json:"space"`
		Links pageLinks `json:"_links"`
	} `json:"content"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	URL     string `json:"url"`
}

type label struct {
	Prefix string `json:"prefix"`
	Name   string `json:"name"`
}

type attachmentResponse struct {
	Results []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"results"`
}

// Compass GraphQL wire types.

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}
