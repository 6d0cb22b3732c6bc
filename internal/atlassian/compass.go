package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/model"
)

const cloudIDQuery = `query tenant($hostNames: [String!]!) {
  tenantContexts(hostNames: $hostNames) { cloudId }
}`

const componentsQuery = `query components($cloudId: String!) {
  compass {
    searchComponents(cloudId: $cloudId, query: {first: 100}) {
      ... on CompassSearchComponentConnection {
        nodes { component { id name typeId description } }
      }
      ... on QueryError { message }
    }
  }
}`

// CloudID resolves the site's cloud id through the GraphQL gateway. The
// result is cached.
func (c *Client) CloudID(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.cloudID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	host := c.baseURL
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		host = u.Host
	}

	var data struct {
		TenantContexts []struct {
			CloudID string `json:"cloudId"`
		} `json:"tenantContexts"`
	}
	if err := c.graphQL(ctx, cloudIDQuery, map[string]any{"hostNames": []string{host}}, &data); err != nil {
		return "", fmt.Errorf("resolving cloud id: %w", err)
	}
	if len(data.TenantContexts) == 0 || data.TenantContexts[0].CloudID == "" {
		return "", fmt.Errorf("cloud id for %s: %w", host, ErrNotFound)
	}

	c.mu.Lock()
	c.cloudID = data.TenantContexts[0].CloudID
	c.mu.Unlock()
	return data.TenantContexts[0].CloudID, nil
}

// ListComponents returns the first page of the site's Compass components.
func (c *Client) ListComponents(ctx context.Context) ([]model.Component, error) {
	cloudID, err := c.CloudID(ctx)
	if err != nil {
		return nil, err
	}

	var data struct {
		Compass struct {
			SearchComponents struct {
				Nodes []struct {
					Component struct {
						ID          string `json:"id"`
						Name        string `json:"name"`
						TypeID      string `json:"typeId"`
						Description string `json:"description"`
					} `json:"component"`
				} `json:"nodes"`
				Message string `json:"message"`
			} `json:"searchComponents"`
		} `json:"compass"`
	}
	if err := c.graphQL(ctx, componentsQuery, map[string]any{"cloudId": cloudID}, &data); err != nil {
		return nil, fmt.Errorf("listing components: %w", err)
	}
	if msg := data.Compass.SearchComponents.Message; msg != "" {
		return nil, fmt.Errorf("listing components: %s", msg)
	}

	nodes := data.Compass.SearchComponents.Nodes
	components := make([]model.Component, 0, len(nodes))
	for _, n := range nodes {
		components = append(components, model.Component{
			ID:          n.Component.ID,
			Name:        n.Component.Name,
			Type:        n.Component.TypeID,
			Description: n.Component.Description,
		})
	}
	return components, nil
}

// graphQL posts a query to the gateway and decodes its data member into out.
func (c *Client) graphQL(ctx context.Context, query string, vars map[string]any, out any) error {
	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	req := graphQLRequest{Query: query, Variables: vars}
	if err := c.do(ctx, compassService, http.MethodPost, c.baseURL+"/gateway/api/graphql", req, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return &ValidationError{Service: compassService, Status: http.StatusOK, Message: strings.Join(msgs, "; ")}
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("empty GraphQL response")
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
