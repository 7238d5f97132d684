package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// QueryBatch asks which vulnerabilities affect each purl. The result is
// index-aligned with purls; a purl without vulnerabilities gets an empty list.
func (c *Client) QueryBatch(ctx context.Context, purls []string) ([][]string, error) {
	req := BatchQueryRequest{Queries: make([]Query, 0, len(purls))}
	for _, purl := range purls {
		req.Queries = append(req.Queries, PurlQuery(purl))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch query: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/querybatch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to query vulnerabilities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("batch query request failed: %s", resp.Status)
	}

	var batch BatchQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch query response: %w", err)
	}
	if len(batch.Results) != len(purls) {
		return nil, fmt.Errorf("batch query returned %d results for %d queries", len(batch.Results), len(purls))
	}

	ids := make([][]string, len(batch.Results))
	for i, result := range batch.Results {
		ids[i] = make([]string, 0, len(result.Vulns))
		for _, v := range result.Vulns {
			if v.ID == "" {
				return nil, fmt.Errorf("batch query result %d: %w", i, ErrMissingID)
			}
			ids[i] = append(ids[i], v.ID)
		}
	}
	return ids, nil
}

// Fetch a full vulnerability record
func (c *Client) GetVulnerability(ctx context.Context, id string) (*Vulnerability, error) {
	u := fmt.Sprintf("%s/vulns/%s", c.BaseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vulnerability %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vulnerability request failed for %s: %s", id, resp.Status)
	}

	var vuln Vulnerability
	if err := json.NewDecoder(resp.Body).Decode(&vuln); err != nil {
		return nil, fmt.Errorf("failed to decode vulnerability %s: %w", id, err)
	}
	if err := vuln.Validate(); err != nil {
		return nil, fmt.Errorf("vulnerability %s: %w", id, err)
	}
	return &vuln, nil
}
