package depsdev

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Fetch a package and its known versions
func (c *Client) GetPackage(ctx context.Context, system, name string) (*Package, error) {
	u := fmt.Sprintf("%s/systems/%s/packages/%s", c.BaseURL, system, url.PathEscape(name))

	var pkg Package
	if err := c.do(ctx, http.MethodGet, u, nil, &pkg); err != nil {
		return nil, fmt.Errorf("package request failed for %s: %w", name, err)
	}
	return &pkg, nil
}

// Fetch metadata for a single version, including its advisory keys
func (c *Client) GetVersion(ctx context.Context, vk VersionKey) (*Version, error) {
	u := fmt.Sprintf("%s/systems/%s/packages/%s/versions/%s",
		c.BaseURL, vk.System, url.PathEscape(vk.Name), url.PathEscape(vk.Version))

	var v Version
	if err := c.do(ctx, http.MethodGet, u, nil, &v); err != nil {
		return nil, fmt.Errorf("version request failed for %s@%s: %w", vk.Name, vk.Version, err)
	}
	return &v, nil
}

// GetVersionBatch looks up many versions at once, following result pages.
// The result is index-aligned with keys; unknown versions are nil.
func (c *Client) GetVersionBatch(ctx context.Context, keys []VersionKey) ([]*Version, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	req := versionBatchRequest{Requests: make([]versionRequest, 0, len(keys))}
	for _, k := range keys {
		req.Requests = append(req.Requests, versionRequest{VersionKey: k})
	}

	// A key may repeat; every position it occupies gets the answer.
	index := make(map[VersionKey][]int, len(keys))
	for i, k := range keys {
		index[k] = append(index[k], i)
	}

	versions := make([]*Version, len(keys))
	for {
		var page versionBatchResponse
		if err := c.do(ctx, http.MethodPost, c.BaseURL+"/versionbatch", req, &page); err != nil {
			return nil, fmt.Errorf("version batch request failed: %w", err)
		}
		for _, r := range page.Responses {
			for _, i := range index[r.Request.VersionKey] {
				versions[i] = r.Version
			}
		}
		if page.NextPageToken == "" {
			return versions, nil
		}
		req.PageToken = page.NextPageToken
	}
}

// Fetch a security advisory hosted by OSV
func (c *Client) GetAdvisory(ctx context.Context, id string) (*Advisory, error) {
	u := fmt.Sprintf("%s/advisories/%s", c.BaseURL, url.PathEscape(id))

	var adv Advisory
	if err := c.do(ctx, http.MethodGet, u, nil, &adv); err != nil {
		return nil, fmt.Errorf("advisory request failed for %s: %w", id, err)
	}
	return &adv, nil
}

func (c *Client) PurlLookup(ctx context.Context, purl string) (*PurlLookupResult, error) {
	u := fmt.Sprintf("%s/purl/%s", c.BaseURL, url.PathEscape(purl))

	var res PurlLookupResult
	if err := c.do(ctx, http.MethodGet, u, nil, &res); err != nil {
		return nil, fmt.Errorf("purl lookup failed for %s: %w", purl, err)
	}
	return &res, nil
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*Project, error) {
	u := fmt.Sprintf("%s/projects/%s", c.BaseURL, url.PathEscape(projectID))

	var p Project
	if err := c.do(ctx, http.MethodGet, u, nil, &p); err != nil {
		return nil, fmt.Errorf("project request failed for %s: %w", projectID, err)
	}
	return &p, nil
}

// Fetch scorecard data for the version's source repository
func (c *Client) GetScorecardData(ctx context.Context, v *Version) ScorecardInfo {
	var projectID string
	for _, proj := range v.RelatedProjects {
		if proj.RelationType == "SOURCE_REPO" {
			projectID = proj.ProjectKey.ID
			break
		}
	}

	var score *float64
	if projectID != "" {
		if p, err := c.GetProject(ctx, projectID); err == nil && p.Scorecard != nil {
			score = &p.Scorecard.OverallScore
		}
	}

	return ScorecardInfo{
		SourceRepo:   projectID,
		OpenSSFScore: score,
	}
}

func (c *Client) do(ctx context.Context, method, u string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
