// Package jira implements the tree-query source and the property mirror
// on top of the Jira REST API. Children are fetched with a paginated JQL
// search; parents through a single-issue GET; metric mirroring through
// issue properties.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rollup-metrics/rollup/internal/hierarchy"
	"github.com/rollup-metrics/rollup/internal/types"
)

// DefaultPageSize is the maxResults requested per search page. Jira caps
// the effective page size server-side; the walker keeps paging until the
// reported total is reached either way.
const DefaultPageSize = 50

// Client provides HTTP access to a Jira instance. It satisfies
// hierarchy.TreeSource and recompute.PropertyMirror.
type Client struct {
	URL        string
	Username   string
	APIToken   string
	HTTPClient *http.Client
	PageSize   int

	// newBackOff builds the retry policy for one request. Overridden in
	// tests to avoid real backoff delays.
	newBackOff func() backoff.BackOff
}

// NewClient creates a new Jira client.
func NewClient(rawURL, username, apiToken string) *Client {
	return &Client{
		URL:      strings.TrimSuffix(rawURL, "/"),
		Username: username,
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		PageSize:   DefaultPageSize,
		newBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 15 * time.Second
	return bo
}

// searchResult is a Jira JQL search response page.
type searchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []issue `json:"issues"`
}

// issue keeps fields dynamic: the points field name is configuration, not
// something we can model statically.
type issue struct {
	Key    string                 `json:"key"`
	Fields map[string]interface{} `json:"fields"`
}

// FetchChildren returns one page of the direct children of parentKey,
// requesting only the status and the configured points field.
func (c *Client) FetchChildren(ctx context.Context, parentKey, pointsField string, startAt int) (*hierarchy.Page, error) {
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	params := url.Values{
		"jql":        {fmt.Sprintf("parent = %q ORDER BY key ASC", parentKey)},
		"fields":     {"status," + pointsField},
		"startAt":    {fmt.Sprintf("%d", startAt)},
		"maxResults": {fmt.Sprintf("%d", pageSize)},
	}
	apiURL := fmt.Sprintf("%s/rest/api/3/search?%s", c.URL, params.Encode())

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch children of %s: %w", parentKey, err)
	}

	var result searchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	page := &hierarchy.Page{Total: result.Total}
	for i := range result.Issues {
		page.Records = append(page.Records, toRecord(&result.Issues[i], pointsField))
	}
	return page, nil
}

// FetchParentKey returns the parent key of an issue, or "" for a root.
func (c *Client) FetchParentKey(ctx context.Context, key string) (string, error) {
	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=parent", c.URL, url.PathEscape(key))

	body, err := c.doRequest(ctx, "GET", apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch parent of %s: %w", key, err)
	}

	var result struct {
		Fields struct {
			Parent *struct {
				Key string `json:"key"`
			} `json:"parent"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse issue response: %w", err)
	}
	if result.Fields.Parent == nil {
		return "", nil
	}
	return result.Fields.Parent.Key, nil
}

// WriteProperty stores a JSON value as an issue property, the mirror read
// by JQL tooling and the badge UI.
func (c *Client) WriteProperty(ctx context.Context, key, property string, value []byte) error {
	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s/properties/%s",
		c.URL, url.PathEscape(key), url.PathEscape(property))

	if _, err := c.doRequest(ctx, "PUT", apiURL, value); err != nil {
		return fmt.Errorf("write property %s on %s: %w", property, key, err)
	}
	return nil
}

// toRecord maps a Jira issue to a core record. Missing or unexpected
// field shapes degrade to zero values; the core treats them as 0 points
// and not-done.
func toRecord(is *issue, pointsField string) types.Record {
	rec := types.Record{
		Key:            is.Key,
		StatusCategory: types.CategoryOther,
		Fields:         map[string]interface{}{},
	}

	if status, ok := is.Fields["status"].(map[string]interface{}); ok {
		if name, ok := status["name"].(string); ok {
			rec.StatusName = name
		}
		if cat, ok := status["statusCategory"].(map[string]interface{}); ok {
			if catKey, ok := cat["key"].(string); ok && catKey == "done" {
				rec.StatusCategory = types.CategoryDone
			}
		}
	}

	if v, ok := is.Fields[pointsField]; ok && v != nil {
		rec.Fields[pointsField] = v
	}
	return rec
}

// doRequest executes an authenticated HTTP request, retrying transient
// failures (network errors, 429, 5xx) with exponential backoff. Other
// non-2xx statuses are permanent.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.APIToken == "" {
		return nil, fmt.Errorf("jira API token not configured")
	}

	newBackOff := c.newBackOff
	if newBackOff == nil {
		newBackOff = defaultBackOff
	}

	var respBody []byte
	op := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		c.setAuth(req)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "rollup/1.0")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err // retryable
		}
		defer func() { _ = resp.Body.Close() }()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return fmt.Errorf("jira API returned %d: %s", resp.StatusCode, string(b))
		case resp.StatusCode == http.StatusNoContent:
			respBody = nil
			return nil
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("jira API returned %d: %s", resp.StatusCode, string(b)))
		}
		respBody = b
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return respBody, nil
}

// setAuth sets the appropriate authentication header on the request.
func (c *Client) setAuth(req *http.Request) {
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
		req.Header.Set("Authorization", "Basic "+auth)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}
}
