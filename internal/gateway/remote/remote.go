// Package remote implements the Execution Gateway as a client of an
// ezspanner HTTP server.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/server"
)

// ErrEndpointRequired is returned by New without a base URL.
var ErrEndpointRequired = errors.New("remote endpoint is required")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote returned %d", e.Code)
	}
	return fmt.Sprintf("remote returned %d: %s", e.Code, e.Message)
}

// Client calls POST /api/spanner on a server.
type Client struct {
	url  string
	http *http.Client
}

var _ gateway.Gateway = (*Client)(nil)

// New creates a client for the server at endpoint, e.g. http://localhost:8080.
// A nil httpClient selects one with a 60 second timeout.
func New(endpoint string, httpClient *http.Client) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{url: endpoint + server.Route, http: httpClient}, nil
}

func (c *Client) ListInstances(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	err := c.do(ctx, server.Request{Type: server.TypeInstances, ProjectID: projectID}, &ids)
	return ids, err
}

func (c *Client) ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error) {
	var ids []string
	err := c.do(ctx, server.Request{
		Type:       server.TypeDatabases,
		ProjectID:  projectID,
		InstanceID: instanceID,
	}, &ids)
	return ids, err
}

func (c *Client) ExecuteQuery(ctx context.Context, coords gateway.Coordinates, query string) (gateway.QueryResult, error) {
	var res gateway.QueryResult
	err := c.do(ctx, server.Request{
		Type:       server.TypeQuery,
		ProjectID:  coords.Project,
		InstanceID: coords.Instance,
		DatabaseID: coords.Database,
		Query:      query,
	}, &res)
	return res, err
}

func (c *Client) do(ctx context.Context, body server.Request, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e server.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
