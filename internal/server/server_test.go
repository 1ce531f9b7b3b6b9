package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/gateway/remote"
	"github.com/nhath/ezspanner/internal/server"
)

type stubGateway struct {
	err       error
	lastQuery string
	lastDB    gateway.Coordinates
}

func (s *stubGateway) ListInstances(ctx context.Context, projectID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []string{projectID + "-inst"}, nil
}

func (s *stubGateway) ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if instanceID == "empty" {
		return nil, nil
	}
	return []string{instanceID + "-db"}, nil
}

func (s *stubGateway) ExecuteQuery(ctx context.Context, c gateway.Coordinates, query string) (gateway.QueryResult, error) {
	s.lastQuery, s.lastDB = query, c
	if s.err != nil {
		return gateway.QueryResult{}, s.err
	}
	return gateway.QueryResult{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{1, "ann"}, {2, "bob"}},
	}, nil
}

func newTestServer(t *testing.T, gw gateway.Gateway) *httptest.Server {
	t.Helper()
	srv := server.New(server.Config{Gateway: gw, Logger: zaptest.NewLogger(t)})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(ts.URL+server.Route, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, strings.TrimSpace(string(data))
}

func TestHandler_Dispatch(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"instances", `{"type":"instances","projectId":"p"}`, http.StatusOK, `["p-inst"]`},
		{"databases", `{"type":"databases","projectId":"p","instanceId":"i"}`, http.StatusOK, `["i-db"]`},
		{"empty databases", `{"type":"databases","projectId":"p","instanceId":"empty"}`, http.StatusOK, `[]`},
		{
			"query",
			`{"type":"query","projectId":"p","instanceId":"i","databaseId":"d","query":"SELECT 1"}`,
			http.StatusOK,
			`[{"id":1,"name":"ann"},{"id":2,"name":"bob"}]`,
		},
		{"unknown type", `{"type":"tables"}`, http.StatusBadRequest, `{"error":"Invalid request type"}`},
		{"bad body", `not json`, http.StatusBadRequest, `{"error":"Invalid request body"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := post(t, ts, tt.body)
			assert.Equal(t, tt.status, status)
			assert.JSONEq(t, tt.want, body)
		})
	}
}

func TestHandler_GatewayFailures(t *testing.T) {
	ts := newTestServer(t, &stubGateway{err: errors.New("backend down")})

	tests := []struct {
		body string
		want string
	}{
		{`{"type":"instances","projectId":"p"}`, server.ErrMsgFetchInstances},
		{`{"type":"databases","projectId":"p","instanceId":"i"}`, server.ErrMsgFetchDatabases},
		{`{"type":"query","projectId":"p","instanceId":"i","databaseId":"d","query":"x"}`, server.ErrMsgExecuteQuery},
	}

	for _, tt := range tests {
		status, body := post(t, ts, tt.body)
		assert.Equal(t, http.StatusInternalServerError, status)

		var e server.ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &e))
		assert.Equal(t, tt.want, e.Error)
		assert.NotContains(t, body, "backend down")
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &stubGateway{})
	resp, err := http.Get(ts.URL + server.Route)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRemoteClient_RoundTrip(t *testing.T) {
	stub := &stubGateway{}
	ts := newTestServer(t, stub)

	client, err := remote.New(ts.URL+"/", nil)
	require.NoError(t, err)
	ctx := context.Background()

	instances, err := client.ListInstances(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"proj-inst"}, instances)

	dbs, err := client.ListDatabases(ctx, "proj", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"main-db"}, dbs)

	coords := gateway.Coordinates{Project: "proj", Instance: "main", Database: "app"}
	res, err := client.ExecuteQuery(ctx, coords, "SELECT id, name FROM users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, 2, res.Len())
	assert.Equal(t, "ann", res.Rows[0][1])
	assert.Equal(t, "SELECT id, name FROM users", stub.lastQuery)
	assert.Equal(t, coords, stub.lastDB)
}

func TestRemoteClient_StatusError(t *testing.T) {
	ts := newTestServer(t, &stubGateway{err: errors.New("nope")})
	client, err := remote.New(ts.URL, nil)
	require.NoError(t, err)

	_, err = client.ExecuteQuery(context.Background(), gateway.Coordinates{}, "SELECT 1")
	var se *remote.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, server.ErrMsgExecuteQuery, se.Message)
}

func TestRemoteClient_RequiresEndpoint(t *testing.T) {
	_, err := remote.New("  ", nil)
	assert.ErrorIs(t, err, remote.ErrEndpointRequired)
}
