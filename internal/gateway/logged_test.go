package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubGateway struct {
	err    error
	closed bool
}

func (s *stubGateway) ListInstances(ctx context.Context, projectID string) ([]string, error) {
	return []string{"a"}, s.err
}

func (s *stubGateway) ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error) {
	return []string{"d"}, s.err
}

func (s *stubGateway) ExecuteQuery(ctx context.Context, c Coordinates, query string) (QueryResult, error) {
	return QueryResult{Columns: []string{"x"}, Rows: [][]any{{1}}}, s.err
}

func (s *stubGateway) Close() error {
	s.closed = true
	return nil
}

func TestLogged_Success(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gw := Logged(&stubGateway{}, zap.New(core))

	res, err := gw.ExecuteQuery(context.Background(), Coordinates{Project: "p", Instance: "i", Database: "d"}, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())

	entries := logs.FilterMessage("gateway call").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "executeQuery", fields["op"])
	assert.Equal(t, "projects/p/instances/i/databases/d", fields["database"])
	assert.EqualValues(t, 1, fields["rows"])
}

func TestLogged_FailureWrapped(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gw := Logged(&stubGateway{err: errors.New("denied")}, zap.New(core))

	_, err := gw.ListDatabases(context.Background(), "p", "i")
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, OpListDatabases, gerr.Op)
	assert.Equal(t, 1, logs.FilterMessage("gateway call failed").Len())
}

func TestLogged_Close(t *testing.T) {
	stub := &stubGateway{}
	gw := Logged(stub, nil)
	closer, ok := gw.(interface{ Close() error })
	require.True(t, ok)
	require.NoError(t, closer.Close())
	assert.True(t, stub.closed)
}
