package spanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/spanner"
	"cloud.google.com/go/spanner/apiv1/spannerpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nhath/ezspanner/internal/gateway"
)

func typ(code spannerpb.TypeCode) *spannerpb.Type {
	return &spannerpb.Type{Code: code}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name     string
		typ      *spannerpb.Type
		value    *structpb.Value
		expected any
	}{
		{"null", typ(spannerpb.TypeCode_STRING), structpb.NewNullValue(), nil},
		{"int64", typ(spannerpb.TypeCode_INT64), structpb.NewStringValue("42"), int64(42)},
		{"float64", typ(spannerpb.TypeCode_FLOAT64), structpb.NewNumberValue(1.5), 1.5},
		{"float nan", typ(spannerpb.TypeCode_FLOAT64), structpb.NewStringValue("NaN"), "NaN"},
		{"bool", typ(spannerpb.TypeCode_BOOL), structpb.NewBoolValue(true), true},
		{"string", typ(spannerpb.TypeCode_STRING), structpb.NewStringValue("hi"), "hi"},
		{"timestamp", typ(spannerpb.TypeCode_TIMESTAMP), structpb.NewStringValue("2024-01-01T00:00:00Z"), "2024-01-01T00:00:00Z"},
		{
			"array of int64",
			&spannerpb.Type{Code: spannerpb.TypeCode_ARRAY, ArrayElementType: typ(spannerpb.TypeCode_INT64)},
			structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
				structpb.NewStringValue("1"), structpb.NewNullValue(),
			}}),
			[]any{int64(1), nil},
		},
		{
			"struct",
			&spannerpb.Type{Code: spannerpb.TypeCode_STRUCT, StructType: &spannerpb.StructType{
				Fields: []*spannerpb.StructType_Field{
					{Name: "id", Type: typ(spannerpb.TypeCode_INT64)},
					{Name: "name", Type: typ(spannerpb.TypeCode_STRING)},
				},
			}},
			structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
				structpb.NewStringValue("7"), structpb.NewStringValue("ann"),
			}}),
			map[string]any{"id": int64(7), "name": "ann"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decodeValue(tt.typ, tt.value))
		})
	}
}

func TestIsDML(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"insert into t values (1)", true},
		{"  UPDATE t SET a = 1", true},
		{"DELETE FROM t WHERE true", true},
		{"-- cleanup\nDELETE FROM t WHERE true", true},
		{"# note\n  insert into t values (1)", true},
		{"/* batch */ UPDATE t SET a = 1", true},
		{"/* a */ -- b\n/* c */INSERT INTO t (a) VALUES (1)", true},
		{"SELECT * FROM t", false},
		{"-- DELETE\nSELECT 1", false},
		{"(SELECT 1)", false},
		{"-- only a comment", false},
		{"/* unterminated", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isDML(tt.query), "%q", tt.query)
	}
}

func TestClient_DialDoesNotBlockOtherCalls(t *testing.T) {
	gw, err := New(Options{})
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	gw.dial = func(ctx context.Context, name string) (*spanner.Client, error) {
		close(entered)
		<-release
		return nil, errors.New("dial refused")
	}
	// A cached entry; nil is enough since it is only returned, never used.
	gw.clients["projects/p/instances/i/databases/cached"] = nil

	errc := make(chan error, 1)
	go func() {
		_, err := gw.client(context.Background(), "projects/p/instances/i/databases/slow")
		errc <- err
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_, _ = gw.client(context.Background(), "projects/p/instances/i/databases/cached")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cached lookup blocked behind a dial")
	}

	close(release)
	err = <-errc
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial refused")

	gw.mu.Lock()
	_, stored := gw.clients["projects/p/instances/i/databases/slow"]
	delete(gw.clients, "projects/p/instances/i/databases/cached")
	gw.mu.Unlock()
	assert.False(t, stored)
	require.NoError(t, gw.Close())
}

func TestGateway_ValidatesCoordinates(t *testing.T) {
	gw, err := New(Options{})
	require.NoError(t, err)
	defer gw.Close()

	_, err = gw.ListInstances(context.Background(), "")
	assert.ErrorIs(t, err, gateway.ErrInvalidCoordinates)

	_, err = gw.ListDatabases(context.Background(), "p", "")
	assert.ErrorIs(t, err, gateway.ErrInvalidCoordinates)

	_, err = gw.ExecuteQuery(context.Background(), gateway.Coordinates{Project: "p", Instance: "i"}, "SELECT 1")
	assert.ErrorIs(t, err, gateway.ErrInvalidCoordinates)
}
