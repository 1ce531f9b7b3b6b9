// internal/db/driver.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/gateway"
)

// DriverType represents supported database types
type DriverType string

const (
	Postgres DriverType = "postgres"
	MySQL    DriverType = "mysql"
	SQLite   DriverType = "sqlite"
)

// ConnectParams holds database connection details
type ConnectParams struct {
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	SSHConfig *SSHConfig // Optional SSH tunnel config
	Logger    *zap.Logger
}

func (p ConnectParams) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Driver defines the interface for database operations
type Driver interface {
	Connect(ctx context.Context, params ConnectParams) error
	Close() error
	Execute(ctx context.Context, query string) (gateway.QueryResult, error)
	ListDatabases(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Type() DriverType
}

// NewDriver creates a new driver instance by type
func NewDriver(driverType DriverType) (Driver, error) {
	switch driverType {
	case Postgres:
		return &PostgresDriver{}, nil
	case MySQL:
		return &MySQLDriver{}, nil
	case SQLite:
		return &SQLiteDriver{}, nil
	default:
		return nil, fmt.Errorf("unknown driver type: %s", driverType)
	}
}

// isSelect reports whether query returns rows.
func isSelect(query string) bool {
	trimmed := strings.TrimSpace(strings.ToUpper(query))
	for _, prefix := range []string{"SELECT", "WITH", "EXPLAIN", "DESCRIBE", "SHOW", "PRAGMA", "VALUES"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// executeQuery executes a query and returns results
func executeQuery(ctx context.Context, db *sql.DB, query string) (gateway.QueryResult, error) {
	if db == nil {
		return gateway.QueryResult{}, WrapConnectionError(fmt.Errorf("not connected"))
	}
	if isSelect(query) {
		return executeSelect(ctx, db, query)
	}
	return executeDML(ctx, db, query)
}

// executeSelect executes a SELECT query
func executeSelect(ctx context.Context, db *sql.DB, query string) (gateway.QueryResult, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return gateway.QueryResult{}, WrapQueryError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return gateway.QueryResult{}, WrapQueryError(err)
	}
	res := gateway.QueryResult{Columns: columns}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return gateway.QueryResult{}, WrapQueryError(err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		res.Rows = append(res.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return gateway.QueryResult{}, WrapQueryError(err)
	}
	return res, nil
}

// executeDML executes INSERT/UPDATE/DELETE queries
func executeDML(ctx context.Context, db *sql.DB, query string) (gateway.QueryResult, error) {
	result, err := db.ExecContext(ctx, query)
	if err != nil {
		return gateway.QueryResult{}, WrapQueryError(err)
	}
	affected, _ := result.RowsAffected()
	return gateway.QueryResult{
		Columns: []string{gateway.AffectedRowsColumn},
		Rows:    [][]any{{affected}},
	}, nil
}

// normalizeValue turns driver byte slices into text and times into UTC.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC()
	default:
		return v
	}
}

// scanStrings reads the first column of every row as a string.
func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, WrapQueryError(err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapQueryError(err)
	}
	return out, nil
}
