// Package spanner implements the Execution Gateway on Cloud Spanner.
package spanner

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"unicode"

	"cloud.google.com/go/spanner"
	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/nhath/ezspanner/internal/gateway"
)

// EmulatorHostEnv is read by the Spanner client libraries.
const EmulatorHostEnv = "SPANNER_EMULATOR_HOST"

// Options configures a Gateway.
type Options struct {
	// EmulatorHost, when set, is exported as SPANNER_EMULATOR_HOST before any
	// client is opened.
	EmulatorHost string
	// CredentialsFile is a service account key file. Empty means application
	// default credentials.
	CredentialsFile string
	Logger          *zap.Logger
}

// Gateway talks to Cloud Spanner. Admin clients and per-database data
// clients are created on first use and kept until Close.
type Gateway struct {
	opts   []option.ClientOption
	logger *zap.Logger

	mu        sync.Mutex
	instances *instance.InstanceAdminClient
	databases *database.DatabaseAdminClient
	clients   map[string]*spanner.Client

	// dial opens a data client; replaced in tests.
	dial func(ctx context.Context, name string) (*spanner.Client, error)
}

var _ gateway.Gateway = (*Gateway)(nil)

// New creates a Gateway. No connection is made until the first call.
func New(o Options) (*Gateway, error) {
	if o.EmulatorHost != "" {
		if err := os.Setenv(EmulatorHostEnv, o.EmulatorHost); err != nil {
			return nil, fmt.Errorf("set %s: %w", EmulatorHostEnv, err)
		}
	}
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	if o.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}

	g := &Gateway{
		opts:    opts,
		logger:  logger.Named("spanner"),
		clients: make(map[string]*spanner.Client),
	}
	g.dial = func(ctx context.Context, name string) (*spanner.Client, error) {
		return spanner.NewClient(ctx, name, g.opts...)
	}
	return g, nil
}

func (g *Gateway) instanceAdmin(ctx context.Context) (*instance.InstanceAdminClient, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.instances == nil {
		c, err := instance.NewInstanceAdminClient(ctx, g.opts...)
		if err != nil {
			return nil, fmt.Errorf("open instance admin client: %w", err)
		}
		g.instances = c
	}
	return g.instances, nil
}

func (g *Gateway) databaseAdmin(ctx context.Context) (*database.DatabaseAdminClient, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.databases == nil {
		c, err := database.NewDatabaseAdminClient(ctx, g.opts...)
		if err != nil {
			return nil, fmt.Errorf("open database admin client: %w", err)
		}
		g.databases = c
	}
	return g.databases, nil
}

// client returns the data client for the database name. The dial happens
// without g.mu held; when two callers race, the first stored client wins.
func (g *Gateway) client(ctx context.Context, name string) (*spanner.Client, error) {
	g.mu.Lock()
	c, ok := g.clients[name]
	g.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := g.dial(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	g.mu.Lock()
	if existing, ok := g.clients[name]; ok {
		g.mu.Unlock()
		c.Close()
		return existing, nil
	}
	g.clients[name] = c
	g.mu.Unlock()

	g.logger.Debug("opened data client", zap.String("database", name))
	return c, nil
}

// ListInstances returns the short instance IDs of the project.
func (g *Gateway) ListInstances(ctx context.Context, projectID string) ([]string, error) {
	if err := (gateway.Coordinates{Project: projectID}).ValidateProject(); err != nil {
		return nil, err
	}
	admin, err := g.instanceAdmin(ctx)
	if err != nil {
		return nil, err
	}

	it := admin.ListInstances(ctx, &instancepb.ListInstancesRequest{
		Parent: "projects/" + projectID,
	})
	var ids []string
	for {
		inst, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, path.Base(inst.GetName()))
	}
	return ids, nil
}

// ListDatabases returns the short database IDs of the instance.
func (g *Gateway) ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error) {
	c := gateway.Coordinates{Project: projectID, Instance: instanceID}
	if err := c.ValidateInstance(); err != nil {
		return nil, err
	}
	admin, err := g.databaseAdmin(ctx)
	if err != nil {
		return nil, err
	}

	it := admin.ListDatabases(ctx, &databasepb.ListDatabasesRequest{
		Parent: c.String(),
	})
	var ids []string
	for {
		db, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, path.Base(db.GetName()))
	}
	return ids, nil
}

// ExecuteQuery runs query on the database. DML statements run in a
// read-write transaction and report the affected row count; everything else
// runs in a single-use read-only transaction.
func (g *Gateway) ExecuteQuery(ctx context.Context, c gateway.Coordinates, query string) (gateway.QueryResult, error) {
	if err := c.Validate(); err != nil {
		return gateway.QueryResult{}, err
	}
	client, err := g.client(ctx, c.String())
	if err != nil {
		return gateway.QueryResult{}, err
	}

	stmt := spanner.Statement{SQL: query}
	if isDML(query) {
		return runUpdate(ctx, client, stmt)
	}
	return runQuery(ctx, client, stmt)
}

func runQuery(ctx context.Context, client *spanner.Client, stmt spanner.Statement) (gateway.QueryResult, error) {
	iter := client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var res gateway.QueryResult
	err := iter.Do(func(row *spanner.Row) error {
		if res.Columns == nil {
			res.Columns = row.ColumnNames()
		}
		values := make([]any, row.Size())
		for i := range values {
			var col spanner.GenericColumnValue
			if err := row.Column(i, &col); err != nil {
				return err
			}
			values[i] = decodeValue(col.Type, col.Value)
		}
		res.Rows = append(res.Rows, values)
		return nil
	})
	if err != nil {
		return gateway.QueryResult{}, err
	}
	if res.Columns == nil && iter.Metadata != nil {
		for _, f := range iter.Metadata.GetRowType().GetFields() {
			res.Columns = append(res.Columns, f.GetName())
		}
	}
	return res, nil
}

func runUpdate(ctx context.Context, client *spanner.Client, stmt spanner.Statement) (gateway.QueryResult, error) {
	var affected int64
	_, err := client.ReadWriteTransaction(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction) error {
		n, err := txn.Update(ctx, stmt)
		affected = n
		return err
	})
	if err != nil {
		return gateway.QueryResult{}, err
	}
	return gateway.QueryResult{
		Columns: []string{gateway.AffectedRowsColumn},
		Rows:    [][]any{{affected}},
	}, nil
}

func isDML(query string) bool {
	switch strings.ToUpper(firstWord(query)) {
	case "INSERT", "UPDATE", "DELETE":
		return true
	}
	return false
}

// firstWord returns the first keyword of query, skipping whitespace and
// leading comments (--, # and /* */).
func firstWord(query string) string {
	s := query
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return ""
			}
			s = s[i+4:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !unicode.IsLetter(r) && r != '_'
			})
			if end < 0 {
				return s
			}
			return s[:end]
		}
	}
}

// Close releases every client opened by the gateway.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for name, c := range g.clients {
		c.Close()
		delete(g.clients, name)
	}
	var firstErr error
	if g.instances != nil {
		firstErr = g.instances.Close()
		g.instances = nil
	}
	if g.databases != nil {
		if err := g.databases.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		g.databases = nil
	}
	return firstErr
}
