// Package gateway defines the Execution Gateway: the collaborator that lists
// instances and databases of the remote data service and runs queries on it.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCoordinates is returned when a call is made without the
// coordinates it needs.
var ErrInvalidCoordinates = errors.New("invalid connection coordinates")

// Gateway performs the actual work against the remote data service.
// Each call returns a single outcome; there is no streaming contract.
type Gateway interface {
	ListInstances(ctx context.Context, projectID string) ([]string, error)
	ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error)
	ExecuteQuery(ctx context.Context, c Coordinates, query string) (QueryResult, error)
}

// Coordinates identify a database on the remote data service.
type Coordinates struct {
	Project  string `toml:"project" json:"projectId"`
	Instance string `toml:"instance" json:"instanceId"`
	Database string `toml:"database" json:"databaseId"`
}

// String returns the resource path of the coordinates, e.g.
// projects/p/instances/i/databases/d, stopping at the first blank part.
func (c Coordinates) String() string {
	var b strings.Builder
	for _, p := range []struct{ kind, id string }{
		{"projects", c.Project},
		{"instances", c.Instance},
		{"databases", c.Database},
	} {
		if strings.TrimSpace(p.id) == "" {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(p.kind + "/" + p.id)
	}
	return b.String()
}

// ValidateProject checks that a project is set.
func (c Coordinates) ValidateProject() error {
	if strings.TrimSpace(c.Project) == "" {
		return fmt.Errorf("%w: project is required", ErrInvalidCoordinates)
	}
	return nil
}

// ValidateInstance checks that a project and an instance are set.
func (c Coordinates) ValidateInstance() error {
	if err := c.ValidateProject(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Instance) == "" {
		return fmt.Errorf("%w: instance is required", ErrInvalidCoordinates)
	}
	return nil
}

// Validate checks that all three coordinates are set.
func (c Coordinates) Validate() error {
	if err := c.ValidateInstance(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("%w: database is required", ErrInvalidCoordinates)
	}
	return nil
}
