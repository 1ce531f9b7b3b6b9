// internal/db/gateway.go
package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/gateway"
)

// DefaultProject groups profiles that do not name a project.
const DefaultProject = "local"

// ErrProfileNotFound is returned for an instance that names no profile.
var ErrProfileNotFound = errors.New("profile not found")

// Profile describes one SQL server reachable through a ProfileGateway.
type Profile struct {
	Name     string
	Project  string
	Type     DriverType
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSH      *SSHConfig
}

func (p Profile) project() string {
	if p.Project == "" {
		return DefaultProject
	}
	return p.Project
}

// ProfileGateway maps the gateway's coordinates onto connection profiles:
// a project is a group of profiles, an instance is a profile and a database
// is a database on that profile's server. SQLite profiles always use the
// file they name.
type ProfileGateway struct {
	profiles  []Profile
	logger    *zap.Logger
	newDriver func(DriverType) (Driver, error)

	mu    sync.Mutex
	conns map[string]Driver
}

var _ gateway.Gateway = (*ProfileGateway)(nil)

// NewProfileGateway creates a gateway over profiles. Connections are opened
// on first use and reused until Close.
func NewProfileGateway(profiles []Profile, logger *zap.Logger) *ProfileGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileGateway{
		profiles:  append([]Profile(nil), profiles...),
		logger:    logger.Named("sql"),
		newDriver: NewDriver,
		conns:     make(map[string]Driver),
	}
}

// ListInstances returns the names of the profiles in projectID.
func (g *ProfileGateway) ListInstances(ctx context.Context, projectID string) ([]string, error) {
	if err := (gateway.Coordinates{Project: projectID}).ValidateProject(); err != nil {
		return nil, err
	}
	names := []string{}
	for _, p := range g.profiles {
		if p.project() == projectID {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

// ListDatabases lists the databases on the server of the named profile.
func (g *ProfileGateway) ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error) {
	if err := (gateway.Coordinates{Project: projectID, Instance: instanceID}).ValidateInstance(); err != nil {
		return nil, err
	}
	p, err := g.lookup(projectID, instanceID)
	if err != nil {
		return nil, err
	}
	drv, err := g.conn(ctx, p, p.Database)
	if err != nil {
		return nil, err
	}
	return drv.ListDatabases(ctx)
}

// ExecuteQuery runs query on the database named by c.
func (g *ProfileGateway) ExecuteQuery(ctx context.Context, c gateway.Coordinates, query string) (gateway.QueryResult, error) {
	if err := c.Validate(); err != nil {
		return gateway.QueryResult{}, err
	}
	p, err := g.lookup(c.Project, c.Instance)
	if err != nil {
		return gateway.QueryResult{}, err
	}
	drv, err := g.conn(ctx, p, c.Database)
	if err != nil {
		return gateway.QueryResult{}, err
	}
	return drv.Execute(ctx, query)
}

func (g *ProfileGateway) lookup(project, name string) (Profile, error) {
	for _, p := range g.profiles {
		if p.project() == project && p.Name == name {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("%w: %s/%s", ErrProfileNotFound, project, name)
}

func (g *ProfileGateway) conn(ctx context.Context, p Profile, database string) (Driver, error) {
	if p.Type == SQLite {
		database = p.Database
	}
	key := p.project() + "/" + p.Name + "/" + database

	g.mu.Lock()
	defer g.mu.Unlock()
	if drv, ok := g.conns[key]; ok {
		return drv, nil
	}

	drv, err := g.newDriver(p.Type)
	if err != nil {
		return nil, err
	}
	err = drv.Connect(ctx, ConnectParams{
		Host:      p.Host,
		Port:      p.Port,
		User:      p.User,
		Password:  p.Password,
		Database:  database,
		SSHConfig: p.SSH,
		Logger:    g.logger,
	})
	if err != nil {
		return nil, err
	}
	g.conns[key] = drv
	return drv, nil
}

// Close closes every open connection.
func (g *ProfileGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for key, drv := range g.conns {
		if err := drv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
		delete(g.conns, key)
	}
	return errors.Join(errs...)
}
