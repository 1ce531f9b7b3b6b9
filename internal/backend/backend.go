// Package backend opens the Execution Gateway selected in the config.
package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nhath/ezspanner/internal/config"
	"github.com/nhath/ezspanner/internal/db"
	"github.com/nhath/ezspanner/internal/gateway"
	"github.com/nhath/ezspanner/internal/gateway/remote"
	"github.com/nhath/ezspanner/internal/gateway/spanner"
)

// Backend is an open gateway and the resources behind it.
type Backend struct {
	gateway.Gateway
	Name string
}

// Open builds the gateway for cfg.Gateway.Backend. Every call through the
// returned gateway is logged.
func Open(cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		gw  gateway.Gateway
		err error
	)
	name := cfg.Gateway.Backend
	switch name {
	case config.BackendSpanner, "":
		name = config.BackendSpanner
		gw, err = spanner.New(spanner.Options{
			EmulatorHost:    cfg.Gateway.EmulatorHost,
			CredentialsFile: cfg.Gateway.CredentialsFile,
			Logger:          logger,
		})
	case config.BackendSQL:
		gw = db.NewProfileGateway(cfg.DBProfiles(), logger)
	case config.BackendRemote:
		gw, err = remote.New(cfg.Gateway.Endpoint, nil)
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s, %s or %s)",
			name, config.BackendSpanner, config.BackendSQL, config.BackendRemote)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", name, err)
	}

	logger.Debug("backend opened", zap.String("backend", name))
	return &Backend{Gateway: gateway.Logged(gw, logger), Name: name}, nil
}

// Close releases connections held by the gateway.
func (b *Backend) Close() error {
	if c, ok := b.Gateway.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
