package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type loggedGateway struct {
	next   Gateway
	logger *zap.Logger
}

// Logged wraps gw so that every call is logged with its duration and outcome.
// Failures are returned as *GatewayError.
func Logged(gw Gateway, logger *zap.Logger) Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggedGateway{next: gw, logger: logger.Named("gateway")}
}

func (g *loggedGateway) ListInstances(ctx context.Context, projectID string) ([]string, error) {
	start := time.Now()
	out, err := g.next.ListInstances(ctx, projectID)
	g.log(OpListInstances, start, err, zap.String("project", projectID), zap.Int("count", len(out)))
	return out, Wrap(OpListInstances, err)
}

func (g *loggedGateway) ListDatabases(ctx context.Context, projectID, instanceID string) ([]string, error) {
	start := time.Now()
	out, err := g.next.ListDatabases(ctx, projectID, instanceID)
	g.log(OpListDatabases, start, err,
		zap.String("project", projectID),
		zap.String("instance", instanceID),
		zap.Int("count", len(out)))
	return out, Wrap(OpListDatabases, err)
}

func (g *loggedGateway) ExecuteQuery(ctx context.Context, c Coordinates, query string) (QueryResult, error) {
	start := time.Now()
	res, err := g.next.ExecuteQuery(ctx, c, query)
	g.log(OpExecuteQuery, start, err,
		zap.Stringer("database", c),
		zap.Int("query_len", len(query)),
		zap.Int("rows", res.Len()))
	return res, Wrap(OpExecuteQuery, err)
}

func (g *loggedGateway) log(op Op, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", string(op)), zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		g.logger.Warn("gateway call failed", append(fields, zap.Error(err))...)
		return
	}
	g.logger.Debug("gateway call", fields...)
}

// Close releases the wrapped gateway if it holds resources.
func (g *loggedGateway) Close() error {
	if c, ok := g.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
