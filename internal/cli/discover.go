package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhath/ezspanner/internal/gateway"
)

// fanOut bounds concurrent ListDatabases calls when listing every instance.
const fanOut = 4

// NewInstancesCommand creates the instances command.
func NewInstancesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "instances",
		Short: "List the instances of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := mustEnv(cmd)
			b, err := e.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			return runInstances(cmd.Context(), b, e.cfg.Connection, cmd.OutOrStdout())
		},
	}
}

// NewDatabasesCommand creates the databases command.
func NewDatabasesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases of one instance, or of every instance in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := mustEnv(cmd)
			b, err := e.openBackend()
			if err != nil {
				return err
			}
			defer b.Close()
			return runDatabases(cmd.Context(), b, e.cfg.Connection, cmd.OutOrStdout(), e.logger)
		},
	}
}

func runInstances(ctx context.Context, gw gateway.Gateway, c gateway.Coordinates, out io.Writer) error {
	if err := c.ValidateProject(); err != nil {
		return err
	}
	ids, err := gw.ListInstances(ctx, c.Project)
	if err != nil {
		return err
	}
	for _, id := range ids {
		_, _ = fmt.Fprintln(out, id)
	}
	return nil
}

func runDatabases(ctx context.Context, gw gateway.Gateway, c gateway.Coordinates, out io.Writer, logger *zap.Logger) error {
	if err := c.ValidateProject(); err != nil {
		return err
	}

	if c.Instance != "" {
		ids, err := gw.ListDatabases(ctx, c.Project, c.Instance)
		if err != nil {
			return err
		}
		for _, id := range ids {
			_, _ = fmt.Fprintln(out, id)
		}
		return nil
	}

	instances, err := gw.ListInstances(ctx, c.Project)
	if err != nil {
		return err
	}

	var (
		mu    sync.Mutex
		lines []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for _, inst := range instances {
		g.Go(func() error {
			ids, err := gw.ListDatabases(gctx, c.Project, inst)
			if err != nil {
				return fmt.Errorf("instance %s: %w", inst, err)
			}
			logger.Debug("databases listed", zap.String("instance", inst), zap.Int("count", len(ids)))
			mu.Lock()
			for _, id := range ids {
				lines = append(lines, inst+"/"+id)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Strings(lines)
	for _, l := range lines {
		_, _ = fmt.Fprintln(out, l)
	}
	return nil
}
