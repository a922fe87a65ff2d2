package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowgraph/pkg/metrics"
	"github.com/matzehuels/flowgraph/pkg/observability"
	"github.com/matzehuels/flowgraph/pkg/server"
	"github.com/matzehuels/flowgraph/pkg/store"
)

const defaultAddr = ":8080"

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string
	storeDir string
	mongoURI string
	mongoDB  string
	timeout  time.Duration
	cache    cacheOpts
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the refinement pipeline over HTTP",
		Long: `Serve the refinement pipeline over HTTP.

Models are kept in a directory (--store) or in MongoDB (--mongo). Results are
cached on disk or in Redis (--redis). Prometheus metrics are exposed on
/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVar(&opts.storeDir, "store", "", "model store directory (default: ~/.local/share/flowgraph/models)")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo", os.Getenv("FLOWGRAPH_MONGO_URI"), "keep models in MongoDB at this URI")
	cmd.Flags().StringVar(&opts.mongoDB, "mongo-db", appName, "MongoDB database name")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "per-request timeout")
	opts.cache.register(cmd)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	st, err := openStore(ctx, opts)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(context.Background())

	runner, err := c.newRunner(ctx, opts.cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	reg := metrics.DefaultRegistry()
	observability.SetTransformHooks(reg)
	observability.SetCacheHooks(reg)
	observability.SetHTTPHooks(reg)
	defer observability.Reset()

	srv := server.New(server.Options{
		Runner:  runner,
		Store:   st,
		Logger:  c.Logger,
		Metrics: reg,
		Timeout: opts.timeout,
	})
	printInfo("Listening on %s", StyleHighlight.Render(opts.addr))
	return srv.ListenAndServe(ctx, opts.addr)
}

func openStore(ctx context.Context, opts serveOpts) (store.Store, error) {
	if opts.mongoURI != "" {
		ms, err := store.DialMongo(ctx, opts.mongoURI, opts.mongoDB)
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	dir := opts.storeDir
	if dir == "" {
		var err error
		if dir, err = dataDir(); err != nil {
			return nil, err
		}
	}
	return store.NewFileStore(dir)
}
