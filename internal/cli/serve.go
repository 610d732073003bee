package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hammamikhairi/badbar/internal/config"
	"github.com/hammamikhairi/badbar/internal/display"
	"github.com/hammamikhairi/badbar/internal/logger"
	"github.com/hammamikhairi/badbar/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	NoBanner bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recipe store over HTTP",
		Long: `Serve a memory or badger store to remote badbar clients.

Clients connect with --backend remote --server-url http://<addr>.

Example:
  badbar serve --backend badger --db ./data --addr :8787`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().Duration("shutdown-timeout", 0, "how long to drain requests on shutdown")
	cmd.Flags().BoolVar(&opts.NoBanner, "no-banner", false, "do not print the banner")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	if opts.cfg.Backend == config.BackendRemote {
		return fmt.Errorf("serve needs a local backend (%s or %s)", config.BackendMemory, config.BackendBadger)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := opts.openLocal()
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.log.GetLevel() < logger.LevelVerbose {
		gin.SetMode(gin.ReleaseMode)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := server.New(store, opts.log.Named("http"),
		server.WithRegistry(reg),
		server.WithShutdownTimeout(opts.cfg.Server.ShutdownTimeout),
	)

	if !opts.NoBanner {
		fmt.Fprint(cmd.OutOrStdout(), display.RenderBanner(0))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "serving %s backend on %s\n", opts.cfg.Backend, opts.cfg.Server.Addr)

	if err := srv.Run(ctx, opts.cfg.Server.Addr); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	opts.log.Info("server stopped")
	return nil
}
