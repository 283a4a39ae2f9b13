// Package cli implements intakectl, the client-side companion of the edge
// server. It owns the local pending-action queue and preference store.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/PratikDhanave/intake-edge/internal/kvstore"
	"github.com/PratikDhanave/intake-edge/internal/logging"
	"github.com/PratikDhanave/intake-edge/internal/signal"
	"github.com/PratikDhanave/intake-edge/internal/syncqueue"
)

// RootOptions are the persistent flags shared by every command.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	JSON       bool
}

// NewRootCommand builds the intakectl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "intakectl",
		Short: "Offline intake queue and preferences",
		Long: `intakectl queues CRM submissions (tickets, leads, contacts) while the
edge server is unreachable and replays them once it is back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.ConfigPath == "" {
				p, err := DefaultConfigPath()
				if err != nil {
					return err
				}
				opts.ConfigPath = p
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.intake/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print machine-readable output")

	cmd.AddCommand(
		newEnqueueCommand(opts),
		newSyncCommand(opts),
		newRetryCommand(opts),
		newClearCommand(opts),
		newStatusCommand(opts),
		newWatchCommand(opts),
		newPrefsCommand(opts),
		newConfigCommand(opts),
	)
	return cmd
}

// app is the per-invocation environment: config, local store and output.
type app struct {
	cfg    *Config
	kv     *kvstore.SQLite
	logger zerolog.Logger
	out    io.Writer
	errOut io.Writer
	json   bool
}

func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	kv, err := kvstore.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return &app{
		cfg:    cfg,
		kv:     kv,
		logger: logging.New(cmd.ErrOrStderr(), opts.LogLevel, "console"),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		json:   opts.JSON,
	}, nil
}

func (a *app) Close() error {
	return a.kv.Close()
}

// notify prints queue notifications the way a toast would show them.
func (a *app) notify(n syncqueue.Notification) {
	if n.Message == "" {
		fmt.Fprintf(a.errOut, "[%s] %s\n", n.Level, n.Title)
		return
	}
	fmt.Fprintf(a.errOut, "[%s] %s: %s\n", n.Level, n.Title, n.Message)
}

func (a *app) queue(ctx context.Context, online bool) (*syncqueue.Queue, error) {
	opts := []syncqueue.Option{
		syncqueue.WithBaseURL(a.cfg.Server.BaseURL),
		syncqueue.WithNotifier(syncqueue.NotifierFunc(a.notify)),
		syncqueue.WithLogger(a.logger),
		syncqueue.WithOnline(online),
	}
	if a.cfg.Server.APIKey != "" {
		opts = append(opts, syncqueue.WithHeader("X-API-Key", a.cfg.Server.APIKey))
	}
	return syncqueue.New(ctx, a.kv, opts...)
}

func (a *app) prober(bus *signal.Bus) *signal.Prober {
	return &signal.Prober{
		URL:    a.cfg.HealthURL(),
		Client: &http.Client{Timeout: 3 * time.Second},
		Bus:    bus,
	}
}

// probeOnce reports whether the server answers its health check.
func (a *app) probeOnce(ctx context.Context) bool {
	return a.prober(signal.NewBus(a.logger)).Probe(ctx)
}

// Execute runs intakectl with process-level defaults.
func Execute(ctx context.Context) int {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
