package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/PratikDhanave/intake-edge/internal/signal"
	"github.com/PratikDhanave/intake-edge/internal/syncqueue"
)

var defaultEndpoints = map[syncqueue.Kind]string{
	syncqueue.KindTicket:  "/api/tickets",
	syncqueue.KindLead:    "/api/leads",
	syncqueue.KindContact: "/api/contacts",
}

func newEnqueueCommand(opts *RootOptions) *cobra.Command {
	var (
		endpoint string
		method   string
		data     string
		file     string
	)

	cmd := &cobra.Command{
		Use:   "enqueue <ticket|lead|contact>",
		Short: "Queue a CRM submission for delivery",
		Long: `Queue a CRM submission. The payload is given with --data or --file
and is delivered on the next sync. The endpoint defaults to the CRM route
for the kind.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := syncqueue.Kind(args[0])
			if !kind.Valid() {
				return fmt.Errorf("unknown kind %q (valid: ticket, lead, contact)", args[0])
			}

			raw := []byte(data)
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read payload: %w", err)
				}
				raw = b
			}
			if len(raw) == 0 {
				return errors.New("a payload is required (--data or --file)")
			}
			if !json.Valid(raw) {
				return errors.New("payload is not valid JSON")
			}
			if endpoint == "" {
				endpoint = defaultEndpoints[kind]
			}

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.queue(cmd.Context(), false)
			if err != nil {
				return err
			}
			action, err := q.Enqueue(cmd.Context(), syncqueue.PendingActionInput{
				Kind:     kind,
				Payload:  json.RawMessage(raw),
				Endpoint: endpoint,
				Method:   method,
			})
			if err != nil {
				return err
			}

			if a.json {
				return json.NewEncoder(a.out).Encode(action)
			}
			fmt.Fprintf(a.out, "Queued %s %s (%d pending)\n", action.Kind, action.ID, len(q.Pending()))
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "target path or URL")
	cmd.Flags().StringVar(&method, "method", "POST", "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON payload")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read JSON payload from file")
	return cmd
}

func printResult(a *app, r syncqueue.SyncResult, pending int) error {
	if a.json {
		return json.NewEncoder(a.out).Encode(map[string]any{
			"attempted": r.Attempted,
			"succeeded": r.Succeeded,
			"failed":    r.Failed,
			"skipped":   string(r.Skipped),
			"pending":   pending,
		})
	}
	if !r.Ran() {
		fmt.Fprintf(a.out, "Nothing synced (%s), %d pending\n", r.Skipped, pending)
		return nil
	}
	fmt.Fprintf(a.out, "Synced %d, failed %d, %d pending\n", r.Succeeded, r.Failed, pending)
	return nil
}

func newSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pending actions if the server is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.queue(cmd.Context(), a.probeOnce(cmd.Context()))
			if err != nil {
				return err
			}
			r := q.SyncPending(cmd.Context())
			return printResult(a, r, len(q.Pending()))
		},
	}
}

func newRetryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Retry pending actions; fails when offline",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.queue(cmd.Context(), a.probeOnce(cmd.Context()))
			if err != nil {
				return err
			}
			r, err := q.RetrySync(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(a, r, len(q.Pending()))
		},
	}
}

func newClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard every pending action",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.queue(cmd.Context(), false)
			if err != nil {
				return err
			}
			n := len(q.Pending())
			if err := q.ClearPending(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Cleared %d pending action(s)\n", n)
			return nil
		},
	}
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List pending actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.queue(cmd.Context(), false)
			if err != nil {
				return err
			}
			pending := q.Pending()

			if a.json {
				if pending == nil {
					pending = []syncqueue.PendingAction{}
				}
				return json.NewEncoder(a.out).Encode(pending)
			}

			fmt.Fprintf(a.out, "Server:  %s\n", a.cfg.Server.BaseURL)
			fmt.Fprintf(a.out, "Pending: %d\n", len(pending))
			if len(pending) == 0 {
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tREQUEST\tQUEUED")
			for _, p := range pending {
				queued := time.UnixMilli(p.Timestamp).Format(time.RFC3339)
				fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n", p.ID, p.Kind, p.Method, p.Endpoint, queued)
			}
			return tw.Flush()
		},
	}
}

func newWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Probe the server and sync whenever it comes back online",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			interval, err := a.cfg.WatchInterval()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			q, err := a.queue(ctx, false)
			if err != nil {
				return err
			}

			bus := signal.NewBus(a.logger)
			bus.Subscribe(signal.Connectivity, q)

			p := a.prober(bus)
			p.Interval = interval
			fmt.Fprintf(a.out, "Watching %s every %s (%d pending)\n", a.cfg.HealthURL(), interval, len(q.Pending()))
			p.Run(ctx)
			return nil
		},
	}
}
