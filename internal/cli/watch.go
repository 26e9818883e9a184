package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/config"
	"github.com/aiswide/gpudash/internal/metrics"
	"github.com/aiswide/gpudash/internal/poll"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchMetricsAddr string

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", ":9105", "Address to serve /metrics and /healthz on")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Export cluster GPU and server state as Prometheus metrics",
	Long: `Poll the GPU resource and server list endpoints on the poll interval and
serve the results, together with API request and token refresh counters, as
Prometheus metrics. Runs until interrupted or the session ends.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		collector := metrics.New()
		a, err := newApp(cmd, apiclient.WithObserver(collector))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)
		ctx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)

		task := poll.NewRepeating(func(ctx context.Context) {
			if err := pollMetrics(ctx, a, collector); err != nil {
				if apiclient.IsAuthFailure(err) {
					cancel(err)
					return
				}
				logger.Warn().Err(err).Msg("poll failed")
			}
		}, config.PollInterval())

		g.Go(func() error {
			task.Start(ctx)
			<-ctx.Done()
			task.Stop(false)
			return nil
		})
		g.Go(func() error {
			return collector.Serve(ctx, watchMetricsAddr, logger)
		})

		if err := g.Wait(); err != nil {
			return err
		}
		if err := context.Cause(ctx); apiclient.IsAuthFailure(err) {
			return err
		}
		return nil
	},
}

// pollMetrics fetches both views concurrently and updates the collector.
func pollMetrics(ctx context.Context, a *app, c *metrics.Collector) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.svc.GPUResources(ctx)
		if err != nil {
			return err
		}
		c.UpdateGPU(res)
		return nil
	})
	g.Go(func() error {
		rows, err := a.svc.Servers(ctx)
		if err != nil {
			return err
		}
		c.UpdateServers(rows)
		return nil
	})
	return g.Wait()
}
