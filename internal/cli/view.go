package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/config"
	"github.com/aiswide/gpudash/internal/poll"
	"github.com/aiswide/gpudash/internal/render"
	"github.com/spf13/cobra"
)

const clearScreen = "\033[H\033[2J"

// showView renders a view once, or keeps re-rendering it on the poll
// interval with watch until interrupted. In watch mode, errors other than
// auth failures are printed and polling continues; an auth failure ends it.
func showView(cmd *cobra.Command, a *app, watch bool, draw func(ctx context.Context) error) error {
	if !watch {
		return draw(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	interval := config.PollInterval()
	poll.Every(ctx, interval, func(ctx context.Context) {
		if a.format == render.FormatTable {
			fmt.Fprint(a.out, clearScreen)
			fmt.Fprintf(a.out, "Every %s: refreshed %s\n\n", interval, time.Now().Format(time.TimeOnly))
		}
		err := draw(ctx)
		switch {
		case err == nil:
		case apiclient.IsAuthFailure(err):
			cancel(err)
		case ctx.Err() != nil:
		default:
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		}
	})

	if err := context.Cause(ctx); err != nil && apiclient.IsAuthFailure(err) {
		return err
	}
	return nil
}
