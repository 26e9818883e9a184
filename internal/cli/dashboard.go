package cli

import (
	"context"
	"fmt"

	"github.com/aiswide/gpudash/internal/render"
	"github.com/spf13/cobra"
)

var (
	dashboardWatch   bool
	dashboardSummary bool
)

func init() {
	dashboardCmd.Flags().BoolVarP(&dashboardWatch, "watch", "w", false, "Refresh on the poll interval until interrupted")
	dashboardCmd.Flags().BoolVar(&dashboardSummary, "summary", false, "Show slot counts by status only")
	rootCmd.AddCommand(dashboardCmd)
}

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"gpu"},
	Short:   "Show GPU usage across the cluster",
	Long: `Show every GPU slot (whole GPU or MIG instance) on every node, with the
flavor, the user holding it and its status.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return showView(cmd, a, dashboardWatch, func(ctx context.Context) error {
			res, err := a.svc.GPUResources(ctx)
			if err != nil {
				return err
			}
			if dashboardSummary {
				return a.print(res.SlotCounts(), render.SummaryTable(res))
			}
			if len(res.NodeList) == 0 && a.format == render.FormatTable {
				fmt.Fprintln(a.out, "No GPU nodes reported.")
				return nil
			}
			return a.print(res, render.GPUTable(res))
		})
	},
}
