package cli

import (
	"context"
	"fmt"

	"github.com/aiswide/gpudash/internal/render"
	"github.com/spf13/cobra"
)

var (
	serversWatch bool
	serversYes   bool
)

func init() {
	serversListCmd.Flags().BoolVarP(&serversWatch, "watch", "w", false, "Refresh on the poll interval until interrupted")
	serversDeleteCmd.Flags().BoolVarP(&serversYes, "yes", "y", false, "Delete without asking for confirmation")
	serversCmd.AddCommand(serversListCmd, serversMineCmd, serversDeleteCmd)
	rootCmd.AddCommand(serversCmd)
}

var serversCmd = &cobra.Command{
	Use:     "servers",
	Aliases: []string{"server"},
	Short:   "List and manage GPU servers",
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List running servers of all users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return showView(cmd, a, serversWatch, func(ctx context.Context) error {
			rows, err := a.svc.Servers(ctx)
			if err != nil {
				return err
			}
			return a.print(rows, render.ServerTable(rows))
		})
	},
}

var serversMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List your servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		servers, err := a.svc.MyServers(cmd.Context())
		if err != nil {
			return err
		}
		if len(servers) == 0 && a.format == render.FormatTable {
			fmt.Fprintln(a.out, "You have no servers.")
			return nil
		}
		return a.print(servers, render.MyServerTable(servers))
	},
}

var serversDeleteCmd = &cobra.Command{
	Use:   "delete <pod-name>",
	Short: "Delete one of your servers",
	Long:  `Delete one of your servers by pod name and release its GPUs.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		name := args[0]
		if !serversYes {
			ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Delete server %s?", name))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "Aborted.")
				return nil
			}
		}
		if err := a.svc.DeleteServer(cmd.Context(), name); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted server %s.\n", name)
		return nil
	},
}
