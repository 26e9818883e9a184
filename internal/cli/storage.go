package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aiswide/gpudash/internal/dashboard"
	"github.com/aiswide/gpudash/internal/render"
	"github.com/spf13/cobra"
)

var (
	storageInteractive bool
	storageWithVolume  bool
	storageYes         bool
)

func init() {
	storageBrowseCmd.Flags().BoolVarP(&storageInteractive, "interactive", "i", false, "Navigate with cd/../ls commands read from stdin")
	storageDeleteCmd.Flags().BoolVar(&storageWithVolume, "with-volume", false, "Also delete the bound persistent volume")
	storageDeleteCmd.Flags().BoolVarP(&storageYes, "yes", "y", false, "Delete without asking for confirmation")
	storageCmd.AddCommand(storageListCmd, storageBrowseCmd, storageDeleteCmd)
	rootCmd.AddCommand(storageCmd)
}

var storageCmd = &cobra.Command{
	Use:     "storage",
	Aliases: []string{"pvc"},
	Short:   "List, browse and delete your persistent volume claims",
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your persistent volume claims",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		pvcs, err := a.svc.PVCs(cmd.Context())
		if err != nil {
			return err
		}
		if len(pvcs) == 0 && a.format == render.FormatTable {
			fmt.Fprintln(a.out, "You have no persistent volume claims.")
			return nil
		}
		return a.print(pvcs, render.PVCTable(pvcs))
	},
}

var storageBrowseCmd = &cobra.Command{
	Use:   "browse <pvc-name> [path]",
	Short: "List files inside a persistent volume claim",
	Long: `List the directory at path, relative to the root of the claim. With
--interactive, read navigation commands from stdin:

  cd <dir>   enter a subdirectory
  ..         go to the parent directory (leaves the claim at its root)
  ls         list the current directory again
  q          quit`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		pvc, err := a.svc.FindPVC(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		b := dashboard.NewBrowser(pvc)
		if len(args) == 2 && strings.Trim(args[1], "/") != "" {
			if err := b.Enter(args[1]); err != nil {
				return err
			}
		}

		if !storageInteractive {
			return listDir(cmd.Context(), a, b)
		}
		return browseInteractive(cmd, a, b)
	},
}

func listDir(ctx context.Context, a *app, b *dashboard.Browser) error {
	l, err := b.List(ctx, a.svc)
	if err != nil {
		return err
	}
	if a.format == render.FormatTable {
		fmt.Fprintf(a.out, "%s:%s  (%d items, %s)\n", b.PVC().Name, b.Relative(), l.TotalItems, l.TotalSizeHuman)
	}
	return a.print(l, render.ListingTable(l))
}

func browseInteractive(cmd *cobra.Command, a *app, b *dashboard.Browser) error {
	ctx := cmd.Context()
	p := newPrompter(cmd)
	if err := listDir(ctx, a, b); err != nil {
		return err
	}
	for {
		line, err := p.ask(fmt.Sprintf("%s:%s> ", b.PVC().Name, b.Relative()))
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		verb, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch verb {
		case "":
			continue
		case "q", "quit", "exit":
			return nil
		case "ls":
		case "..", "back":
			if !b.Back() {
				fmt.Fprintln(a.out, "Left", b.PVC().Name+".")
				return nil
			}
		case "cd":
			if arg == ".." {
				if !b.Back() {
					fmt.Fprintln(a.out, "Left", b.PVC().Name+".")
					return nil
				}
				break
			}
			if arg == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), "usage: cd <dir>")
				continue
			}
			if err := b.Enter(arg); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				continue
			}
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "unknown command %q (cd, .., ls, q)\n", verb)
			continue
		}

		if err := listDir(ctx, a, b); err != nil {
			var se *dashboard.StatusError
			if errors.As(err, &se) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				continue
			}
			return err
		}
	}
}

var storageDeleteCmd = &cobra.Command{
	Use:   "delete <pvc-name>",
	Short: "Delete a persistent volume claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		name := args[0]
		if !storageYes {
			q := fmt.Sprintf("Delete PVC %s?", name)
			if storageWithVolume {
				q = fmt.Sprintf("Delete PVC %s and its persistent volume? Data cannot be recovered.", name)
			}
			ok, err := newPrompter(cmd).confirm(q)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.out, "Aborted.")
				return nil
			}
		}
		if err := a.svc.DeletePVC(cmd.Context(), name, storageWithVolume); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted PVC %s.\n", name)
		return nil
	},
}
