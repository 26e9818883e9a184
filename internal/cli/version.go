package cli

import (
	"encoding/json"
	"fmt"

	"github.com/aiswide/gpudash/internal/branding"
	"github.com/aiswide/gpudash/internal/config"
	"github.com/aiswide/gpudash/internal/updater"
	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
	versionCheck bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version info as JSON")
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, buildVersion)
			return nil
		}

		if versionJSON {
			info := map[string]string{
				"version": buildVersion,
				"commit":  buildCommit,
				"date":    buildDate,
			}
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling version info: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "%s version %s (commit: %s, built: %s)\n", branding.CLIName(), buildVersion, buildCommit, buildDate)
		if !versionCheck {
			return nil
		}

		u := updater.New(buildVersion, updater.WithLogger(logger))
		if !updater.IsRelease(buildVersion) {
			rel, err := u.LatestRelease(cmd.Context())
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			fmt.Fprintf(out, "Development build; latest release is %s.\n", rel.Version)
			return nil
		}
		cache, err := u.Check(cmd.Context(), config.Dir())
		if err != nil {
			return fmt.Errorf("checking for updates: %w", err)
		}
		if cache.UpdateAvailable {
			updater.PrintUpdateBanner(out, cache.CurrentVersion, cache.LatestVersion, cache.ReleaseURL)
			return nil
		}
		fmt.Fprintln(out, "You are on the latest release.")
		return nil
	},
}
