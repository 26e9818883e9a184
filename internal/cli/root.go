package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/aiswide/gpudash/internal/apiclient"
	"github.com/aiswide/gpudash/internal/branding"
	"github.com/aiswide/gpudash/internal/config"
	"github.com/aiswide/gpudash/internal/logging"
	"github.com/aiswide/gpudash/internal/updater"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	buildVersion = "dev"
	buildCommit  string
	buildDate    string
)

var (
	flagAPIURL  string
	flagOutput  string
	flagVerbose bool

	logger = zerolog.Nop()

	// bannerWait blocks until a background release check started by the
	// banner has finished.
	bannerWait = func() {}
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` shows GPU usage across the cluster, your running servers,
and your persistent volumes, using the same backend as the web dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		if f := cmd.Flags().Lookup("api-url"); f != nil {
			if err := viper.BindPFlag(config.KeyAPIURL, f); err != nil {
				return fmt.Errorf("binding --api-url: %w", err)
			}
		}
		if f := cmd.Flags().Lookup("output"); f != nil {
			if err := viper.BindPFlag(config.KeyOutput, f); err != nil {
				return fmt.Errorf("binding --output: %w", err)
			}
		}
		logger = logging.Setup(cmd.ErrOrStderr(), flagVerbose)

		// Skip banners for commands that manage their own output.
		if skipBanner(cmd) || !updater.IsRelease(buildVersion) {
			return nil
		}
		u := updater.New(buildVersion, updater.WithLogger(logger))
		bannerWait = u.CheckAndPrintBanner(cmd.ErrOrStderr(), config.Dir(), 2*time.Second)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAPIURL, "api-url", "", "Backend base URL (overrides "+branding.EnvVar("API_URL")+" and config)")
	pf.StringVarP(&flagOutput, "output", "o", config.DefaultOutput, "Output format: table, json or yaml")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Log requests and token refreshes to stderr")
}

func skipBanner(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "config", "api", "watch":
			return true
		}
	}
	return false
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	bannerWait()
	if err != nil && !apiclient.IsAuthFailure(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
