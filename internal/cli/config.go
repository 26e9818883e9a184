package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/aiswide/gpudash/internal/config"
	"github.com/aiswide/gpudash/internal/render"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configSetCmd, configGetCmd, configListCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var knownKeys = []string{config.KeyAPIURL, config.KeyPollInterval, config.KeyTimeout, config.KeyOutput}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write gpudash configuration stored at ~/.gpudash/config.yaml.

Keys:
  api_url        Backend base URL, e.g. https://gpu.example.com/api
  poll_interval  How often watched views refresh (default 15s)
  timeout        HTTP timeout for backend calls (default 30s)
  output         Default output format: table, json or yaml`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := validateConfig(key, value); err != nil {
			return err
		}
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), config.Get(args[0]))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show effective values of all known keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		values := make(map[string]string, len(knownKeys))
		t := render.Table{Header: []string{"KEY", "VALUE"}}
		for _, k := range knownKeys {
			values[k] = config.Get(k)
			t.Rows = append(t.Rows, []string{k, values[k]})
		}
		format, err := render.ParseFormat(config.Output())
		if err != nil {
			return err
		}
		return render.Print(cmd.OutOrStdout(), format, values, t)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.FilePath())
	},
}

func validateConfig(key, value string) error {
	if !slices.Contains(knownKeys, key) {
		return fmt.Errorf("unknown config key %q (known: %v)", key, knownKeys)
	}
	switch key {
	case config.KeyPollInterval, config.KeyTimeout:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration such as 15s", key)
		}
	case config.KeyOutput:
		if _, err := render.ParseFormat(value); err != nil {
			return err
		}
	}
	return nil
}
