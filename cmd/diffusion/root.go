package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/influence-diffusion/pkg/experiment"
)

var rootCmd = &cobra.Command{
	Use:   "diffusion",
	Short: "Competing influence diffusion simulator",
	Long: `diffusion runs Monte Carlo simulations of two competing influences spreading
over a network and compares vaccination strategies against an outbreak.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Configuration file (yaml, json or toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig builds the experiment configuration from defaults, the config
// file and the flags that were set explicitly. overrides maps flag names to
// configuration keys.
func loadConfig(cmd *cobra.Command, overrides map[string]string) (*experiment.Config, error) {
	config := experiment.NewConfig()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := config.LoadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		config.Set("logging.level", level)
	}

	for flag, key := range overrides {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		value, err := flagValue(cmd, flag)
		if err != nil {
			return nil, err
		}
		config.Set(key, value)
	}
	return config, nil
}

func flagValue(cmd *cobra.Command, name string) (interface{}, error) {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		return nil, fmt.Errorf("unknown flag %s", name)
	}
	switch f.Value.Type() {
	case "int":
		return cmd.Flags().GetInt(name)
	case "int64":
		return cmd.Flags().GetInt64(name)
	case "float64":
		return cmd.Flags().GetFloat64(name)
	case "stringSlice":
		return cmd.Flags().GetStringSlice(name)
	default:
		return f.Value.String(), nil
	}
}
