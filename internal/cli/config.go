package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codecheck/internal/config"
)

var flagConfigSource string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage codecheck configuration",
	Long: `Manage codecheck configuration.

Values are resolved as defaults < config file < CODECHECK_* environment
variables < command flags. Keys use dotted names such as run.model or
cache.ttl_seconds.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "Config file already exists at %s\n", path)
			return nil
		}
		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Config file created at %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, path)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one effective configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}
		value, err := config.Lookup(cfg, args[0])
		if err != nil {
			return err
		}
		if m, ok := value.(map[string]any); ok {
			return yaml.NewEncoder(os.Stdout).Encode(m)
		}
		if list, ok := value.([]any); ok {
			return yaml.NewEncoder(os.Stdout).Encode(list)
		}
		fmt.Fprintln(os.Stdout, value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a value in the configuration file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Environment and flags are left out so they are not persisted.
		cfg, err := config.LoadFile()
		if err != nil {
			return fmt.Errorf("%w (fix or remove the file first)", err)
		}
		if err := config.SetField(&cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			cfg config.Config
			err error
		)
		switch flagConfigSource {
		case "effective":
			cfg, err = config.Load(nil)
		case "file":
			cfg, err = config.LoadFile()
		default:
			return fmt.Errorf("--source must be effective or file, got %q", flagConfigSource)
		}
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().StringVar(&flagConfigSource, "source", "effective", "Which values to show: effective (merged) or file")
}
