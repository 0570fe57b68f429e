package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"discourse/issuegraph/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the .issuegraph.yaml config",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to .issuegraph.yaml (or --config)",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.FileName
		}
		if err := initConfig(path, configForce); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config after file and environment overrides",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showConfig(os.Stdout, cfg)
	},
}

func init() {
	// --config names the file to create, so skip loading it
	configInitCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

// initConfig writes the defaults to path, refusing to replace an existing
// file unless force is set
func initConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	return config.DefaultConfig().Save(path)
}

func showConfig(w io.Writer, c *config.Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
