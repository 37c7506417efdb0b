package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configWrite string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print or write the effective configuration",
	Long: `Print the configuration after defaults, the config file and environment
overrides have been applied. With --write, save it as YAML instead.

Examples:
  portal config
  portal config --write portal.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if configWrite != "" {
			if err := cfg.Save(configWrite); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("Config written to %s\n", configWrite)
			return nil
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVarP(&configWrite, "write", "w", "", "write the configuration to this path")
}
