package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gorkemtikic/shotlib/internal/config"
	"github.com/gorkemtikic/shotlib/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage shotlib configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file with the defaults filled in.

Edit repo.owner and repo.name afterward, then run 'shotlib auth login'.
An existing config file is never overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}

		if err := config.WriteStarter(path); err != nil {
			return err
		}

		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), ui.RenderAccent(path))
		fmt.Println("  Set repo.owner and repo.name, then run 'shotlib auth login'")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, file, and environment are
merged. The access token is never part of this output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
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
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
