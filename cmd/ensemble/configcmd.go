package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/ensemble/config"
)

func configCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage ensemble configuration",
	}
	cmd.AddCommand(configInitCmd(c))
	cmd.AddCommand(configShowCmd(c))
	return cmd
}

func configInitCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default user config to ~/.config/ensemble/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.NewLoader(c.app.logger).InitUserConfig(force)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(cmd.OutOrStdout(), "User config already exists at %s (use --force to overwrite)\n", path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing user config")
	return cmd
}

func configShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(c.app.cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
