package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fjod/go_cart/cart-client/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gymcart configuration",
	}

	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the default config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(*cobra.Command, []string) error {
			path := a.cfgPath
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.WriteDefault(path); err != nil {
				if errors.Is(err, os.ErrExist) {
					return fmt.Errorf("%s already exists", path)
				}
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(a.out, "Wrote %s\n", path)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:         "show",
		Short:       "Show the merged configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(a.out, "# Merged configuration (defaults + file + environment)")
			fmt.Fprint(a.out, string(data))
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
