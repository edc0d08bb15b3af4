package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kornev-zhora/anti-detect-browsing/internal/config"
)

func getConfigCmd(gs *globalState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write a config file with the default settings to --config, $ANTIDETECT_CONFIG
or the user config directory. An existing file is never overwritten.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := openTarget(gs, "config")
			if err != nil {
				return err
			}
			if err := config.Default().Save(path); err != nil {
				if errors.Is(err, os.ErrExist) {
					return fmt.Errorf("config file %s already exists", path)
				}
				return fmt.Errorf("failed to write config file: %w", err)
			}
			fprintf(gs.stdOut, "Config written to %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(initCmd)
	return cmd
}
