package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/kornev-zhora/anti-detect-browsing/internal/config"
)

func openInDesktop(path string) error {
	return browser.OpenFile(path)
}

func getOpenCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:       "open config|screenshots",
		Short:     "Open the config file or a screenshot directory",
		Long:      "Open the config file in the default editor, or the local screenshot directory in the file explorer.",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"config", "screenshots"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := openTarget(gs, args[0])
			if err != nil {
				return err
			}
			gs.logger.WithField("path", path).Info("Opening...")
			if err := gs.openFile(path); err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			return nil
		},
	}
}

func openTarget(gs *globalState, target string) (string, error) {
	switch target {
	case "config":
		if gs.flags.configPath != "" {
			return gs.flags.configPath, nil
		}
		if p := gs.envVars["ANTIDETECT_CONFIG"]; p != "" {
			return p, nil
		}
		return config.ConfigPath()
	case "screenshots":
		shots := gs.cfg.GoLogin.Screenshots()
		if shots.Disk != config.DiskLocal {
			return "", fmt.Errorf("screenshots are kept on the %q disk, nothing to open", shots.Disk)
		}
		dir := filepath.Join(gs.cfg.Storage.Root, shots.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return dir, nil
	default:
		return "", fmt.Errorf("unknown target: %s", target)
	}
}
