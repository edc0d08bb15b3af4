package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kornev-zhora/anti-detect-browsing/internal/config"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
)

func setupLogger(gs *globalState) error {
	level, err := logrus.ParseLevel(gs.flags.logLevel)
	if err != nil {
		return errext.WithExitCodeIfNone(fmt.Errorf("invalid --log-level: %w", err), exitcodes.InvalidConfig)
	}
	gs.logger.SetLevel(level)

	switch gs.flags.logFormat {
	case "json":
		gs.logger.SetFormatter(&logrus.JSONFormatter{})
		gs.logger.Debug("Logger format: JSON")
	case "text", "":
		gs.logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   gs.stdErrTTY && !gs.flags.noColor,
			DisableColors: gs.flags.noColor,
		})
		gs.logger.Debug("Logger format: TEXT")
	default:
		return errext.WithExitCodeIfNone(
			fmt.Errorf("unsupported log format %q, expected text or json", gs.flags.logFormat),
			exitcodes.InvalidConfig,
		)
	}
	return nil
}

func loadConfig(gs *globalState) (*config.Config, error) {
	cfg, err := config.Load(gs.flags.configPath, gs.envVars)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	gs.logger.WithFields(logrus.Fields{
		"storage_root": cfg.Storage.Root,
		"history":      cfg.History.DBPath != "",
	}).Debug("Configuration loaded")
	return cfg, nil
}
