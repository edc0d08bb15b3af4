// Package cli implements the antidetect command tree.
package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
	"github.com/kornev-zhora/anti-detect-browsing/internal/config"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext"
)

// skipConfigAnnotation marks commands that must run without a valid config.
const skipConfigAnnotation = "skip-config"

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool
}

// globalState holds everything a command touches outside of its own flags,
// so tests can swap the process environment out.
type globalState struct {
	ctx context.Context

	args    []string
	envVars map[string]string

	stdOut, stdErr       io.Writer
	stdOutTTY, stdErrTTY bool

	logger *logrus.Logger
	flags  globalFlags
	cfg    *config.Config

	httpClient *http.Client
	// driverFactory replaces the configured browser backend when set.
	driverFactory browser.Factory
	// openFile opens a path with the desktop's default handler.
	openFile func(path string) error

	osExit func(int)
}

func newGlobalState(ctx context.Context) *globalState {
	stdOutTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stdErrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	stdErr := colorable.NewColorableStderr()

	return &globalState{
		ctx:       ctx,
		args:      append([]string(nil), os.Args...),
		envVars:   config.EnvMap(os.Environ()),
		stdOut:    colorable.NewColorableStdout(),
		stdErr:    stdErr,
		stdOutTTY: stdOutTTY,
		stdErrTTY: stdErrTTY,
		logger: &logrus.Logger{
			Out:       stdErr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
		flags:      globalFlags{logLevel: "info", logFormat: "text"},
		httpClient: &http.Client{},
		openFile:   openInDesktop,
		osExit:     os.Exit,
	}
}

// This is to keep all fields needed for the main/root command
type rootCommand struct {
	gs  *globalState
	cmd *cobra.Command
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{gs: gs}
	c.cmd = &cobra.Command{
		Use:               "antidetect",
		Short:             "Drive anti-detect cloud browsers through a scripted login",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}
	c.cmd.PersistentFlags().AddFlagSet(c.rootCmdPersistentFlagSet())

	c.cmd.AddCommand(
		getGoLoginDemoCmd(gs),
		getMultiloginDemoCmd(gs),
		getOctoDemoCmd(gs),
		getOctoProfilesCmd(gs),
		getGoLoginInspectCmd(gs),
		getHistoryCmd(gs),
		getOpenCmd(gs),
		getConfigCmd(gs),
	)
	return c
}

func (c *rootCommand) rootCmdPersistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&c.gs.flags.configPath, "config", "c", c.gs.flags.configPath,
		"TOML config file (default $ANTIDETECT_CONFIG or the user config dir)")
	flags.StringVar(&c.gs.flags.logLevel, "log-level", c.gs.flags.logLevel,
		"log level: trace, debug, info, warning, error")
	flags.StringVar(&c.gs.flags.logFormat, "log-format", c.gs.flags.logFormat, "log output format: text or json")
	flags.BoolVar(&c.gs.flags.noColor, "no-color", c.gs.flags.noColor, "disable colored output")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	if err := setupLogger(c.gs); err != nil {
		return err
	}

	if cmd.Annotations[skipConfigAnnotation] == "true" {
		return nil
	}

	cfg, err := loadConfig(c.gs)
	if err != nil {
		return err
	}
	c.gs.cfg = cfg
	return nil
}

// execute runs the command tree and exits with the code attached to the
// returned error, if any.
func (c *rootCommand) execute() {
	c.cmd.SetArgs(c.gs.args[1:])
	c.cmd.SetOut(c.gs.stdOut)
	c.cmd.SetErr(c.gs.stdErr)

	err := c.cmd.ExecuteContext(c.gs.ctx)
	if err == nil {
		return
	}

	c.gs.logger.Error(err)
	c.gs.osExit(int(errext.ExitCodeOf(err)))
}

// Execute is called by main.main(). Interrupts cancel the running command;
// cloud resources are still released before the process exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	newRootCommand(newGlobalState(ctx)).execute()
}
