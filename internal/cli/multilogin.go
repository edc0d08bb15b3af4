package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
	"github.com/kornev-zhora/anti-detect-browsing/internal/orchestrator"
	"github.com/kornev-zhora/anti-detect-browsing/internal/readiness"
)

type multiloginDemoFlags struct {
	demoFlags
	headless    bool
	browserType string
	osType      string
}

func (f *multiloginDemoFlags) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.BoolVar(&f.headless, "headless", false, "run the browser headless")
	flags.StringVar(&f.browserType, "browser", "mimic", "browser type: mimic (Chromium) or stealthfox (Firefox)")
	flags.StringVar(&f.osType, "os", "linux", "OS type: linux, windows, macos")
	flags.StringVar(&f.flow, "flow", "login", "automation flow: login or audit")
	flags.BoolVar(&f.waitReady, "wait-ready", false, "poll the WebDriver endpoint until it answers instead of sleeping")
	return flags
}

func getMultiloginDemoCmd(gs *globalState) *cobra.Command {
	f := &multiloginDemoFlags{}

	cmd := &cobra.Command{
		Use:   "multilogin-login-demo",
		Short: "Start a Multilogin quick profile, log in to the demo site and take screenshots",
		Long: `Start a Multilogin X quick profile through the local launcher, log in to
the scrapingcourse.com CSRF demo and take screenshots.

Quick profiles are disposable: stopping the browser discards them. When
MULTILOGIN_USERNAME and MULTILOGIN_PASSWORD are set the launcher calls are
authenticated with a bearer token.`,
		Example: `
  antidetect multilogin-login-demo
  antidetect multilogin-login-demo --headless --os windows --flow audit`[1:],
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMultiloginDemo(gs, f)
		},
	}
	cmd.Flags().AddFlagSet(f.flagSet())
	return cmd
}

func runMultiloginDemo(gs *globalState, f *multiloginDemoFlags) error {
	logger := gs.logger.WithField("vendor", "multilogin")

	routine, err := newRoutine(gs, f.flow, gs.cfg.Multilogin.Screenshots(), logger)
	if err != nil {
		return err
	}

	r := &orchestrator.Runner{
		Client:  newMultiloginClient(gs),
		Driver:  multiloginDriver(gs),
		Routine: routine,
		Waiter:  newWaiter(gs, f.waitReady, readiness.HTTPStatusCheck(gs.httpClient)),
	}

	return runDemo(gs, r, orchestrator.Options{
		Vendor: "Multilogin",
		Session: cloud.SessionOptions{
			Headless:    f.headless,
			BrowserType: f.browserType,
			OS:          f.osType,
		},
	})
}
