package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
	"github.com/kornev-zhora/anti-detect-browsing/internal/orchestrator"
)

type goLoginDemoFlags struct {
	demoFlags
	profileID     string
	osType        string
	keepProfile   bool
	deleteProfile bool
	driver        string
}

func (f *goLoginDemoFlags) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVar(&f.profileID, "profile", "", "use an existing profile ID instead of creating one")
	flags.StringVar(&f.osType, "os", "win", "OS type for a new profile (win, mac, lin)")
	flags.BoolVar(&f.keepProfile, "keep-profile", false, "do not delete the created profile after the demo")
	flags.BoolVar(&f.deleteProfile, "delete-profile", false, "delete the profile afterwards, even one passed with --profile")
	flags.StringVar(&f.driver, "driver", driverWebDriver, "browser backend: webdriver or cdp")
	flags.StringVar(&f.flow, "flow", "login", "automation flow: login or audit")
	flags.BoolVar(&f.waitReady, "wait-ready", false, "poll the cloud browser until it accepts connections instead of sleeping")
	return flags
}

func getGoLoginDemoCmd(gs *globalState) *cobra.Command {
	f := &goLoginDemoFlags{}

	cmd := &cobra.Command{
		Use:   "gologin-login-demo",
		Short: "Start a GoLogin cloud browser profile, log in to the demo site and take screenshots",
		Long: `Start a GoLogin cloud browser profile, log in to the scrapingcourse.com
CSRF demo and take screenshots.

Without --profile a quick profile is created and deleted afterwards unless
--keep-profile is given. The cloud browser is always stopped.`,
		Example: `
  # Create a temporary Windows profile and run the login flow
  antidetect gologin-login-demo

  # Reuse a saved profile and drive it over CDP
  antidetect gologin-login-demo --profile 6650f0c2b1 --driver cdp

  # Check the fingerprint of a fresh macOS profile
  antidetect gologin-login-demo --os mac --flow audit`[1:],
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoLoginDemo(gs, f)
		},
	}
	cmd.Flags().AddFlagSet(f.flagSet())
	return cmd
}

func runGoLoginDemo(gs *globalState, f *goLoginDemoFlags) error {
	logger := gs.logger.WithField("vendor", "gologin")

	driver, err := debuggerDriver(gs, f.driver, gs.cfg.GoLogin.WebDriverURL)
	if err != nil {
		return err
	}
	routine, err := newRoutine(gs, f.flow, gs.cfg.GoLogin.Screenshots(), logger)
	if err != nil {
		return err
	}

	r := &orchestrator.Runner{
		Client:  newGoLoginClient(gs),
		Driver:  driver,
		Routine: routine,
		Waiter:  newWaiter(gs, f.waitReady, newWebSocketCheck()),
	}

	return runDemo(gs, r, orchestrator.Options{
		Vendor:      "GoLogin",
		ProfileID:   f.profileID,
		KeepProfile: f.keepProfile,
		ForceDelete: f.deleteProfile,
		Profile:     cloud.ProfileOptions{OS: f.osType},
	})
}
