package cli

import (
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
	"github.com/kornev-zhora/anti-detect-browsing/internal/orchestrator"
	"github.com/kornev-zhora/anti-detect-browsing/internal/readiness"
)

type octoDemoFlags struct {
	demoFlags
	profileID     string
	name          string
	osType        string
	headless      bool
	keepProfile   bool
	deleteProfile bool
	driver        string
}

func (f *octoDemoFlags) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringVar(&f.profileID, "profile", "", "use an existing profile UUID instead of creating one")
	flags.StringVar(&f.name, "name", "", "title of a new profile (default \"Profile <timestamp>\")")
	flags.StringVar(&f.osType, "os", "win", "fingerprint OS for a new profile (win, mac, lin)")
	flags.BoolVar(&f.headless, "headless", true, "run the browser headless")
	flags.BoolVar(&f.keepProfile, "keep-profile", false, "do not delete the created profile after the demo")
	flags.BoolVar(&f.deleteProfile, "delete-profile", false, "delete the profile afterwards, even one passed with --profile")
	flags.StringVar(&f.driver, "driver", driverWebDriver, "browser backend: webdriver or cdp")
	flags.StringVar(&f.flow, "flow", "login", "automation flow: login or audit")
	flags.BoolVar(&f.waitReady, "wait-ready", false, "poll the DevTools endpoint until it answers instead of sleeping")
	return flags
}

func getOctoDemoCmd(gs *globalState) *cobra.Command {
	f := &octoDemoFlags{}

	cmd := &cobra.Command{
		Use:   "octo-login-demo",
		Short: "Start an Octo Browser profile, log in to the demo site and take screenshots",
		Long: `Log in to the Octo Browser local API, start a profile with its DevTools
port exposed, log in to the scrapingcourse.com CSRF demo and take screenshots.

OCTO_EMAIL and OCTO_PASSWORD are required. With the webdriver backend a
chromedriver at OCTO_WEBDRIVER_URL attaches to the started browser; the cdp
backend connects to the DevTools port directly.`,
		Example: `
  antidetect octo-login-demo
  antidetect octo-login-demo --profile 4f7c0d9e --headless=false --driver cdp`[1:],
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOctoDemo(gs, f)
		},
	}
	cmd.Flags().AddFlagSet(f.flagSet())
	return cmd
}

func runOctoDemo(gs *globalState, f *octoDemoFlags) error {
	logger := gs.logger.WithField("vendor", "octo")

	driver, err := debuggerDriver(gs, f.driver, gs.cfg.Octo.WebDriverURL)
	if err != nil {
		return err
	}
	routine, err := newRoutine(gs, f.flow, gs.cfg.Octo.Screenshots(), logger)
	if err != nil {
		return err
	}

	r := &orchestrator.Runner{
		Client:  newOctoClient(gs),
		Driver:  driver,
		Routine: routine,
		Waiter:  newWaiter(gs, f.waitReady, readiness.DevToolsCheck(gs.httpClient)),
	}

	return runDemo(gs, r, orchestrator.Options{
		Vendor:      "Octo",
		ProfileID:   f.profileID,
		KeepProfile: f.keepProfile,
		ForceDelete: f.deleteProfile,
		Profile:     cloud.ProfileOptions{OS: f.osType, Name: f.name},
		Session:     cloud.SessionOptions{Headless: f.headless},
	})
}

func getOctoProfilesCmd(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "octo-profiles",
		Short: "List the Octo Browser profiles of the configured account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newOctoClient(gs)
			if _, err := client.Authenticate(gs.ctx); err != nil {
				return errext.WithExitCodeIfNone(err, exitcodes.AuthFailed)
			}

			profiles, err := client.ListProfiles(gs.ctx)
			if err != nil {
				return errext.WithExitCodeIfNone(err, exitcodes.ProfileFailed)
			}
			if len(profiles) == 0 {
				fprintf(gs.stdOut, "No profiles found.\n")
				return nil
			}

			tw := tabwriter.NewWriter(gs.stdOut, 0, 0, 2, ' ', 0)
			fprintf(tw, "UUID\tTITLE\tTAGS\n")
			for _, p := range profiles {
				fprintf(tw, "%s\t%s\t%s\n", p.UUID, p.Title, strings.Join(p.Tags, ","))
			}
			return tw.Flush()
		},
	}
}
