package cli

import (
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/kornev-zhora/anti-detect-browsing/internal/automation"
	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud/gologin"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud/multilogin"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud/octo"
	"github.com/kornev-zhora/anti-detect-browsing/internal/config"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
	"github.com/kornev-zhora/anti-detect-browsing/internal/orchestrator"
	"github.com/kornev-zhora/anti-detect-browsing/internal/readiness"
	"github.com/kornev-zhora/anti-detect-browsing/internal/screenshot"
	"github.com/kornev-zhora/anti-detect-browsing/internal/store"
)

// Driver backends selectable with --driver.
const (
	driverWebDriver = "webdriver"
	driverCDP       = "cdp"
)

// demoFlags are shared by the vendor demo commands.
type demoFlags struct {
	flow      string
	waitReady bool
}

func newGoLoginClient(gs *globalState) *gologin.Client {
	c := gs.cfg.GoLogin
	return gologin.New(c.APIURL, c.CloudBrowserURL, c.Token.String, gs.httpClient, gs.logger)
}

func newMultiloginClient(gs *globalState) *multilogin.Client {
	c := gs.cfg.Multilogin
	return multilogin.New(
		c.LauncherURL, c.SeleniumHost, c.SigninURL,
		c.Username.String, c.Password.String,
		gs.httpClient, gs.logger,
	)
}

func newRoutine(gs *globalState, flow string, shots config.ScreenshotConfig, logger logrus.FieldLogger) (automation.Routine, error) {
	sink, err := screenshot.FromConfig(gs.cfg.Storage.Root, shots)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	timing := automation.Timing{
		ElementTimeout: gs.cfg.Timing.ElementTimeout,
		PollInterval:   gs.cfg.Timing.PollInterval,
		SubmitDelay:    gs.cfg.Timing.SubmitDelay,
	}
	routine, err := automation.New(flow, sink, timing, logger)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}
	return routine, nil
}

// newWaiter returns the fixed settle delay, or a readiness poll with the given
// check when --wait-ready is set.
func newWaiter(gs *globalState, waitReady bool, check readiness.Check) readiness.Waiter {
	if !waitReady {
		return readiness.FixedDelay(gs.cfg.Timing.SettleDelay)
	}
	return &readiness.Poller{
		Check:    check,
		Interval: gs.cfg.Timing.PollInterval,
		Timeout:  gs.cfg.Timing.ReadyTimeout,
		Logger:   gs.logger,
	}
}

func newOctoClient(gs *globalState) *octo.Client {
	c := gs.cfg.Octo
	return octo.New(c.APIURL, c.Email.String, c.Password.String, c.DebugHost, gs.httpClient, gs.logger)
}

// debuggerDriver picks the backend for vendors whose browser exposes a
// debugger endpoint. executorURL is the WebDriver server that attaches to it.
func debuggerDriver(gs *globalState, backend, executorURL string) (browser.Factory, error) {
	if gs.driverFactory != nil {
		return gs.driverFactory, nil
	}
	switch backend {
	case driverWebDriver, "":
		return browser.DebuggerWebDriver(executorURL, gs.cfg.Timing.DriverTimeout), nil
	case driverCDP:
		return browser.CDPFactory(gs.cfg.Timing.DriverTimeout), nil
	default:
		return nil, errext.WithExitCodeIfNone(
			fmt.Errorf("unknown driver %q, expected %s or %s", backend, driverWebDriver, driverCDP),
			exitcodes.InvalidConfig,
		)
	}
}

func multiloginDriver(gs *globalState) browser.Factory {
	if gs.driverFactory != nil {
		return gs.driverFactory
	}
	return browser.MultiloginWebDriver(gs.cfg.Timing.DriverTimeout)
}

// openHistory opens the run journal when one is configured. The returned
// close func is always safe to call.
func openHistory(gs *globalState) (orchestrator.Recorder, func(), error) {
	if gs.cfg.History.DBPath == "" {
		return nil, func() {}, nil
	}
	s, err := store.New(gs.cfg.History.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run history %s: %w", gs.cfg.History.DBPath, err)
	}
	return s, func() {
		if err := s.Close(); err != nil {
			gs.logger.WithError(err).Warn("Could not close run history")
		}
	}, nil
}

// runDemo executes the runner and prints its report.
func runDemo(gs *globalState, r *orchestrator.Runner, opts orchestrator.Options) error {
	recorder, closeHistory, err := openHistory(gs)
	if err != nil {
		// A broken journal must not block the demo itself.
		gs.logger.WithError(err).Warn("Run history disabled")
	} else {
		defer closeHistory()
		if recorder != nil {
			r.Recorder = recorder
		}
	}

	r.Logger = gs.logger
	r.CleanupTimeout = gs.cfg.Timing.CleanupTimeout

	rep, runErr := r.Run(gs.ctx, opts)
	printReport(gs, rep, runErr)
	return runErr
}

func newWebSocketCheck() readiness.Check {
	return readiness.WebSocketCheck(websocket.DefaultDialer)
}
