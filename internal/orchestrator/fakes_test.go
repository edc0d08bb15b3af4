package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"

	"github.com/kornev-zhora/anti-detect-browsing/internal/automation"
	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
	"github.com/kornev-zhora/anti-detect-browsing/internal/browser/browsertest"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
	"github.com/kornev-zhora/anti-detect-browsing/internal/readiness"
	"github.com/kornev-zhora/anti-detect-browsing/internal/screenshot"
	"github.com/kornev-zhora/anti-detect-browsing/internal/types"
)

// fakeVendor is a SessionClient and ProfileManager that records the call order.
type fakeVendor struct {
	mu    sync.Mutex
	calls []string

	createID  string
	createErr error
	startErr  error
	stopFail  bool
	stopErr   error
	deleteErr error
}

var (
	_ cloud.SessionClient  = (*fakeVendor)(nil)
	_ cloud.ProfileManager = (*fakeVendor)(nil)
)

func (f *fakeVendor) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeVendor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeVendor) CreateProfile(ctx context.Context, opts cloud.ProfileOptions) (string, error) {
	f.record("create " + opts.OS)
	return f.createID, f.createErr
}

func (f *fakeVendor) StartSession(ctx context.Context, opts cloud.SessionOptions) (*cloud.Session, error) {
	f.record("start " + opts.ProfileID)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &cloud.Session{ProfileID: opts.ProfileID, Endpoint: "wss://cloud.example/connect?profile=" + opts.ProfileID}, nil
}

func (f *fakeVendor) StopSession(ctx context.Context, sess *cloud.Session) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	f.record("stop " + sess.ProfileID)
	return !f.stopFail, f.stopErr
}

func (f *fakeVendor) DeleteProfile(ctx context.Context, id string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	f.record("delete " + id)
	return f.deleteErr == nil, f.deleteErr
}

// failingRoutine fails after reporting one screenshot.
type failingRoutine struct{ err error }

func (r failingRoutine) Name() string { return "login" }

func (r failingRoutine) Run(ctx context.Context, d browser.Driver) (*types.Result, error) {
	return &types.Result{Screenshots: []string{"screenshots/01_login_page.png"}}, r.err
}

// cancellingWaiter cancels the run while waiting for readiness.
type cancellingWaiter struct{ cancel context.CancelFunc }

func (w cancellingWaiter) Wait(ctx context.Context, sess *cloud.Session) error {
	w.cancel()
	return readiness.Sleep(ctx, time.Hour)
}

type memoryRecorder struct {
	records []*types.RunRecord
	err     error
}

func (m *memoryRecorder) SaveRun(ctx context.Context, rec *types.RunRecord) error {
	m.records = append(m.records, rec)
	return m.err
}

// loginPage is a fake browser showing the scrapingcourse login form.
func loginPage() *browsertest.Driver {
	d := browsertest.New(
		`input[name="email"], input[type="email"], #email`,
		`input[name="email"]`, `input[name="password"]`, `button[type="submit"]`,
	)
	d.URLAfterClick = "https://www.scrapingcourse.com/dashboard"
	d.PageTitle = "Dashboard"
	return d
}

func driverFactory(d browser.Driver, err error) browser.Factory {
	return func(ctx context.Context, sess *cloud.Session) (browser.Driver, error) {
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

func newRunner(t *testing.T, client cloud.SessionClient, d browser.Driver) (*Runner, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	timing := automation.Timing{ElementTimeout: 50 * time.Millisecond, PollInterval: 5 * time.Millisecond}
	sink := screenshot.New(afero.NewMemMapFs(), "", "screenshots", "gologin")

	n := 0
	return &Runner{
		Client:  client,
		Driver:  driverFactory(d, nil),
		Routine: automation.NewLogin(sink, timing, logger),
		Waiter:  readiness.FixedDelay(0),
		Logger:  logger,
		newID: func() string {
			n++
			return fmt.Sprintf("run-%d", n)
		},
	}, hook
}

var errBoom = errors.New("boom")
