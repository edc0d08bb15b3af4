package orchestrator

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud/gologin"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud/multilogin"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud/octo"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
	"github.com/kornev-zhora/anti-detect-browsing/internal/types"
)

func TestGoLoginHappyPath(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/browser/quick":
			_, _ = io.WriteString(w, `{"id":"gl-123"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/browser/gl-123/web":
			_, _ = io.WriteString(w, `{"wsUrl":"wss://cloudbrowser.gologin.com/connect?token=t&profile=gl-123"}`)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	d := loginPage()
	r, _ := newRunner(t, nil, d)
	r.Client = gologin.New(server.URL, "https://cloudbrowser.gologin.com", "t", server.Client(), r.Logger)

	var connected *cloud.Session
	r.Driver = func(ctx context.Context, sess *cloud.Session) (browser.Driver, error) {
		connected = sess
		return d, nil
	}

	rep, err := r.Run(context.Background(), Options{Vendor: "GoLogin", Profile: cloud.ProfileOptions{OS: "win"}})
	require.NoError(t, err)

	assert.Equal(t, "wss://cloudbrowser.gologin.com/connect?token=t&profile=gl-123", connected.Endpoint)
	assert.Equal(t, []string{
		"POST /browser/quick",
		"POST /browser/gl-123/web",
		"DELETE /browser/gl-123/web",
		"DELETE /browser",
	}, calls)
	assert.Equal(t, 1, d.Quits())
	assert.Contains(t, d.Calls, `type input[name="email"] admin@example.com`)
	assert.Contains(t, d.Calls, `type input[name="password"] password`)
	require.NotNil(t, rep.Result)
	assert.Len(t, rep.Result.Screenshots, 3)
	assert.Equal(t, "gl-123", rep.ProfileID)
	assert.True(t, rep.ProfileOwned)
	assert.Empty(t, rep.CleanupWarnings)
	assert.Empty(t, rep.FailedStage)
	assert.Equal(t, []State{
		StateInit, StateProfileReady, StateSessionStarting, StateSessionReady,
		StateDriverConnecting, StateAutomating, StateDone, StateCleanup,
	}, rep.States)
	assert.Equal(t, exitcodes.ExitCode(0), errext.ExitCodeOf(err))
}

func TestProfileDeletion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opts  Options
		calls []string
	}{
		{
			name:  "created profile is deleted",
			opts:  Options{},
			calls: []string{"create ", "start gl-new", "stop gl-new", "delete gl-new"},
		},
		{
			name:  "created profile is kept on request",
			opts:  Options{KeepProfile: true},
			calls: []string{"create ", "start gl-new", "stop gl-new"},
		},
		{
			name:  "supplied profile is never auto-deleted",
			opts:  Options{ProfileID: "gl-mine"},
			calls: []string{"start gl-mine", "stop gl-mine"},
		},
		{
			name:  "supplied profile deleted when forced",
			opts:  Options{ProfileID: "gl-mine", ForceDelete: true},
			calls: []string{"start gl-mine", "stop gl-mine", "delete gl-mine"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			vendor := &fakeVendor{createID: "gl-new"}
			r, _ := newRunner(t, vendor, loginPage())

			rep, err := r.Run(context.Background(), tc.opts)
			require.NoError(t, err)
			assert.Equal(t, tc.calls, vendor.Calls())
			assert.Equal(t, tc.opts.ProfileID == "", rep.ProfileOwned)
		})
	}
}

func TestCleanupRunsWhenAutomationFails(t *testing.T) {
	t.Parallel()

	vendor := &fakeVendor{createID: "gl-1"}
	d := loginPage()
	r, _ := newRunner(t, vendor, d)
	r.Routine = failingRoutine{err: errBoom}

	rep, err := r.Run(context.Background(), Options{Vendor: "GoLogin"})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, exitcodes.AutomationFailed, errext.ExitCodeOf(err))
	assert.Equal(t, StateAutomating, rep.FailedStage)
	assert.Equal(t, []string{"create ", "start gl-1", "stop gl-1", "delete gl-1"}, vendor.Calls())
	assert.Equal(t, 1, d.Quits())
	assert.Equal(t, []string{"screenshots/01_login_page.png"}, rep.Result.Screenshots)
}

func TestCleanupFailuresDoNotChangeOutcome(t *testing.T) {
	t.Parallel()

	t.Run("success stays success", func(t *testing.T) {
		t.Parallel()
		vendor := &fakeVendor{createID: "gl-1", stopErr: errBoom, deleteErr: errors.New("gone")}
		d := loginPage()
		d.QuitErr = errors.New("session not found")
		r, hook := newRunner(t, vendor, d)

		rep, err := r.Run(context.Background(), Options{})
		require.NoError(t, err)
		assert.Len(t, rep.CleanupWarnings, 3)
		assert.Equal(t, []string{"create ", "start gl-1", "stop gl-1", "delete gl-1"}, vendor.Calls())

		warnings := 0
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel {
				warnings++
			}
		}
		assert.Equal(t, 3, warnings)
	})

	t.Run("failure keeps its exit code", func(t *testing.T) {
		t.Parallel()
		vendor := &fakeVendor{createID: "gl-1", stopFail: true, deleteErr: errBoom}
		r, _ := newRunner(t, vendor, loginPage())
		r.Routine = failingRoutine{err: errors.New("Could not find email input field.")}

		rep, err := r.Run(context.Background(), Options{})
		require.Error(t, err)
		assert.Equal(t, exitcodes.AutomationFailed, errext.ExitCodeOf(err))
		assert.Contains(t, err.Error(), "Could not find email input field.")
		assert.Len(t, rep.CleanupWarnings, 2)
	})
}

func TestDriverConnectFailure(t *testing.T) {
	t.Parallel()

	vendor := &fakeVendor{createID: "gl-1"}
	r, _ := newRunner(t, vendor, nil)
	r.Driver = driverFactory(nil, errors.New("failed to connect to WebDriver"))

	rep, err := r.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, exitcodes.DriverFailed, errext.ExitCodeOf(err))
	assert.Equal(t, StateDriverConnecting, rep.FailedStage)
	assert.Equal(t, []string{"create ", "start gl-1", "stop gl-1", "delete gl-1"}, vendor.Calls())
	assert.Nil(t, rep.Result)
}

func TestSessionStartFailureDeletesCreatedProfile(t *testing.T) {
	t.Parallel()

	vendor := &fakeVendor{createID: "gl-1", startErr: &cloud.RemoteAPIError{Op: "Failed to start cloud profile", StatusCode: 500}}
	r, _ := newRunner(t, vendor, loginPage())

	rep, err := r.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, exitcodes.SessionFailed, errext.ExitCodeOf(err))
	assert.Equal(t, StateSessionStarting, rep.FailedStage)
	assert.Equal(t, []string{"create ", "start gl-1", "delete gl-1"}, vendor.Calls())
}

func TestInterruptedSessionStartIsStoppedBeforeDelete(t *testing.T) {
	t.Parallel()

	vendor := &fakeVendor{createID: "gl-1", startErr: &cloud.ConnectionError{Op: "start cloud profile", Err: errBoom}}
	r, _ := newRunner(t, vendor, loginPage())

	rep, err := r.Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, exitcodes.SessionFailed, errext.ExitCodeOf(err))
	assert.Equal(t, StateSessionStarting, rep.FailedStage)
	assert.Equal(t, []string{"create ", "start gl-1", "stop gl-1", "delete gl-1"}, vendor.Calls())
}

func TestCancelDuringSessionStartStopsSession(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		calls []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/browser/quick":
			_, _ = io.WriteString(w, `{"id":"gl-1"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/browser/gl-1/web":
			// Ctrl-C arrives while the vendor is still launching the browser.
			cancel()
			<-r.Context().Done()
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	r, _ := newRunner(t, nil, loginPage())
	r.Client = gologin.New(server.URL, "https://cloudbrowser.gologin.com", "t", server.Client(), r.Logger)

	_, err := r.Run(ctx, Options{Vendor: "GoLogin"})
	require.ErrorIs(t, err, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"POST /browser/quick",
		"POST /browser/gl-1/web",
		"DELETE /browser/gl-1/web",
		"DELETE /browser",
	}, calls)
}

func TestProfileCreationFailure(t *testing.T) {
	t.Parallel()

	vendor := &fakeVendor{createErr: &cloud.RemoteAPIError{Op: "Failed to create quick profile", StatusCode: 500}}
	r, _ := newRunner(t, vendor, loginPage())

	rep, err := r.Run(context.Background(), Options{Profile: cloud.ProfileOptions{OS: "mac"}})
	require.Error(t, err)
	assert.Equal(t, exitcodes.ProfileFailed, errext.ExitCodeOf(err))
	assert.Equal(t, StateProfileReady, rep.FailedStage)
	assert.Equal(t, []string{"create mac"}, vendor.Calls())
	assert.NotContains(t, rep.States, StateCleanup)
}

func TestMissingGoLoginToken(t *testing.T) {
	t.Parallel()

	r, _ := newRunner(t, nil, loginPage())
	r.Client = gologin.New("http://127.0.0.1:1", "https://cloudbrowser.gologin.com", "", nil, r.Logger)

	_, err := r.Run(context.Background(), Options{Vendor: "GoLogin"})
	var authErr *cloud.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, gologin.MissingTokenMessage, authErr.Error())
	assert.Equal(t, exitcodes.AuthFailed, errext.ExitCodeOf(err))
}

func TestCancelledRunStillCleansUp(t *testing.T) {
	t.Parallel()

	vendor := &fakeVendor{createID: "gl-1"}
	r, _ := newRunner(t, vendor, loginPage())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Waiter = cancellingWaiter{cancel: cancel}

	_, err := r.Run(ctx, Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"create ", "start gl-1", "stop gl-1", "delete gl-1"}, vendor.Calls())
}

func TestMultiloginWithoutCredentials(t *testing.T) {
	t.Parallel()

	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"status":{"message":"launcher down"}}`)
	}))
	defer server.Close()

	d := loginPage()
	r, hook := newRunner(t, nil, d)
	r.Client = multilogin.New(server.URL, "127.0.0.1", server.URL+"/user/signin", "", "", server.Client(), r.Logger)

	rep, err := r.Run(context.Background(), Options{Vendor: "Multilogin"})
	require.Error(t, err)
	assert.NotEqual(t, exitcodes.ExitCode(0), errext.ExitCodeOf(err))
	assert.Equal(t, exitcodes.SessionFailed, errext.ExitCodeOf(err))

	assert.Equal(t, []string{"/api/v3/profile/quick"}, paths)
	assert.NotContains(t, rep.States, StateAuth)
	assert.NotContains(t, rep.States, StateAutomating)
	assert.Empty(t, d.Calls)
	assert.Nil(t, rep.Result)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "No Multilogin credentials configured. Attempting without auth token." {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestMultiloginAuthenticatesAndStops(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.URL.Path+" "+r.Header.Get("Authorization"))
		mu.Unlock()

		switch r.URL.Path {
		case "/user/signin":
			_, _ = io.WriteString(w, `{"data":{"token":"bearer-1"}}`)
		case "/api/v3/profile/quick":
			_, _ = io.WriteString(w, `{"data":{"id":"ml-1","port":"4444","browser_type":"mimic","is_quick":true}}`)
		case "/api/v1/profile/stop":
			_, _ = io.WriteString(w, `{}`)
		}
	}))
	defer server.Close()

	r, _ := newRunner(t, nil, loginPage())
	r.Client = multilogin.New(server.URL, "127.0.0.1", server.URL+"/user/signin", "me@example.com", "pw", server.Client(), r.Logger)

	var endpoint string
	r.Driver = func(ctx context.Context, sess *cloud.Session) (browser.Driver, error) {
		endpoint = sess.Endpoint
		return loginPage(), nil
	}

	rep, err := r.Run(context.Background(), Options{Vendor: "Multilogin"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:4444", endpoint)
	assert.Equal(t, "ml-1", rep.ProfileID)
	assert.False(t, rep.ProfileOwned)
	assert.Contains(t, rep.States, StateAuth)
	assert.Equal(t, []string{
		"/user/signin ",
		"/api/v3/profile/quick Bearer bearer-1",
		"/api/v1/profile/stop Bearer bearer-1",
	}, calls)
}

func TestMultiloginRejectedCredentials(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	r, _ := newRunner(t, nil, loginPage())
	r.Client = multilogin.New(server.URL, "127.0.0.1", server.URL, "me@example.com", "bad", server.Client(), r.Logger)

	rep, err := r.Run(context.Background(), Options{Vendor: "Multilogin"})
	require.Error(t, err)
	assert.Equal(t, exitcodes.AuthFailed, errext.ExitCodeOf(err))
	assert.Equal(t, StateAuth, rep.FailedStage)
	assert.True(t, strings.HasPrefix(err.Error(), "Multilogin authentication failed"))
}

func TestOctoWithoutCredentialsFailsAtAuth(t *testing.T) {
	t.Parallel()

	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	d := loginPage()
	r, hook := newRunner(t, nil, d)
	r.Client = octo.New(server.URL, "me@example.com", "", "127.0.0.1", server.Client(), r.Logger)

	rep, err := r.Run(context.Background(), Options{Vendor: "Octo"})
	require.Error(t, err)
	assert.Equal(t, exitcodes.AuthFailed, errext.ExitCodeOf(err))
	assert.Equal(t, StateAuth, rep.FailedStage)
	assert.Equal(t, octo.MissingCredentialsMessage, err.Error())
	assert.Zero(t, hits)
	assert.Empty(t, d.Calls)

	for _, e := range hook.AllEntries() {
		assert.NotContains(t, e.Message, "Attempting without auth token")
	}
}

func TestRunIsRecorded(t *testing.T) {
	t.Parallel()

	rec := &memoryRecorder{}
	vendor := &fakeVendor{createID: "gl-1"}
	r, _ := newRunner(t, vendor, loginPage())
	r.Recorder = rec

	_, err := r.Run(context.Background(), Options{Vendor: "GoLogin"})
	require.NoError(t, err)

	r.Routine = failingRoutine{err: errBoom}
	rec.err = errors.New("disk full")
	_, err = r.Run(context.Background(), Options{Vendor: "GoLogin"})
	require.ErrorIs(t, err, errBoom)

	require.Len(t, rec.records, 2)
	ok, failed := rec.records[0], rec.records[1]

	assert.Equal(t, "run-1", ok.ID)
	assert.Equal(t, "gologin", ok.Vendor)
	assert.Equal(t, "login", ok.Flow)
	assert.Equal(t, types.OutcomeSuccess, ok.Outcome)
	assert.Equal(t, "gl-1", ok.ProfileID)
	assert.Len(t, ok.Screenshots, 3)
	assert.Equal(t, "https://www.scrapingcourse.com/dashboard", ok.FinalURL)

	assert.Equal(t, "run-2", failed.ID)
	assert.Equal(t, types.OutcomeFailure, failed.Outcome)
	assert.Equal(t, string(StateAutomating), failed.FailedStage)
	assert.Contains(t, failed.Error, "boom")
}
