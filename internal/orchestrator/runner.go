// Package orchestrator drives one cloud browser profile through a scripted
// flow and guarantees the vendor resources are released afterwards.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kornev-zhora/anti-detect-browsing/internal/automation"
	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext"
	"github.com/kornev-zhora/anti-detect-browsing/internal/errext/exitcodes"
	"github.com/kornev-zhora/anti-detect-browsing/internal/readiness"
	"github.com/kornev-zhora/anti-detect-browsing/internal/types"
)

const defaultCleanupTimeout = 60 * time.Second

// Recorder persists a finished run.
type Recorder interface {
	SaveRun(ctx context.Context, rec *types.RunRecord) error
}

// Options select the profile and session of one run.
type Options struct {
	// Vendor is the display name used in log lines, e.g. "GoLogin".
	Vendor string
	// ProfileID reuses an existing profile instead of creating one.
	ProfileID string
	// KeepProfile retains a profile created by this run.
	KeepProfile bool
	// ForceDelete deletes the profile even when it was supplied by the caller.
	ForceDelete bool
	Profile     cloud.ProfileOptions
	Session     cloud.SessionOptions
}

// Report describes a finished run, successful or not.
type Report struct {
	RunID           string
	Vendor          string
	Flow            string
	States          []State
	FailedStage     State
	ProfileID       string
	ProfileOwned    bool
	Endpoint        string
	Result          *types.Result
	CleanupWarnings []string
	StartedAt       time.Time
	FinishedAt      time.Time

	// stage is the state being worked towards; a failure is attributed to it.
	stage State
}

func (r *Report) enter(s State) {
	r.States = append(r.States, s)
	r.stage = s
}

// Runner executes the session lifecycle: profile, session, readiness, driver,
// automation, then cleanup.
type Runner struct {
	Client   cloud.SessionClient
	Driver   browser.Factory
	Routine  automation.Routine
	Waiter   readiness.Waiter
	Recorder Recorder
	Logger   logrus.FieldLogger

	CleanupTimeout time.Duration

	now   func() time.Time
	newID func() string
}

// profileHandle is the profile a run works on. owned is set when this run created it.
type profileHandle struct {
	id    string
	owned bool
}

// resources are released by cleanup in reverse order of acquisition.
type resources struct {
	profile profileHandle
	session *cloud.Session
	driver  browser.Driver
}

func (res *resources) acquired() bool {
	return res.profile.id != "" || res.session != nil || res.driver != nil
}

// Run performs the demo. The returned error carries an exit code for the
// stage that failed. Cleanup problems never change the outcome; they are
// reported in Report.CleanupWarnings.
func (r *Runner) Run(ctx context.Context, opts Options) (rep *Report, err error) {
	rep = &Report{
		RunID:     r.id(),
		Vendor:    opts.Vendor,
		Flow:      r.Routine.Name(),
		StartedAt: r.clock(),
	}
	logger := r.Logger.WithFields(logrus.Fields{"vendor": strings.ToLower(opts.Vendor), "run_id": rep.RunID})

	res := &resources{}
	defer func() {
		if err != nil {
			rep.FailedStage = rep.stage
			err = errext.WithExitCodeIfNone(err, exitCodeFor(rep.FailedStage, err))
		}
		if res.acquired() {
			r.cleanup(rep, logger, res, opts)
		}
		rep.FinishedAt = r.clock()
		r.record(rep, err, logger)
	}()

	rep.enter(StateInit)

	if err := r.authenticate(ctx, rep, logger, opts); err != nil {
		return rep, err
	}

	if err := r.prepareProfile(ctx, rep, logger, res, opts); err != nil {
		return rep, err
	}

	rep.enter(StateSessionStarting)
	sessOpts := opts.Session
	sessOpts.ProfileID = res.profile.id
	logger.Info("Starting cloud browser...")
	sess, err := r.Client.StartSession(ctx, sessOpts)
	if err != nil {
		if res.profile.id != "" && startOutcomeUnknown(err) {
			// The vendor may have launched the browser before the call was cut
			// off, so cleanup still stops it before touching the profile.
			res.session = &cloud.Session{ProfileID: res.profile.id}
			logger.Warn("Cloud browser start was interrupted; it will be stopped during cleanup.")
		}
		return rep, err
	}
	res.session = sess
	if rep.ProfileID == "" {
		rep.ProfileID = sess.ProfileID
	}
	rep.Endpoint = sess.Endpoint
	logger.WithField("profile_id", rep.ProfileID).Info("Cloud browser started.")
	if sess.BrowserType != "" {
		logger.Infof("Browser: %s v%d", sess.BrowserType, sess.CoreVersion)
	}

	rep.enter(StateSessionReady)
	logger.Info("Waiting for browser to initialize...")
	if err := r.Waiter.Wait(ctx, sess); err != nil {
		return rep, err
	}

	rep.enter(StateDriverConnecting)
	logger.Info("Connecting to cloud browser...")
	drv, err := r.Driver(ctx, sess)
	if err != nil {
		return rep, err
	}
	res.driver = drv

	rep.enter(StateAutomating)
	result, err := r.Routine.Run(ctx, drv)
	rep.Result = result
	if err != nil {
		return rep, fmt.Errorf("%s automation failed: %w", r.Routine.Name(), err)
	}

	rep.enter(StateDone)
	return rep, nil
}

func (r *Runner) authenticate(ctx context.Context, rep *Report, logger logrus.FieldLogger, opts Options) error {
	auth, ok := r.Client.(cloud.Authenticator)
	if !ok {
		return nil
	}
	if !auth.HasCredentials() {
		if req, ok := r.Client.(cloud.CredentialsRequired); !ok || !req.CredentialsRequired() {
			logger.Warnf("No %s credentials configured. Attempting without auth token.", opts.Vendor)
			return nil
		}
	}

	rep.enter(StateAuth)
	logger.Infof("Authenticating with %s...", opts.Vendor)
	if _, err := auth.Authenticate(ctx); err != nil {
		return err
	}
	logger.Info("Authentication successful.")
	return nil
}

func (r *Runner) prepareProfile(
	ctx context.Context, rep *Report, logger logrus.FieldLogger, res *resources, opts Options,
) error {
	rep.stage = StateProfileReady
	if opts.ProfileID != "" {
		res.profile = profileHandle{id: opts.ProfileID}
		logger.Infof("Using existing profile: %s", opts.ProfileID)
	} else if pm, ok := r.Client.(cloud.ProfileManager); ok {
		logger.Info("Creating quick browser profile...")
		id, err := pm.CreateProfile(ctx, opts.Profile)
		if err != nil {
			return err
		}
		res.profile = profileHandle{id: id, owned: true}
		logger.Infof("Profile created: %s", id)
	}

	rep.ProfileID = res.profile.id
	rep.ProfileOwned = res.profile.owned
	rep.enter(StateProfileReady)
	return nil
}

// cleanup runs on a fresh context so a cancelled run still releases the
// cloud browser. Every failure becomes a warning.
func (r *Runner) cleanup(rep *Report, logger logrus.FieldLogger, res *resources, opts Options) {
	rep.enter(StateCleanup)

	ctx, cancel := context.WithTimeout(context.Background(), r.cleanupTimeout())
	defer cancel()

	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		rep.CleanupWarnings = append(rep.CleanupWarnings, msg)
		logger.Warn(msg)
	}

	if res.driver != nil {
		logger.Info("Closing browser...")
		if err := res.driver.Quit(); err != nil {
			warn("Could not close browser: %v", err)
		}
	}

	if res.session != nil {
		logger.Info("Stopping cloud browser...")
		ok, err := r.Client.StopSession(ctx, res.session)
		switch {
		case err != nil:
			warn("Could not stop session: %v", err)
		case !ok:
			warn("Session stop for profile %s was not acknowledged", res.session.ProfileID)
		}
	}

	pm, ok := r.Client.(cloud.ProfileManager)
	if !ok || res.profile.id == "" {
		return
	}

	deleteProfile := (res.profile.owned && !opts.KeepProfile) || opts.ForceDelete
	if !deleteProfile {
		if res.profile.owned {
			logger.Infof("Keeping profile %s.", res.profile.id)
		}
		return
	}

	logger.Infof("Deleting profile %s...", res.profile.id)
	deleted, err := pm.DeleteProfile(ctx, res.profile.id)
	switch {
	case err != nil:
		warn("Could not delete profile: %v", err)
	case !deleted:
		warn("Profile %s was not deleted", res.profile.id)
	}
}

func (r *Runner) record(rep *Report, runErr error, logger logrus.FieldLogger) {
	if r.Recorder == nil {
		return
	}

	rec := &types.RunRecord{
		ID:           rep.RunID,
		Vendor:       strings.ToLower(rep.Vendor),
		Flow:         rep.Flow,
		ProfileID:    rep.ProfileID,
		ProfileOwned: rep.ProfileOwned,
		Endpoint:     rep.Endpoint,
		Outcome:      types.OutcomeSuccess,
		StartedAt:    rep.StartedAt,
		FinishedAt:   rep.FinishedAt,
	}
	if rep.Result != nil {
		rec.FinalURL = rep.Result.FinalURL
		rec.Title = rep.Result.Title
		rec.Screenshots = rep.Result.Screenshots
	}
	if runErr != nil {
		rec.Outcome = types.OutcomeFailure
		rec.FailedStage = string(rep.FailedStage)
		rec.Error = runErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Recorder.SaveRun(ctx, rec); err != nil {
		logger.WithError(err).Warn("Could not record run in history")
	}
}

// startOutcomeUnknown reports errors after which the start request may have
// reached the vendor: transport failures, cancellation and timeouts.
func startOutcomeUnknown(err error) bool {
	var connErr *cloud.ConnectionError
	return errors.As(err, &connErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func exitCodeFor(stage State, err error) exitcodes.ExitCode {
	var authErr *cloud.AuthError
	if errors.As(err, &authErr) {
		return exitcodes.AuthFailed
	}
	return stage.exitCode()
}

func (r *Runner) cleanupTimeout() time.Duration {
	if r.CleanupTimeout > 0 {
		return r.CleanupTimeout
	}
	return defaultCleanupTimeout
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Runner) id() string {
	if r.newID != nil {
		return r.newID()
	}
	return uuid.NewString()
}
