package automation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
	"github.com/kornev-zhora/anti-detect-browsing/internal/types"
)

// Login fills and submits the scrapingcourse.com CSRF login form.
type Login struct {
	shots  ScreenshotSink
	timing Timing
	logger logrus.FieldLogger

	URL      string
	Email    string
	Password string
}

// NewLogin creates the login flow with the demo credentials.
func NewLogin(shots ScreenshotSink, timing Timing, logger logrus.FieldLogger) *Login {
	return &Login{
		shots:    shots,
		timing:   timing,
		logger:   logger.WithField("flow", "login"),
		URL:      LoginURL,
		Email:    DemoEmail,
		Password: DemoPassword,
	}
}

func (l *Login) Name() string { return "login" }

// Run performs the login. The result carries the screenshots taken so far even
// when an error is returned.
func (l *Login) Run(ctx context.Context, d browser.Driver) (*types.Result, error) {
	p := &page{d: d, shots: l.shots, timing: l.timing, logger: l.logger}

	if err := p.open(ctx, l.URL); err != nil {
		return &p.result, err
	}
	if err := p.waitFor(ctx, anyOf(EmailSelectors)); err != nil {
		return &p.result, err
	}
	if err := p.capture(ctx, "01_login_page"); err != nil {
		return &p.result, err
	}
	l.logger.Info("Login page loaded.")

	if err := p.fill(ctx, "email input field", EmailSelectors, l.Email); err != nil {
		return &p.result, err
	}
	if err := p.fill(ctx, "password input field", PasswordSelectors, l.Password); err != nil {
		return &p.result, err
	}
	if err := p.capture(ctx, "02_credentials_filled"); err != nil {
		return &p.result, err
	}
	l.logger.Info("Credentials entered.")

	submit, err := p.find(ctx, "submit button", SubmitSelectors)
	if err != nil {
		return &p.result, err
	}
	if err := submit.Click(ctx); err != nil {
		return &p.result, fmt.Errorf("failed to click submit button: %w", err)
	}
	l.logger.Info("Form submitted. Waiting for response...")

	if err := p.sleep(ctx, l.timing.SubmitDelay); err != nil {
		return &p.result, err
	}

	if err := p.capture(ctx, "03_after_login"); err != nil {
		return &p.result, err
	}

	res, err := p.finish(ctx)
	if err != nil {
		return res, err
	}
	l.logger.Infof("Current URL after login: %s", res.FinalURL)
	l.logger.Infof("Page title: %s", res.Title)

	return res, nil
}
