// Package automation holds the scripted browser flows run against a cloud
// browser session.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
	"github.com/kornev-zhora/anti-detect-browsing/internal/readiness"
	"github.com/kornev-zhora/anti-detect-browsing/internal/types"
)

// Routine is a scripted flow driven through an attached browser.
type Routine interface {
	Name() string
	Run(ctx context.Context, d browser.Driver) (*types.Result, error)
}

// ScreenshotSink stores a captured PNG under a step name and returns its path.
type ScreenshotSink interface {
	Save(step string, png []byte) (string, error)
}

// Timing holds the waits of a flow.
type Timing struct {
	ElementTimeout time.Duration
	PollInterval   time.Duration
	SubmitDelay    time.Duration
}

// DefaultTiming matches the pace the demo pages need.
func DefaultTiming() Timing {
	return Timing{
		ElementTimeout: 15 * time.Second,
		PollInterval:   500 * time.Millisecond,
		SubmitDelay:    3 * time.Second,
	}
}

// New returns the routine registered under name: "login" or "audit".
func New(name string, shots ScreenshotSink, timing Timing, logger logrus.FieldLogger) (Routine, error) {
	switch name {
	case "", "login":
		return NewLogin(shots, timing, logger), nil
	case "audit":
		return NewAudit(shots, timing, logger), nil
	default:
		return nil, fmt.Errorf("unknown flow %q, expected login or audit", name)
	}
}

// page wraps a driver with the helpers every flow shares.
type page struct {
	d      browser.Driver
	shots  ScreenshotSink
	timing Timing
	logger logrus.FieldLogger
	result types.Result
}

func (p *page) open(ctx context.Context, url string) error {
	p.logger.Infof("Navigating to %s...", url)
	if err := p.d.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// waitFor polls until css matches or the element timeout passes.
func (p *page) waitFor(ctx context.Context, css string) error {
	timeout := time.NewTimer(p.timing.ElementTimeout)
	defer timeout.Stop()
	ticker := time.NewTicker(p.timing.PollInterval)
	defer ticker.Stop()

	for {
		_, err := p.d.FindElement(ctx, css)
		if err == nil {
			return nil
		}
		if !errors.Is(err, browser.ErrNoSuchElement) {
			return err
		}

		select {
		case <-timeout.C:
			return &ElementError{Kind: ElementTimeout, Selectors: []string{css}, Timeout: p.timing.ElementTimeout}
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// find returns the first element matching one of selectors, in order.
func (p *page) find(ctx context.Context, field string, selectors []string) (browser.Element, error) {
	for _, sel := range selectors {
		el, err := p.d.FindElement(ctx, sel)
		if err == nil {
			p.logger.WithField("selector", sel).Debugf("Found %s", field)
			return el, nil
		}
		if !errors.Is(err, browser.ErrNoSuchElement) {
			return nil, err
		}
	}
	return nil, &ElementError{Kind: ElementNotFound, Field: field, Selectors: selectors}
}

func (p *page) fill(ctx context.Context, field string, selectors []string, value string) error {
	el, err := p.find(ctx, field, selectors)
	if err != nil {
		return err
	}
	if err := el.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear %s: %w", field, err)
	}
	if err := el.SendKeys(ctx, value); err != nil {
		return fmt.Errorf("failed to type into %s: %w", field, err)
	}
	return nil
}

func (p *page) capture(ctx context.Context, step string) error {
	png, err := p.d.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to take screenshot %s: %w", step, err)
	}
	path, err := p.shots.Save(step, png)
	if err != nil {
		return err
	}
	p.result.Screenshots = append(p.result.Screenshots, path)
	p.logger.WithField("step", step).Infof("Screenshot saved: %s", path)
	return nil
}

func (p *page) sleep(ctx context.Context, d time.Duration) error {
	return readiness.Sleep(ctx, d)
}

// finish reads where the browser ended up.
func (p *page) finish(ctx context.Context) (*types.Result, error) {
	u, err := p.d.CurrentURL(ctx)
	if err != nil {
		return &p.result, fmt.Errorf("failed to read current URL: %w", err)
	}
	p.result.FinalURL = u

	title, err := p.d.Title(ctx)
	if err != nil {
		return &p.result, fmt.Errorf("failed to read page title: %w", err)
	}
	p.result.Title = title

	return &p.result, nil
}
