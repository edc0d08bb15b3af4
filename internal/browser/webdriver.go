package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tebeka/selenium"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
)

// WebDriver drives a browser over the W3C WebDriver protocol. Calls are not
// cancellable mid-flight; ctx is checked before each one and the HTTP client
// timeout bounds the rest.
type WebDriver struct {
	wd selenium.WebDriver
}

var _ Driver = (*WebDriver)(nil)

// ConnectWebDriver opens a session on executor. timeout bounds connecting and
// every later request.
func ConnectWebDriver(ctx context.Context, executor string, caps selenium.Capabilities, timeout time.Duration) (*WebDriver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selenium.HTTPClient = &http.Client{Timeout: timeout}

	wd, err := selenium.NewRemote(caps, executor)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to WebDriver at %s: %w", executor, err)
	}

	return &WebDriver{wd: wd}, nil
}

// DebuggerWebDriver attaches to an already running browser through the debugger
// address of the session endpoint. The executor is executorURL when set, the
// session endpoint otherwise.
func DebuggerWebDriver(executorURL string, timeout time.Duration) Factory {
	return func(ctx context.Context, sess *cloud.Session) (Driver, error) {
		executor := executorURL
		if executor == "" {
			executor = sess.Endpoint
		}
		return ConnectWebDriver(ctx, executor, Capabilities(DebuggerAddress(sess.Endpoint)), timeout)
	}
}

// MultiloginWebDriver connects to the Selenium endpoint the launcher opened for the profile.
func MultiloginWebDriver(timeout time.Duration) Factory {
	return func(ctx context.Context, sess *cloud.Session) (Driver, error) {
		return ConnectWebDriver(ctx, sess.Endpoint, Capabilities(""), timeout)
	}
}

func (d *WebDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.wd.Get(url)
}

func (d *WebDriver) FindElement(ctx context.Context, css string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	el, err := d.wd.FindElement(selenium.ByCSSSelector, css)
	if err != nil {
		if isNoSuchElement(err) {
			return nil, ErrNoSuchElement
		}
		return nil, err
	}

	return &webElement{el: el}, nil
}

func (d *WebDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.wd.Screenshot()
}

func (d *WebDriver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.wd.CurrentURL()
}

func (d *WebDriver) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.wd.Title()
}

// Quit ends the WebDriver session.
func (d *WebDriver) Quit() error {
	return d.wd.Quit()
}

type webElement struct {
	el selenium.WebElement
}

func (e *webElement) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Clear()
}

func (e *webElement) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.SendKeys(text)
}

func (e *webElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.el.Click()
}

// isNoSuchElement matches the W3C error name. Legacy status 7 is reported
// under the same name.
func isNoSuchElement(err error) bool {
	var se *selenium.Error
	return errors.As(err, &se) && se.Err == "no such element"
}
