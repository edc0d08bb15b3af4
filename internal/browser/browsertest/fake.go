// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/kornev-zhora/anti-detect-browsing/internal/browser"
)

// Driver is a scriptable fake. Selectors listed in Present resolve to elements;
// every interaction is appended to Calls.
type Driver struct {
	mu sync.Mutex

	// Present maps CSS selectors to whether they match an element.
	Present map[string]bool
	// AppearAfter makes a selector match only from the n-th lookup on.
	AppearAfter map[string]int
	// URLAfterClick replaces the current URL when any element is clicked.
	URLAfterClick string
	PageTitle     string
	PNG           []byte

	NavigateErr   error
	ScreenshotErr error
	QuitErr       error

	Calls   []string
	url     string
	lookups map[string]int
	quits   int
}

var _ browser.Driver = (*Driver)(nil)

// New returns a fake where the given selectors are present.
func New(present ...string) *Driver {
	d := &Driver{Present: map[string]bool{}, PNG: []byte("\x89PNG")}
	for _, sel := range present {
		d.Present[sel] = true
	}
	return d
}

func (d *Driver) record(format string, args ...interface{}) {
	d.Calls = append(d.Calls, fmt.Sprintf(format, args...))
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("navigate %s", url)
	if d.NavigateErr != nil {
		return d.NavigateErr
	}
	d.url = url
	return nil
}

func (d *Driver) FindElement(ctx context.Context, css string) (browser.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.lookups == nil {
		d.lookups = map[string]int{}
	}
	d.lookups[css]++

	if !d.Present[css] {
		return nil, browser.ErrNoSuchElement
	}
	if n, ok := d.AppearAfter[css]; ok && d.lookups[css] < n {
		return nil, browser.ErrNoSuchElement
	}
	return &element{d: d, css: css}, nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("screenshot")
	return d.PNG, d.ScreenshotErr
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.PageTitle, nil
}

func (d *Driver) Quit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("quit")
	d.quits++
	return d.QuitErr
}

// Quits reports how often Quit was called.
func (d *Driver) Quits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

// Lookups reports how often a selector was looked up.
func (d *Driver) Lookups(css string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookups[css]
}

type element struct {
	d   *Driver
	css string
}

func (e *element) Clear(ctx context.Context) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.record("clear %s", e.css)
	return nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.record("type %s %s", e.css, text)
	return nil
}

func (e *element) Click(ctx context.Context) error {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.record("click %s", e.css)
	if e.d.URLAfterClick != "" {
		e.d.url = e.d.URLAfterClick
	}
	return nil
}
