package browser

import (
	"context"
	"errors"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
)

// ErrNoSuchElement is returned by FindElement when nothing matches the selector.
var ErrNoSuchElement = errors.New("no such element")

// Driver is the subset of a remote browser session the automation flows use.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// FindElement returns the first element matching a CSS selector or ErrNoSuchElement.
	FindElement(ctx context.Context, css string) (Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Quit() error
}

// Element is a located DOM element.
type Element interface {
	Clear(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Click(ctx context.Context) error
}

// Factory attaches a Driver to a started vendor session.
type Factory func(ctx context.Context, sess *cloud.Session) (Driver, error)
