package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
)

// CDP drives a remote browser over the Chrome DevTools Protocol.
type CDP struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
}

var _ Driver = (*CDP)(nil)

// ConnectCDP attaches to the browser behind a websocket or http DevTools
// endpoint. timeout bounds connecting and every later action.
func ConnectCDP(ctx context.Context, endpoint string, timeout time.Duration) (*CDP, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), endpoint, RemoteAllocatorOptions(endpoint)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	d := &CDP{ctx: browserCtx, cancel: cancel, cancelAlloc: cancelAlloc, timeout: timeout}

	// The first Run allocates the browser connection on browserCtx itself, so it
	// is bounded from outside instead of through a derived context.
	done := make(chan error, 1)
	go func() {
		var title string
		done <- chromedp.Run(browserCtx, chromedp.Title(&title))
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			d.close()
			return nil, fmt.Errorf("failed to connect to cloud browser: %w", err)
		}
		return d, nil
	case <-timer.C:
		d.close()
		<-done
		return nil, fmt.Errorf("failed to connect to cloud browser: no response within %s", timeout)
	case <-ctx.Done():
		d.close()
		<-done
		return nil, ctx.Err()
	}
}

// CDPFactory connects the CDP driver straight to the session endpoint.
func CDPFactory(timeout time.Duration) Factory {
	return func(ctx context.Context, sess *cloud.Session) (Driver, error) {
		return ConnectCDP(ctx, sess.Endpoint, timeout)
	}
}

// run executes actions bounded by the driver timeout and the caller's ctx.
func (d *CDP) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (d *CDP) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *CDP) FindElement(ctx context.Context, css string) (Element, error) {
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(css, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, ErrNoSuchElement
	}
	return &cdpElement{d: d, id: nodes[0].NodeID}, nil
}

func (d *CDP) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *CDP) CurrentURL(ctx context.Context) (string, error) {
	var u string
	err := d.run(ctx, chromedp.Location(&u))
	return u, err
}

func (d *CDP) Title(ctx context.Context) (string, error) {
	var title string
	err := d.run(ctx, chromedp.Title(&title))
	return title, err
}

// Quit closes the tab and the websocket connection. The cloud session itself
// is stopped through the vendor API.
func (d *CDP) Quit() error {
	err := chromedp.Cancel(d.ctx)
	d.close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *CDP) close() {
	d.cancel()
	d.cancelAlloc()
}

type cdpElement struct {
	d  *CDP
	id cdp.NodeID
}

func (e *cdpElement) Clear(ctx context.Context) error {
	return e.d.run(ctx, chromedp.Clear([]cdp.NodeID{e.id}, chromedp.ByNodeID))
}

func (e *cdpElement) SendKeys(ctx context.Context, text string) error {
	return e.d.run(ctx, chromedp.SendKeys([]cdp.NodeID{e.id}, text, chromedp.ByNodeID))
}

func (e *cdpElement) Click(ctx context.Context) error {
	return e.d.run(ctx, chromedp.Click([]cdp.NodeID{e.id}, chromedp.ByNodeID))
}
