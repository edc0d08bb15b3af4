// Package browser attaches automation drivers to cloud browser sessions.
package browser

import (
	"net"
	"net/url"
	"strconv"

	"github.com/chromedp/chromedp"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// DebuggerAddress extracts host:port from a cloud browser websocket URL. The
// port defaults to 443 for wss and 80 otherwise.
func DebuggerAddress(wsURL string) string {
	host := "localhost"
	port := ""
	scheme := ""

	if u, err := url.Parse(wsURL); err == nil {
		scheme = u.Scheme
		if h := u.Hostname(); h != "" {
			host = h
		}
		port = u.Port()
	}

	if port == "" {
		if scheme == "wss" {
			port = strconv.Itoa(443)
		} else {
			port = strconv.Itoa(80)
		}
	}

	return net.JoinHostPort(host, port)
}

// Capabilities returns plain Chrome capabilities. A non-empty debuggerAddr makes
// the driver attach to an already running browser instead of launching one.
func Capabilities(debuggerAddr string) selenium.Capabilities {
	caps := selenium.Capabilities{"browserName": "chrome"}
	if debuggerAddr != "" {
		caps.AddChrome(chrome.Capabilities{DebuggerAddr: debuggerAddr})
	}
	return caps
}

// RemoteAllocatorOptions keeps a websocket endpoint as given, since a cloud
// connect URL carries the auth token in its query. An http DevTools address is
// left for chromedp to resolve through /json/version.
func RemoteAllocatorOptions(endpoint string) []chromedp.RemoteAllocatorOption {
	if u, err := url.Parse(endpoint); err == nil && (u.Scheme == "ws" || u.Scheme == "wss") {
		return []chromedp.RemoteAllocatorOption{chromedp.NoModifyURL}
	}
	return nil
}
