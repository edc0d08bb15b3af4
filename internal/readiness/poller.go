package readiness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
)

// Check reports once whether the session endpoint accepts connections.
type Check func(ctx context.Context, endpoint string) error

// Poller retries a Check with exponential backoff until it succeeds or Timeout
// passes. A timeout is logged and the run continues: the driver connect that
// follows reports the real failure.
type Poller struct {
	Check        Check
	Interval     time.Duration
	Timeout      time.Duration
	CheckTimeout time.Duration
	Logger       logrus.FieldLogger
}

func (p *Poller) Wait(ctx context.Context, sess *cloud.Session) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Interval
	b.MaxInterval = 4 * p.Interval
	b.MaxElapsedTime = p.Timeout

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		checkCtx, cancel := context.WithTimeout(ctx, p.checkTimeout())
		defer cancel()

		err := p.Check(checkCtx, sess.Endpoint)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}, backoff.WithContext(b, ctx))

	switch {
	case err == nil:
		p.Logger.WithField("attempts", attempts).Debug("Cloud browser is ready")
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		p.Logger.WithError(err).Warnf("Cloud browser not confirmed ready after %s, connecting anyway", p.Timeout)
		return nil
	}
}

func (p *Poller) checkTimeout() time.Duration {
	if p.CheckTimeout > 0 {
		return p.CheckTimeout
	}
	return 5 * time.Second
}

// WebSocketCheck dials the endpoint and closes the connection right away.
func WebSocketCheck(dialer *websocket.Dialer) Check {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return func(ctx context.Context, endpoint string) error {
		conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if resp != nil {
				return fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
			}
			return err
		}
		return conn.Close()
	}
}

// HTTPStatusCheck requests {endpoint}/status, which WebDriver servers answer once up.
func HTTPStatusCheck(client *http.Client) Check {
	return func(ctx context.Context, endpoint string) error {
		resp, _, err := get(ctx, client, strings.TrimRight(endpoint, "/")+"/status")
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return errors.New(resp.Status)
		}
		return nil
	}
}

// DevToolsCheck requests {endpoint}/json/version and waits until the browser
// reports its websocket debugger URL.
func DevToolsCheck(client *http.Client) Check {
	return func(ctx context.Context, endpoint string) error {
		resp, body, err := get(ctx, client, strings.TrimRight(endpoint, "/")+"/json/version")
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return errors.New(resp.Status)
		}
		if gjson.GetBytes(body, "webSocketDebuggerUrl").String() == "" {
			return errors.New("browser has not published a debugger URL yet")
		}
		return nil
	}
}

func get(ctx context.Context, client *http.Client, target string) (*http.Response, []byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, backoff.Permanent(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}
