package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds a vendor request that does not set its own timeout.
const DefaultTimeout = 30 * time.Second

// Request describes one vendor API call.
type Request struct {
	Op     string
	Method string
	URL    string
	Query  url.Values
	// Token is sent as a bearer credential when non-empty.
	Token   string
	Body    interface{}
	Timeout time.Duration
}

// Response is a fully read vendor response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Successful reports a 2xx status.
func (r *Response) Successful() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Get extracts a value from the JSON body with a gjson path such as "data.token".
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// Text returns the body as a string for error messages.
func (r *Response) Text() string {
	return string(r.Body)
}

// API sends JSON requests to a vendor and reads back the whole response.
type API struct {
	client *http.Client
	logger logrus.FieldLogger
}

// NewAPI creates an API using the given HTTP client, or a default one when nil.
func NewAPI(client *http.Client, logger logrus.FieldLogger) *API {
	if client == nil {
		client = &http.Client{}
	}
	return &API{client: client, logger: logger}
}

// Do performs the request. Transport failures are returned as *ConnectionError;
// HTTP error statuses are not errors here, callers inspect the Response.
func (a *API) Do(ctx context.Context, r Request) (*Response, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := newRequest(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Op, err)
	}

	a.logger.WithFields(logrus.Fields{"method": r.Method, "url": req.URL.Redacted()}).Debug("vendor request")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &ConnectionError{Op: r.Op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Op: r.Op, Err: err}
	}

	a.logger.WithFields(logrus.Fields{"op": r.Op, "status": resp.StatusCode}).Debug("vendor response")

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func newRequest(ctx context.Context, r Request) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	target := r.URL
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}

	return req, nil
}
