// Package gologin talks to the GoLogin cloud browser API.
package gologin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
)

const (
	startTimeout = 120 * time.Second
	stopTimeout  = 30 * time.Second

	// MissingTokenMessage is the message of the AuthError returned when no dev token is configured.
	MissingTokenMessage = "GOLOGIN_TOKEN must be configured."
)

// Client is a GoLogin API client authenticated with a static dev token.
type Client struct {
	apiURL          string
	cloudBrowserURL string
	token           string
	api             *cloud.API
	now             func() time.Time
}

var (
	_ cloud.SessionClient  = (*Client)(nil)
	_ cloud.ProfileManager = (*Client)(nil)
)

// New creates a GoLogin client. httpClient may be nil.
func New(apiURL, cloudBrowserURL, token string, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	return &Client{
		apiURL:          strings.TrimRight(apiURL, "/"),
		cloudBrowserURL: strings.TrimRight(cloudBrowserURL, "/"),
		token:           token,
		api:             cloud.NewAPI(httpClient, logger.WithField("vendor", "gologin")),
		now:             time.Now,
	}
}

// request fails with an AuthError before anything is sent when the token is missing.
func (c *Client) request(ctx context.Context, r cloud.Request) (*cloud.Response, error) {
	if c.token == "" {
		return nil, &cloud.AuthError{Message: MissingTokenMessage}
	}
	r.Token = c.token
	return c.api.Do(ctx, r)
}

// CreateProfile creates a quick profile with a random fingerprint and returns its ID.
func (c *Client) CreateProfile(ctx context.Context, opts cloud.ProfileOptions) (string, error) {
	name := opts.Name
	if name == "" {
		name = "Profile " + c.now().Format("2006-01-02 15:04:05")
	}
	osType := opts.OS
	if osType == "" {
		osType = "win"
	}

	resp, err := c.request(ctx, cloud.Request{
		Op:     "create quick profile",
		Method: http.MethodPost,
		URL:    c.apiURL + "/browser/quick",
		Body:   map[string]string{"name": name, "os": osType},
	})
	if err != nil {
		return "", err
	}

	if !resp.Successful() {
		return "", &cloud.RemoteAPIError{Op: "Failed to create quick profile", StatusCode: resp.StatusCode, Body: resp.Text()}
	}

	id := resp.Get("id").String()
	if id == "" {
		return "", &cloud.RemoteAPIError{Op: "No profile ID in response", Body: resp.Text()}
	}

	return id, nil
}

// StartSession starts the profile in the GoLogin cloud. Without a profile ID no
// API call is made: the bare connect URL makes GoLogin launch a temporary profile.
func (c *Client) StartSession(ctx context.Context, opts cloud.SessionOptions) (*cloud.Session, error) {
	if c.token == "" {
		return nil, &cloud.AuthError{Message: MissingTokenMessage}
	}
	if opts.ProfileID == "" {
		return &cloud.Session{Endpoint: c.ConnectURL("")}, nil
	}

	resp, err := c.request(ctx, cloud.Request{
		Op:      "start cloud profile",
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/browser/%s/web", c.apiURL, url.PathEscape(opts.ProfileID)),
		Timeout: startTimeout,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Successful() {
		return nil, &cloud.RemoteAPIError{Op: "Failed to start cloud profile", StatusCode: resp.StatusCode, Body: resp.Text()}
	}

	endpoint := resp.Get("wsUrl").String()
	if endpoint == "" {
		endpoint = c.ConnectURL(opts.ProfileID)
	}

	return &cloud.Session{ProfileID: opts.ProfileID, Endpoint: endpoint}, nil
}

// StopSession stops a running cloud profile.
func (c *Client) StopSession(ctx context.Context, sess *cloud.Session) (bool, error) {
	if sess.ProfileID == "" {
		// Temporary connect-URL sessions end when the browser connection closes.
		return true, nil
	}

	resp, err := c.request(ctx, cloud.Request{
		Op:      "stop cloud profile",
		Method:  http.MethodDelete,
		URL:     fmt.Sprintf("%s/browser/%s/web", c.apiURL, url.PathEscape(sess.ProfileID)),
		Timeout: stopTimeout,
	})
	if err != nil {
		return false, err
	}

	return resp.Successful(), nil
}

// DeleteProfile deletes a profile. Deleting an already deleted profile reports
// false without an error.
func (c *Client) DeleteProfile(ctx context.Context, profileID string) (bool, error) {
	resp, err := c.request(ctx, cloud.Request{
		Op:      "delete profile",
		Method:  http.MethodDelete,
		URL:     c.apiURL + "/browser",
		Body:    map[string][]string{"ids": {profileID}},
		Timeout: stopTimeout,
	})
	if err != nil {
		return false, err
	}

	return resp.Successful(), nil
}

// GetProfile returns the raw profile document.
func (c *Client) GetProfile(ctx context.Context, profileID string) (json.RawMessage, error) {
	resp, err := c.request(ctx, cloud.Request{
		Op:     "get profile",
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/browser/%s", c.apiURL, url.PathEscape(profileID)),
	})
	if err != nil {
		return nil, err
	}

	if !resp.Successful() {
		return nil, &cloud.RemoteAPIError{Op: "Failed to get profile", StatusCode: resp.StatusCode, Body: resp.Text()}
	}
	if !json.Valid(resp.Body) {
		return nil, &cloud.RemoteAPIError{Op: "Malformed profile response", Body: resp.Text()}
	}

	return json.RawMessage(resp.Body), nil
}

// ConnectURL builds the cloud browser connect URL, optionally pinned to a
// profile. Token and profile ID are written as issued, without query escaping.
func (c *Client) ConnectURL(profileID string) string {
	u := c.cloudBrowserURL + "/connect?token=" + c.token
	if profileID != "" {
		u += "&profile=" + profileID
	}
	return u
}
