// Package octo talks to the Octo Browser local API.
package octo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
)

const (
	loginTimeout = 15 * time.Second
	startTimeout = 120 * time.Second
	stopTimeout  = 30 * time.Second

	// MissingCredentialsMessage is the message of the AuthError returned when
	// email or password is not configured.
	MissingCredentialsMessage = "OCTO_EMAIL and OCTO_PASSWORD must be configured."

	startPage = "https://www.whatismybrowser.com/"
)

// Client is an Octo Browser client. Every call except login carries the bearer
// token returned by Authenticate.
type Client struct {
	apiURL    string
	email     string
	password  string
	debugHost string
	token     string
	api       *cloud.API
	now       func() time.Time
}

var (
	_ cloud.SessionClient       = (*Client)(nil)
	_ cloud.ProfileManager      = (*Client)(nil)
	_ cloud.Authenticator       = (*Client)(nil)
	_ cloud.CredentialsRequired = (*Client)(nil)
)

// New creates an Octo client. debugHost is the host the started browser's
// DevTools port is reachable on. httpClient may be nil.
func New(apiURL, email, password, debugHost string, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if debugHost == "" {
		debugHost = "localhost"
	}
	return &Client{
		apiURL:    strings.TrimRight(apiURL, "/"),
		email:     email,
		password:  password,
		debugHost: debugHost,
		api:       cloud.NewAPI(httpClient, logger.WithField("vendor", "octo")),
		now:       time.Now,
	}
}

// HasCredentials reports whether both email and password are configured.
func (c *Client) HasCredentials() bool {
	return c.email != "" && c.password != ""
}

// CredentialsRequired is always true: the local API rejects anonymous calls.
func (c *Client) CredentialsRequired() bool {
	return true
}

// Token returns the cached bearer token, empty before Authenticate.
func (c *Client) Token() string {
	return c.token
}

// Authenticate logs in and caches the bearer token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if !c.HasCredentials() {
		return "", &cloud.AuthError{Message: MissingCredentialsMessage}
	}

	resp, err := c.api.Do(ctx, cloud.Request{
		Op:      "log in",
		Method:  http.MethodPost,
		URL:     c.apiURL + "/api/v1/auth/login",
		Body:    map[string]string{"email": c.email, "password": c.password},
		Timeout: loginTimeout,
	})
	if err != nil {
		return "", err
	}

	if !resp.Successful() {
		return "", &cloud.AuthError{Message: "Octo authentication failed: " + resp.Text()}
	}

	token := resp.Get("token").String()
	if token == "" {
		return "", &cloud.RemoteAPIError{Op: "No token in authentication response", Body: resp.Text()}
	}

	c.token = token
	return token, nil
}

type screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type fingerprint struct {
	OS     string `json:"os"`
	Screen screen `json:"screen"`
}

// createProfileRequest is the body of POST /api/v1/profiles.
type createProfileRequest struct {
	Title       string      `json:"title"`
	Tags        []string    `json:"tags"`
	StartPage   string      `json:"start_page"`
	Fingerprint fingerprint `json:"fingerprint"`
}

// CreateProfile creates a saved profile and returns its UUID.
func (c *Client) CreateProfile(ctx context.Context, opts cloud.ProfileOptions) (string, error) {
	title := opts.Name
	if title == "" {
		title = "Profile " + c.now().Format("2006-01-02 15:04:05")
	}
	osType := opts.OS
	if osType == "" {
		osType = "win"
	}

	resp, err := c.api.Do(ctx, cloud.Request{
		Op:     "create profile",
		Method: http.MethodPost,
		URL:    c.apiURL + "/api/v1/profiles",
		Token:  c.token,
		Body: createProfileRequest{
			Title:       title,
			Tags:        []string{"automation", "selenium"},
			StartPage:   startPage,
			Fingerprint: fingerprint{OS: osType, Screen: screen{Width: 1920, Height: 1080}},
		},
	})
	if err != nil {
		return "", err
	}

	if !resp.Successful() {
		return "", &cloud.RemoteAPIError{Op: "Failed to create profile", StatusCode: resp.StatusCode, Body: resp.Text()}
	}

	id := resp.Get("uuid").String()
	if id == "" {
		return "", &cloud.RemoteAPIError{Op: "No profile UUID in response", Body: resp.Text()}
	}

	return id, nil
}

// Profile is one entry of the profile list.
type Profile struct {
	UUID  string
	Title string
	Tags  []string
}

// ListProfiles returns the profiles visible to the logged-in account. The
// list may be a bare array or wrapped in a "data" field.
func (c *Client) ListProfiles(ctx context.Context) ([]Profile, error) {
	resp, err := c.api.Do(ctx, cloud.Request{
		Op:     "list profiles",
		Method: http.MethodGet,
		URL:    c.apiURL + "/api/v1/profiles",
		Token:  c.token,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Successful() {
		return nil, &cloud.RemoteAPIError{Op: "Failed to list profiles", StatusCode: resp.StatusCode, Body: resp.Text()}
	}

	list := gjson.ParseBytes(resp.Body)
	if !list.IsArray() {
		list = resp.Get("data")
	}
	if !list.IsArray() {
		return nil, &cloud.RemoteAPIError{Op: "Malformed profile list", Body: resp.Text()}
	}

	var profiles []Profile
	list.ForEach(func(_, v gjson.Result) bool {
		p := Profile{UUID: v.Get("uuid").String(), Title: v.Get("title").String()}
		for _, tag := range v.Get("tags").Array() {
			p.Tags = append(p.Tags, tag.String())
		}
		profiles = append(profiles, p)
		return true
	})
	return profiles, nil
}

// ErrProfileRequired is returned when StartSession is called without a profile UUID.
var ErrProfileRequired = errors.New("octo: a profile UUID is required to start a browser")

// StartSession starts a saved profile with its DevTools port exposed.
func (c *Client) StartSession(ctx context.Context, opts cloud.SessionOptions) (*cloud.Session, error) {
	if opts.ProfileID == "" {
		return nil, ErrProfileRequired
	}

	resp, err := c.api.Do(ctx, cloud.Request{
		Op:     "start profile",
		Method: http.MethodPost,
		URL:    c.apiURL + "/api/v1/profiles/start",
		Token:  c.token,
		Body: map[string]interface{}{
			"uuid":       opts.ProfileID,
			"headless":   opts.Headless,
			"debug_port": true,
		},
		Timeout: startTimeout,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Successful() {
		return nil, &cloud.RemoteAPIError{Op: "Failed to start profile", StatusCode: resp.StatusCode, Body: resp.Text()}
	}

	port := resp.Get("debug_port")
	if !validPort(port) {
		port = resp.Get("automation.port")
	}
	if !validPort(port) {
		return nil, &cloud.RemoteAPIError{Op: "Debug port not returned", Body: resp.Text()}
	}

	return &cloud.Session{
		ProfileID: opts.ProfileID,
		Endpoint:  c.DebuggerURL(port.String()),
	}, nil
}

// validPort rejects a missing port and the boolean echo of the start request.
func validPort(v gjson.Result) bool {
	switch v.Type {
	case gjson.Number:
		return v.Int() > 0
	case gjson.String:
		return v.String() != ""
	default:
		return false
	}
}

// StopSession stops a running profile.
func (c *Client) StopSession(ctx context.Context, sess *cloud.Session) (bool, error) {
	resp, err := c.api.Do(ctx, cloud.Request{
		Op:      "stop profile",
		Method:  http.MethodPost,
		URL:     c.apiURL + "/api/v1/profiles/stop",
		Token:   c.token,
		Body:    map[string]string{"uuid": sess.ProfileID},
		Timeout: stopTimeout,
	})
	if err != nil {
		return false, err
	}

	return resp.Successful(), nil
}

// DeleteProfile deletes a saved profile.
func (c *Client) DeleteProfile(ctx context.Context, profileID string) (bool, error) {
	resp, err := c.api.Do(ctx, cloud.Request{
		Op:      "delete profile",
		Method:  http.MethodDelete,
		URL:     c.apiURL + "/api/v1/profiles/" + url.PathEscape(profileID),
		Token:   c.token,
		Timeout: stopTimeout,
	})
	if err != nil {
		return false, err
	}

	return resp.Successful(), nil
}

// DebuggerURL builds the DevTools address for a started browser's port.
func (c *Client) DebuggerURL(port string) string {
	return fmt.Sprintf("http://%s:%s", c.debugHost, port)
}
