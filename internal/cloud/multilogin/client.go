// Package multilogin talks to the Multilogin X launcher and sign-in API.
package multilogin

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
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

	// MissingCredentialsMessage is the message of the AuthError returned by
	// Authenticate when no credentials are configured.
	MissingCredentialsMessage = "MULTILOGIN_USERNAME and MULTILOGIN_PASSWORD must be configured."
)

// Client is a Multilogin X client. After Authenticate succeeds the bearer token
// is attached to every request.
type Client struct {
	launcherURL  string
	seleniumHost string
	signinURL    string
	username     string
	password     string
	bearerToken  string
	api          *cloud.API
}

var (
	_ cloud.SessionClient = (*Client)(nil)
	_ cloud.Authenticator = (*Client)(nil)
)

// New creates a Multilogin client. Credentials may be empty; quick profiles
// are then started anonymously. httpClient may be nil.
func New(launcherURL, seleniumHost, signinURL, username, password string, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	return &Client{
		launcherURL:  strings.TrimRight(launcherURL, "/"),
		seleniumHost: seleniumHost,
		signinURL:    signinURL,
		username:     username,
		password:     password,
		api:          cloud.NewAPI(httpClient, logger.WithField("vendor", "multilogin")),
	}
}

// HasCredentials reports whether both username and password are configured.
func (c *Client) HasCredentials() bool {
	return c.username != "" && c.password != ""
}

// Token returns the cached bearer token, empty before Authenticate.
func (c *Client) Token() string {
	return c.bearerToken
}

// HashPassword returns the MD5 hex digest the sign-in endpoint expects instead
// of the plaintext password.
func HashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Authenticate signs in and caches the bearer token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if !c.HasCredentials() {
		return "", &cloud.AuthError{Message: MissingCredentialsMessage}
	}

	resp, err := c.api.Do(ctx, cloud.Request{
		Op:     "sign in",
		Method: http.MethodPost,
		URL:    c.signinURL,
		Body: map[string]string{
			"email":    c.username,
			"password": HashPassword(c.password),
		},
	})
	if err != nil {
		return "", err
	}

	if !resp.Successful() {
		return "", &cloud.AuthError{Message: "Multilogin authentication failed: " + resp.Text()}
	}

	token := resp.Get("data.token").String()
	if token == "" {
		return "", &cloud.RemoteAPIError{Op: "No token in authentication response", Body: resp.Text()}
	}

	c.bearerToken = token
	return token, nil
}

// quickProfileRequest is the body of POST /api/v3/profile/quick.
type quickProfileRequest struct {
	BrowserType string            `json:"browser_type"`
	OSType      string            `json:"os_type"`
	Automation  string            `json:"automation"`
	IsHeadless  bool              `json:"is_headless"`
	Parameters  profileParameters `json:"parameters"`
}

type profileParameters struct {
	Flags       map[string]string `json:"flags"`
	Fingerprint struct{}          `json:"fingerprint"`
}

// maskingFlags is the fixed fingerprint-masking block sent with every quick profile.
func maskingFlags() map[string]string {
	return map[string]string{
		"audio_masking":         "natural",
		"fonts_masking":         "mask",
		"geolocation_masking":   "mask",
		"geolocation_popup":     "block",
		"graphics_masking":      "mask",
		"graphics_noise":        "mask",
		"localization_masking":  "mask",
		"media_devices_masking": "natural",
		"navigator_masking":     "mask",
		"ports_masking":         "mask",
		"proxy_masking":         "disabled",
		"screen_masking":        "mask",
		"timezone_masking":      "mask",
		"webrtc_masking":        "mask",
	}
}

// ErrSavedProfilesUnsupported is returned when a caller asks to start an existing profile.
var ErrSavedProfilesUnsupported = errors.New("multilogin: only quick profiles can be started")

// StartSession starts a disposable quick profile with Selenium automation enabled.
func (c *Client) StartSession(ctx context.Context, opts cloud.SessionOptions) (*cloud.Session, error) {
	if opts.ProfileID != "" {
		return nil, ErrSavedProfilesUnsupported
	}

	browserType := opts.BrowserType
	if browserType == "" {
		browserType = "mimic"
	}
	osType := opts.OS
	if osType == "" {
		osType = "linux"
	}

	resp, err := c.api.Do(ctx, cloud.Request{
		Op:     "start quick profile",
		Method: http.MethodPost,
		URL:    c.launcherURL + "/api/v3/profile/quick",
		Token:  c.bearerToken,
		Body: quickProfileRequest{
			BrowserType: browserType,
			OSType:      osType,
			Automation:  "selenium",
			IsHeadless:  opts.Headless,
			Parameters:  profileParameters{Flags: maskingFlags()},
		},
		Timeout: startTimeout,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Successful() {
		return nil, &cloud.RemoteAPIError{Op: "Failed to start quick profile", StatusCode: resp.StatusCode, Body: resp.Text()}
	}

	data := resp.Get("data")
	port := data.Get("port")
	if !data.IsObject() || !port.Exists() || port.String() == "" {
		return nil, &cloud.RemoteAPIError{Op: "Unexpected response from quick profile", Body: resp.Text()}
	}

	return &cloud.Session{
		ProfileID:   data.Get("id").String(),
		Endpoint:    c.SeleniumURL(port.String()),
		BrowserType: data.Get("browser_type").String(),
		CoreVersion: int(data.Get("core_version").Int()),
		Quick:       data.Get("is_quick").Bool(),
	}, nil
}

// StopSession stops a running profile. Quick profiles are discarded by the launcher on stop.
func (c *Client) StopSession(ctx context.Context, sess *cloud.Session) (bool, error) {
	resp, err := c.api.Do(ctx, cloud.Request{
		Op:      "stop profile",
		Method:  http.MethodGet,
		URL:     c.launcherURL + "/api/v1/profile/stop",
		Query:   url.Values{"profileId": {sess.ProfileID}},
		Token:   c.bearerToken,
		Timeout: stopTimeout,
	})
	if err != nil {
		return false, err
	}

	return resp.Successful(), nil
}

// SeleniumURL builds the WebDriver address for a launcher-assigned port.
func (c *Client) SeleniumURL(port string) string {
	return fmt.Sprintf("http://%s:%s", c.seleniumHost, port)
}
