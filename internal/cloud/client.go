// Package cloud defines the lifecycle contract shared by the anti-detect
// browser vendors: profile creation, session start/stop, profile deletion and,
// for vendors that need it, credential authentication.
package cloud

import "context"

// Session is a live remote browser bound to a profile.
type Session struct {
	ProfileID string
	// Endpoint is a WebSocket URL (GoLogin), an http://host:port WebDriver
	// address (Multilogin) or an http://host:port DevTools address (Octo).
	Endpoint    string
	BrowserType string
	CoreVersion int
	Quick       bool
}

// ProfileOptions configures profile creation.
type ProfileOptions struct {
	OS   string
	Name string
}

// SessionOptions configures a session start.
type SessionOptions struct {
	ProfileID   string
	Headless    bool
	BrowserType string
	OS          string
}

// SessionClient starts and stops remote browser sessions.
type SessionClient interface {
	StartSession(ctx context.Context, opts SessionOptions) (*Session, error)
	// StopSession reports false when the vendor did not acknowledge the stop.
	// An error is returned only when the request could not be made.
	StopSession(ctx context.Context, sess *Session) (bool, error)
}

// ProfileManager creates and deletes vendor profiles.
type ProfileManager interface {
	CreateProfile(ctx context.Context, opts ProfileOptions) (string, error)
	DeleteProfile(ctx context.Context, profileID string) (bool, error)
}

// Authenticator exchanges configured credentials for a bearer token that the
// client then attaches to every later request.
type Authenticator interface {
	HasCredentials() bool
	Authenticate(ctx context.Context) (string, error)
}

// CredentialsRequired is implemented by authenticators whose API rejects
// anonymous calls, so a run without credentials fails up front.
type CredentialsRequired interface {
	CredentialsRequired() bool
}
