package gologin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kornev-zhora/anti-detect-browsing/internal/cloud"
)

const cloudBrowserURL = "https://cloudbrowser.gologin.com"

func newTestClient(t *testing.T, apiURL, token string) *Client {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	return New(apiURL, cloudBrowserURL, token, nil, logger)
}

func TestMissingTokenFailsBeforeAnyRequest(t *testing.T) {
	t.Parallel()

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, "")
	ctx := context.Background()

	calls := map[string]func() error{
		"CreateProfile": func() error {
			_, err := c.CreateProfile(ctx, cloud.ProfileOptions{})
			return err
		},
		"StartSession": func() error {
			_, err := c.StartSession(ctx, cloud.SessionOptions{ProfileID: "gl-1"})
			return err
		},
		"StopSession": func() error {
			_, err := c.StopSession(ctx, &cloud.Session{ProfileID: "gl-1"})
			return err
		},
		"DeleteProfile": func() error {
			_, err := c.DeleteProfile(ctx, "gl-1")
			return err
		},
		"GetProfile": func() error {
			_, err := c.GetProfile(ctx, "gl-1")
			return err
		},
	}

	for name, call := range calls {
		err := call()
		var authErr *cloud.AuthError
		require.ErrorAs(t, err, &authErr, name)
		assert.Equal(t, "GOLOGIN_TOKEN must be configured.", authErr.Error(), name)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestCreateProfile(t *testing.T) {
	t.Parallel()

	t.Run("sends os and bearer token", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/browser/quick", r.URL.Path)
			assert.Equal(t, "Bearer test-dev-token", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "win", body["os"])
			assert.Equal(t, "Profile 2024-05-01 10:11:12", body["name"])

			_, _ = io.WriteString(w, `{"id":"gl-profile-123","name":"Quick Profile"}`)
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, "test-dev-token")
		c.now = func() time.Time { return time.Date(2024, 5, 1, 10, 11, 12, 0, time.UTC) }

		id, err := c.CreateProfile(context.Background(), cloud.ProfileOptions{OS: "win"})
		require.NoError(t, err)
		assert.Equal(t, "gl-profile-123", id)
	})

	t.Run("missing id is a remote api error", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"name":"Quick Profile"}`)
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, "tok").CreateProfile(context.Background(), cloud.ProfileOptions{})
		var apiErr *cloud.RemoteAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Contains(t, apiErr.Error(), "No profile ID in response")
	})

	t.Run("non-2xx is a remote api error", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"boom"}`)
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, "tok").CreateProfile(context.Background(), cloud.ProfileOptions{})
		var apiErr *cloud.RemoteAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.Contains(t, apiErr.Error(), "boom")
	})

	t.Run("transport failure is a connection error", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := newTestClient(t, url, "tok").CreateProfile(context.Background(), cloud.ProfileOptions{})
		var connErr *cloud.ConnectionError
		require.ErrorAs(t, err, &connErr)
	})
}

func TestStartSession(t *testing.T) {
	t.Parallel()

	t.Run("returns websocket url", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/browser/gl-profile-123/web", r.URL.Path)
			_, _ = io.WriteString(w, `{"wsUrl":"wss://cloudbrowser.gologin.com/connect?token=test-dev-token&profile=gl-profile-123"}`)
		}))
		defer server.Close()

		sess, err := newTestClient(t, server.URL, "test-dev-token").
			StartSession(context.Background(), cloud.SessionOptions{ProfileID: "gl-profile-123"})
		require.NoError(t, err)
		assert.Equal(t, "gl-profile-123", sess.ProfileID)
		assert.Equal(t, "wss://cloudbrowser.gologin.com/connect?token=test-dev-token&profile=gl-profile-123", sess.Endpoint)
	})

	t.Run("falls back to built connect url", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"status":"started"}`)
		}))
		defer server.Close()

		sess, err := newTestClient(t, server.URL, "my-token").
			StartSession(context.Background(), cloud.SessionOptions{ProfileID: "gl-profile-456"})
		require.NoError(t, err)
		assert.Equal(t, "https://cloudbrowser.gologin.com/connect?token=my-token&profile=gl-profile-456", sess.Endpoint)
	})

	t.Run("without profile uses bare connect url", func(t *testing.T) {
		t.Parallel()
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
		}))
		defer server.Close()

		sess, err := newTestClient(t, server.URL, "my-token").StartSession(context.Background(), cloud.SessionOptions{})
		require.NoError(t, err)
		assert.Equal(t, "https://cloudbrowser.gologin.com/connect?token=my-token", sess.Endpoint)
		assert.Empty(t, sess.ProfileID)
		assert.Zero(t, atomic.LoadInt32(&hits))
	})

	t.Run("malformed body falls back as well", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		}))
		defer server.Close()

		sess, err := newTestClient(t, server.URL, "t").
			StartSession(context.Background(), cloud.SessionOptions{ProfileID: "p"})
		require.NoError(t, err)
		assert.Equal(t, "https://cloudbrowser.gologin.com/connect?token=t&profile=p", sess.Endpoint)
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL, "t").
			StartSession(context.Background(), cloud.SessionOptions{ProfileID: "p"})
		var apiErr *cloud.RemoteAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})
}

func TestStopSession(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/browser/gl-profile-123/web", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ok, err := newTestClient(t, server.URL, "test-dev-token").
		StopSession(context.Background(), &cloud.Session{ProfileID: "gl-profile-123"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteProfile(t *testing.T) {
	t.Parallel()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/browser", r.URL.Path)

		var body struct {
			IDs []string `json:"ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"gl-profile-123"}, body.IDs)

		if atomic.AddInt32(&calls, 1) > 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, "test-dev-token")

	ok, err := c.DeleteProfile(context.Background(), "gl-profile-123")
	require.NoError(t, err)
	assert.True(t, ok)

	// A second delete of the same profile must not blow up.
	ok, err = c.DeleteProfile(context.Background(), "gl-profile-123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetProfile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/browser/gl-1", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"gl-1","os":"win"}`)
	}))
	defer server.Close()

	raw, err := newTestClient(t, server.URL, "tok").GetProfile(context.Background(), "gl-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"gl-1","os":"win"}`, string(raw))
}

func TestConnectURL(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "https://api.gologin.com", "my-dev-token")
	assert.Equal(t, "https://cloudbrowser.gologin.com/connect?token=my-dev-token&profile=profile-abc", c.ConnectURL("profile-abc"))
	assert.Equal(t, "https://cloudbrowser.gologin.com/connect?token=my-dev-token", c.ConnectURL(""))

	// JWT-style tokens are passed through untouched.
	c = newTestClient(t, "https://api.gologin.com", "a+b/c=")
	assert.Equal(t, "https://cloudbrowser.gologin.com/connect?token=a+b/c=&profile=p1", c.ConnectURL("p1"))
}
