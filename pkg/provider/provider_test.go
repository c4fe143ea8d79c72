package provider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenk/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noRetry disables backoff so failure tests don't wait.
func noRetry(t *testing.T) {
	old := newBackOff
	t.Cleanup(func() { newBackOff = old })
	newBackOff = func() backoff.BackOff { return &backoff.StopBackOff{} }
}

func TestGitHubCreateRepo(t *testing.T) {
	noRetry(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/user/repos", r.URL.Path)
		require.Equal(t, "token secret", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "my-packages", payload["name"])
		assert.Equal(t, true, payload["private"])
		assert.Equal(t, false, payload["auto_init"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"clone_url": "https://github.com/user/my-packages.git",
			"html_url":  "https://github.com/user/my-packages",
		})
	}))
	defer server.Close()

	github := NewGitHub("secret")
	github.BaseURL = server.URL

	cloneURL, err := github.CreateRepo("my-packages", true)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/user/my-packages.git", cloneURL)
}

func TestGitHubCreateRepoErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expError string
	}{
		{name: "Unauthorized", status: http.StatusUnauthorized, expError: "rejected the token"},
		{name: "Forbidden", status: http.StatusForbidden, expError: "denied repository creation"},
		{name: "Exists", status: http.StatusUnprocessableEntity, expError: "already exists"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			noRetry(t)
			server := httptest.NewServer(http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(test.status)
				}))
			defer server.Close()

			github := NewGitHub("secret")
			github.BaseURL = server.URL

			_, err := github.CreateRepo("my-packages", true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.expError)
		})
	}
}

func TestGitHubDeleteRepo(t *testing.T) {
	noRetry(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			json.NewEncoder(w).Encode(map[string]string{"login": "user"})
		case "/repos/user/my-packages":
			require.Equal(t, "DELETE", r.Method)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
		}
	}))
	defer server.Close()

	github := NewGitHub("secret")
	github.BaseURL = server.URL
	assert.NoError(t, github.DeleteRepo("my-packages"))
}

func TestGitHubDeleteRepoMissing(t *testing.T) {
	noRetry(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user" {
			json.NewEncoder(w).Encode(map[string]string{"login": "user"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	github := NewGitHub("secret")
	github.BaseURL = server.URL

	// Deleting an already-deleted repository is not an error.
	assert.NoError(t, github.DeleteRepo("my-packages"))
}

func TestGitHubRepoExists(t *testing.T) {
	noRetry(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			json.NewEncoder(w).Encode(map[string]string{"login": "user"})
		case "/repos/user/exists":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	github := NewGitHub("secret")
	github.BaseURL = server.URL

	exists, err := github.RepoExists("exists")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = github.RepoExists("missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGitLabCreateRepo(t *testing.T) {
	noRetry(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/projects", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("Private-Token"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "private", payload["visibility"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"http_url_to_repo": "https://gitlab.com/user/my-packages.git",
			"web_url":          "https://gitlab.com/user/my-packages",
		})
	}))
	defer server.Close()

	gitlab := NewGitLab("secret")
	gitlab.BaseURL = server.URL

	cloneURL, err := gitlab.CreateRepo("my-packages", true)
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com/user/my-packages.git", cloneURL)
}

func TestGitLabDeleteRepo(t *testing.T) {
	noRetry(t)

	var deleted bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/user":
			json.NewEncoder(w).Encode(map[string]string{"username": "user"})
		case r.URL.Path == "/projects/user%2Fmy-packages" ||
			r.URL.Path == "/projects/user/my-packages":
			json.NewEncoder(w).Encode(map[string]int{"id": 42})
		case r.URL.Path == "/projects/42" && r.Method == "DELETE":
			deleted = true
			w.WriteHeader(http.StatusAccepted)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	gitlab := NewGitLab("secret")
	gitlab.BaseURL = server.URL

	require.NoError(t, gitlab.DeleteRepo("my-packages"))
	assert.True(t, deleted)
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"clone_url": "https://github.com/user/my-packages.git",
		})
	}))
	defer server.Close()

	// One immediate retry.
	old := newBackOff
	t.Cleanup(func() { newBackOff = old })
	newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1)
	}

	github := NewGitHub("secret")
	github.BaseURL = server.URL

	_, err := github.CreateRepo("my-packages", true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestForPlatform(t *testing.T) {
	for _, platform := range []string{"github", "gitlab"} {
		p, err := ForPlatform(platform, "secret")
		require.NoError(t, err)
		assert.Equal(t, platform, p.Name())
	}

	_, err := ForPlatform("bitbucket", "secret")
	assert.Error(t, err)
}
