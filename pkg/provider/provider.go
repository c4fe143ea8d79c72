// Package provider creates and deletes the remote repositories that back
// tracking directories, via the GitHub and GitLab REST APIs.
package provider

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/cenk/backoff"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// repoDescription is attached to every repository we create.
const repoDescription = "Personal software package tracking across multiple " +
	"machines - managed by install-sync"

// Provider manages repositories on one hosting platform.
type Provider interface {
	Name() string

	// CreateRepo creates the named repository and returns its clone URL.
	CreateRepo(name string, private bool) (string, error)

	// DeleteRepo removes the named repository owned by the token's user.
	// Deleting a repository that doesn't exist is not an error.
	DeleteRepo(name string) error

	// RepoExists reports whether the token's user already owns the named
	// repository.
	RepoExists(name string) (bool, error)
}

// ForPlatform returns the provider for the given platform name.
func ForPlatform(platform, token string) (Provider, error) {
	switch platform {
	case "github":
		return NewGitHub(token), nil
	case "gitlab":
		return NewGitLab(token), nil
	default:
		return nil, errors.NewFriendlyError(
			"Unknown platform %q. Supported platforms: github, gitlab.", platform)
	}
}

// Mocked for unit testing.
var newBackOff = func() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 15 * time.Second
	return policy
}

// doWithRetry sends the request produced by build, retrying network failures
// and 5xx responses with exponential backoff. build is called once per
// attempt so request bodies are fresh.
func doWithRetry(client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	attempt := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}

		res, err := client.Do(req)
		if err != nil {
			return err
		}
		if res.StatusCode >= 500 {
			res.Body.Close()
			return fmt.Errorf("server error: %s", res.Status)
		}

		resp = res
		return nil
	}

	if err := backoff.Retry(attempt, newBackOff()); err != nil {
		return nil, err
	}
	return resp, nil
}

// unexpectedStatus reports a response the API contract doesn't cover,
// including the body because that's where these APIs explain themselves.
func unexpectedStatus(resp *http.Response) error {
	body, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 2048))
	return errors.New(fmt.Sprintf("unexpected response %s: %s", resp.Status, body))
}
