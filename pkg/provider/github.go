package provider

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// GitHub talks to the GitHub REST API.
type GitHub struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewGitHub returns a provider for github.com.
func NewGitHub(token string) *GitHub {
	return &GitHub{
		BaseURL: "https://api.github.com",
		Token:   token,
		Client:  http.DefaultClient,
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) request(method, path string, body interface{}) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequest(method, g.BaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "token "+g.Token)
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}
}

// CreateRepo creates a repository under the token's user.
func (g *GitHub) CreateRepo(name string, private bool) (string, error) {
	payload := map[string]interface{}{
		"name":        name,
		"description": repoDescription,
		"private":     private,
		// No auto-init: the initial commit is ours, a remote-created one
		// would immediately diverge from it.
		"auto_init": false,
	}

	resp, err := doWithRetry(g.Client, g.request("POST", "/user/repos", payload))
	if err != nil {
		return "", errors.WithContext(err, "create repository")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusUnauthorized:
		return "", errors.NewFriendlyError(
			"GitHub rejected the token. Check that it has the `repo` scope and hasn't expired.")
	case http.StatusForbidden:
		return "", errors.NewFriendlyError(
			"GitHub denied repository creation. The token needs the `repo` scope; " +
				"for organizations, SSO must be enabled for it.")
	case http.StatusUnprocessableEntity:
		return "", errors.NewFriendlyError(
			"Repository %q already exists on GitHub.", name)
	default:
		return "", unexpectedStatus(resp)
	}

	var created struct {
		CloneURL string `json:"clone_url"`
		HTMLURL  string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", errors.WithContext(err, "decode response")
	}

	log.Infof("Created GitHub repository %s", created.HTMLURL)
	return created.CloneURL, nil
}

// DeleteRepo deletes the named repository owned by the token's user.
func (g *GitHub) DeleteRepo(name string) error {
	username, err := g.username()
	if err != nil {
		return err
	}

	resp, err := doWithRetry(g.Client,
		g.request("DELETE", "/repos/"+username+"/"+name, nil))
	if err != nil {
		return errors.WithContext(err, "delete repository")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		log.Infof("Repository %s/%s not found; may already be deleted", username, name)
		return nil
	case http.StatusForbidden:
		return errors.NewFriendlyError(
			"GitHub denied deleting %s/%s. The token needs the `delete_repo` scope.",
			username, name)
	default:
		return unexpectedStatus(resp)
	}
}

// RepoExists reports whether the token's user owns the named repository.
func (g *GitHub) RepoExists(name string) (bool, error) {
	username, err := g.username()
	if err != nil {
		return false, err
	}

	resp, err := doWithRetry(g.Client,
		g.request("GET", "/repos/"+username+"/"+name, nil))
	if err != nil {
		return false, errors.WithContext(err, "check repository")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, unexpectedStatus(resp)
	}
}

func (g *GitHub) username() (string, error) {
	resp, err := doWithRetry(g.Client, g.request("GET", "/user", nil))
	if err != nil {
		return "", errors.WithContext(err, "look up user")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errors.NewFriendlyError(
			"GitHub rejected the token. Check that it hasn't expired.")
	}
	if resp.StatusCode != http.StatusOK {
		return "", unexpectedStatus(resp)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", errors.WithContext(err, "decode user")
	}
	return user.Login, nil
}
