package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// GitLab talks to the GitLab REST API (v4).
type GitLab struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewGitLab returns a provider for gitlab.com.
func NewGitLab(token string) *GitLab {
	return &GitLab{
		BaseURL: "https://gitlab.com/api/v4",
		Token:   token,
		Client:  http.DefaultClient,
	}
}

func (g *GitLab) Name() string { return "gitlab" }

func (g *GitLab) request(method, path string, body interface{}) func() (*http.Request, error) {
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
		req.Header.Set("Private-Token", g.Token)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

// CreateRepo creates a project under the token's user.
func (g *GitLab) CreateRepo(name string, private bool) (string, error) {
	visibility := "public"
	if private {
		visibility = "private"
	}
	payload := map[string]interface{}{
		"name":                   name,
		"description":            repoDescription,
		"visibility":             visibility,
		"initialize_with_readme": false,
	}

	resp, err := doWithRetry(g.Client, g.request("POST", "/projects", payload))
	if err != nil {
		return "", errors.WithContext(err, "create repository")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusUnauthorized:
		return "", errors.NewFriendlyError(
			"GitLab rejected the token. Check that it has the `api` scope and hasn't expired.")
	case http.StatusForbidden:
		return "", errors.NewFriendlyError(
			"GitLab denied project creation. The token needs the `api` scope " +
				"and at least the Developer role.")
	case http.StatusBadRequest:
		return "", errors.NewFriendlyError(
			"GitLab could not create project %q; it may already exist.", name)
	default:
		return "", unexpectedStatus(resp)
	}

	var created struct {
		HTTPURL string `json:"http_url_to_repo"`
		WebURL  string `json:"web_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", errors.WithContext(err, "decode response")
	}

	log.Infof("Created GitLab repository %s", created.WebURL)
	return created.HTTPURL, nil
}

// DeleteRepo deletes the named project owned by the token's user.
func (g *GitLab) DeleteRepo(name string) error {
	id, found, err := g.projectID(name)
	if err != nil {
		return err
	}
	if !found {
		log.Infof("Project %s not found; may already be deleted", name)
		return nil
	}

	resp, err := doWithRetry(g.Client,
		g.request("DELETE", fmt.Sprintf("/projects/%d", id), nil))
	if err != nil {
		return errors.WithContext(err, "delete repository")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return unexpectedStatus(resp)
	}
}

// RepoExists reports whether the token's user owns the named project.
func (g *GitLab) RepoExists(name string) (bool, error) {
	_, found, err := g.projectID(name)
	return found, err
}

// projectID resolves the numeric ID of the user's project, required by the
// delete endpoint.
func (g *GitLab) projectID(name string) (int, bool, error) {
	username, err := g.username()
	if err != nil {
		return 0, false, err
	}

	path := "/projects/" + url.PathEscape(username+"/"+name)
	resp, err := doWithRetry(g.Client, g.request("GET", path, nil))
	if err != nil {
		return 0, false, errors.WithContext(err, "look up project")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, false, nil
	default:
		return 0, false, unexpectedStatus(resp)
	}

	var project struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return 0, false, errors.WithContext(err, "decode project")
	}
	return project.ID, true, nil
}

func (g *GitLab) username() (string, error) {
	resp, err := doWithRetry(g.Client, g.request("GET", "/user", nil))
	if err != nil {
		return "", errors.WithContext(err, "look up user")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", errors.NewFriendlyError(
			"GitLab rejected the token. Check that it hasn't expired.")
	}
	if resp.StatusCode != http.StatusOK {
		return "", unexpectedStatus(resp)
	}

	var user struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", errors.WithContext(err, "decode user")
	}
	return user.Username, nil
}
