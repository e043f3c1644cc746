package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.github.com"
	acceptJSON     = "application/vnd.github+json"
	acceptHTML     = "application/vnd.github.html+json"
	apiVersion     = "2022-11-28"
)

// StatusError is a non-2xx answer from GitHub. Which statuses are expected
// depends on the endpoint, so callers translate it themselves.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: %d %s", e.StatusCode, e.Message)
}

// Client talks to the GitHub REST API on behalf of a user's linked token.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// authorized wraps the base transport with the user's token.
func (c *Client) authorized(token string) *http.Client {
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.httpClient.Transport,
		},
	}
}

// get returns the response status alongside any error. A 204 leaves dst
// untouched.
func (c *Client) get(ctx context.Context, token, path string, query url.Values, accept string, dst interface{}) (int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.authorized(token).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
		if body.Message == "" {
			body.Message = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Message: body.Message}
	}

	if raw, ok := dst.(*string); ok {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return resp.StatusCode, err
		}
		*raw = string(b)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("github: decode %s: %w", path, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) GetAuthenticatedUser(ctx context.Context, token string) (*Account, error) {
	var account Account
	if _, err := c.get(ctx, token, "/user", nil, acceptJSON, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) ListRepositories(ctx context.Context, token string, page, perPage int, sort string) ([]Repository, error) {
	query := url.Values{
		"page":        {strconv.Itoa(page)},
		"per_page":    {strconv.Itoa(perPage)},
		"sort":        {sort},
		"direction":   {"desc"},
		"affiliation": {"owner,collaborator,organization_member"},
	}
	var repos []Repository
	if _, err := c.get(ctx, token, "/user/repos", query, acceptJSON, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// SearchRepositories is scoped to repositories the token's user can see.
func (c *Client) SearchRepositories(ctx context.Context, token, q string, page, perPage int) ([]Repository, int, error) {
	query := url.Values{
		"q":        {q + " user:@me"},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
		"sort":     {"updated"},
	}
	var result struct {
		TotalCount int          `json:"total_count"`
		Items      []Repository `json:"items"`
	}
	if _, err := c.get(ctx, token, "/search/repositories", query, acceptJSON, &result); err != nil {
		return nil, 0, err
	}
	return result.Items, result.TotalCount, nil
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

func (c *Client) GetRepository(ctx context.Context, token, owner, repo string) (*Repository, error) {
	var repository Repository
	if _, err := c.get(ctx, token, repoPath(owner, repo), nil, acceptJSON, &repository); err != nil {
		return nil, err
	}
	return &repository, nil
}

// GetReadme returns the README rendered as HTML.
func (c *Client) GetReadme(ctx context.Context, token, owner, repo string) (string, error) {
	var html string
	_, err := c.get(ctx, token, repoPath(owner, repo)+"/readme", nil, acceptHTML, &html)
	return html, err
}

func (c *Client) ListCommits(ctx context.Context, token, owner, repo string, perPage int) ([]Commit, error) {
	query := url.Values{"per_page": {strconv.Itoa(perPage)}}
	var commits []Commit
	if _, err := c.get(ctx, token, repoPath(owner, repo)+"/commits", query, acceptJSON, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

// ListContributors yields an empty list for an empty repository, which
// GitHub answers with 204.
func (c *Client) ListContributors(ctx context.Context, token, owner, repo string, perPage int) ([]Contributor, error) {
	query := url.Values{"per_page": {strconv.Itoa(perPage)}}
	var contributors []Contributor
	if _, err := c.get(ctx, token, repoPath(owner, repo)+"/contributors", query, acceptJSON, &contributors); err != nil {
		return nil, err
	}
	if contributors == nil {
		contributors = []Contributor{}
	}
	return contributors, nil
}
