package github

import (
	"time"

	"github.com/sebuszqo/FinanceHub/internal/user"
)

type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Repository keeps GitHub's own field names; the frontend reads them as-is.
type Repository struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	HTMLURL         string     `json:"html_url"`
	Description     string     `json:"description"`
	Language        string     `json:"language"`
	StargazersCount int        `json:"stargazers_count"`
	ForksCount      int        `json:"forks_count"`
	WatchersCount   int        `json:"watchers_count"`
	OpenIssuesCount int        `json:"open_issues_count"`
	DefaultBranch   string     `json:"default_branch"`
	Topics          []string   `json:"topics"`
	Private         bool       `json:"private"`
	Fork            bool       `json:"fork"`
	Visibility      string     `json:"visibility"`
	Owner           Owner      `json:"owner"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	PushedAt        *time.Time `json:"pushed_at"`
	IsFavorite      bool       `json:"isFavorite"`
}

type CommitAuthor struct {
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Date  *time.Time `json:"date"`
}

type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string       `json:"message"`
		Author  CommitAuthor `json:"author"`
	} `json:"commit"`
	Author *Owner `json:"author"`
}

type Contributor struct {
	Login         string `json:"login"`
	ID            int64  `json:"id"`
	AvatarURL     string `json:"avatar_url"`
	HTMLURL       string `json:"html_url"`
	Contributions int    `json:"contributions"`
}

// Account is the authenticated user as GitHub reports it.
type Account struct {
	ID          int64  `json:"id"`
	Login       string `json:"login"`
	AvatarURL   string `json:"avatar_url"`
	HTMLURL     string `json:"html_url"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

// Profile is the snapshot stored on the linked user.
func (a Account) Profile() user.GitHubProfile {
	name := a.Name
	if name == "" {
		name = a.Login
	}
	return user.GitHubProfile{
		ID:          a.ID,
		Username:    a.Login,
		Avatar:      a.AvatarURL,
		ProfileURL:  a.HTMLURL,
		Name:        name,
		Bio:         a.Bio,
		PublicRepos: a.PublicRepos,
		Followers:   a.Followers,
		Following:   a.Following,
	}
}

type RepositoryPage struct {
	Repositories []Repository `json:"repositories"`
	Pagination   Pagination   `json:"pagination"`
}

type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"perPage"`
	Total   *int `json:"total,omitempty"`
	HasMore bool `json:"hasMore"`
}

// Readme is null content when the repository has none.
type Readme struct {
	Content *string `json:"content"`
}
