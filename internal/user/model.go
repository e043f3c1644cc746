package user

import (
	"context"
	"encoding/json"
	"time"
)

// GitHubProfile is the snapshot of a linked GitHub account.
type GitHubProfile struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar"`
	ProfileURL  string    `json:"profileUrl"`
	Name        string    `json:"name"`
	Bio         string    `json:"bio"`
	PublicRepos int       `json:"publicRepos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Favorite is a snapshot of a GitHub repository taken when the user starred it.
type Favorite struct {
	RepoID          int64     `json:"repoId"`
	RepoName        string    `json:"repoName"`
	RepoFullName    string    `json:"repoFullName"`
	RepoURL         string    `json:"repoUrl"`
	Description     string    `json:"description"`
	Language        string    `json:"language"`
	StargazersCount int       `json:"stargazersCount"`
	ForksCount      int       `json:"forksCount"`
	AddedAt         time.Time `json:"addedAt"`
}

// User never serializes its password hash, refresh token or GitHub token.
type User struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"name"`
	Email                 string         `json:"email"`
	PasswordHash          string         `json:"-"`
	GitHub                *GitHubProfile `json:"github,omitempty"`
	Favorites             []Favorite     `json:"favorites"`
	GitHubAccessToken     string         `json:"-"`
	RefreshTokenHash      string         `json:"-"`
	RefreshTokenExpiresAt *time.Time     `json:"-"`
	LastLogin             *time.Time     `json:"lastLogin,omitempty"`
	IsActive              bool           `json:"isActive"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// MarshalJSON writes a user without favorites as "favorites": [].
func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	out := plain(u)
	if out.Favorites == nil {
		out.Favorites = []Favorite{}
	}
	return json.Marshal(out)
}

func (u *User) HasGitHub() bool {
	return u.GitHub != nil && u.GitHubAccessToken != ""
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the authenticated user.
func NewContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the authenticated user, if any.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}
