package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	githubOAuth "golang.org/x/oauth2/github"
)

var defaultScopes = []string{"read:user", "user:email", "repo"}

// OAuth runs the authorization-code flow that links a GitHub account.
type OAuth struct {
	config     *oauth2.Config
	apiBaseURL string
	httpClient *http.Client
}

func NewOAuth(clientID, clientSecret, callbackURL, apiBaseURL string) *OAuth {
	if apiBaseURL == "" {
		apiBaseURL = DefaultBaseURL
	}
	return &OAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       defaultScopes,
			Endpoint:     githubOAuth.Endpoint,
		},
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint points the flow at another authorization server.
func (o *OAuth) WithEndpoint(endpoint oauth2.Endpoint) *OAuth {
	o.config.Endpoint = endpoint
	return o
}

func (o *OAuth) AuthURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for the user's access token.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// Revoke deletes the grant on GitHub's side. GitHub answers 404 for a token
// that is already gone, which counts as success.
func (o *OAuth) Revoke(ctx context.Context, accessToken string) error {
	body, err := json.Marshal(map[string]string{"access_token": accessToken})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/applications/%s/token", o.apiBaseURL, url.PathEscape(o.config.ClientID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.SetBasicAuth(o.config.ClientID, o.config.ClientSecret)
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return &StatusError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}
