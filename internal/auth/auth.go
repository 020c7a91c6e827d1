// Package auth supplies bearer credentials for the dashboard API.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fleetdeck/fleetdeck/internal/common"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

// Static returns a provider that always hands out the given token. Used when
// the operator supplies a token directly via config or environment.
func Static(token string) service.TokenProvider {
	return staticProvider{token: token}
}

type staticProvider struct {
	token string
}

func (p staticProvider) Token(_ context.Context) (string, error) {
	if p.token == "" {
		return "", common.NewUserError(
			"no API token configured; set api.token or configure client credentials",
			common.ErrMissingToken)
	}
	return p.token, nil
}

// ClientCredentialsConfig configures the OAuth2 client-credentials flow.
type ClientCredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Validate ensures all required fields are present.
func (c *ClientCredentialsConfig) Validate() error {
	if c.TokenURL == "" {
		return fmt.Errorf("token URL is required: %w", common.ErrMissingConfig)
	}
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required: %w", common.ErrMissingConfig)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required: %w", common.ErrMissingConfig)
	}
	return nil
}

// NewClientCredentials returns a provider backed by the OAuth2
// client-credentials flow. Tokens are cached and refreshed by the underlying
// token source.
func NewClientCredentials(cfg ClientCredentialsConfig) (service.TokenProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	oc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}

	return &clientCredentialsProvider{
		source: oc.TokenSource(context.Background()),
	}, nil
}

type clientCredentialsProvider struct {
	source oauth2.TokenSource
}

func (p *clientCredentialsProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.source.Token()
	if err != nil {
		return "", common.NewUserError("failed to obtain access token", err)
	}
	return tok.AccessToken, nil
}
