package auth

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// None leaves requests unchanged.
type None struct{}

// NewNone returns the identity strategy.
func NewNone() *None {
	return &None{}
}

// Sign returns req as is.
func (None) Sign(ctx context.Context, req *discovery.Request) (*discovery.Request, error) {
	return req, nil
}

// OAuth2 adds "Authorization: OAuth <access_token>" to requests.
type OAuth2 struct {
	tokens TokenManager
}

// NewOAuth2 creates an OAuth2 strategy backed by tokens.
func NewOAuth2(tokens TokenManager) *OAuth2 {
	return &OAuth2{tokens: tokens}
}

// NewOAuth2WithToken creates an OAuth2 strategy for a fixed access token.
func NewOAuth2WithToken(accessToken string) *OAuth2 {
	return NewOAuth2(NewStaticTokenManager(accessToken))
}

// TokenManager returns the manager supplying tokens.
func (a *OAuth2) TokenManager() TokenManager {
	return a.tokens
}

// Sign returns a copy of req carrying the current access token.
func (a *OAuth2) Sign(ctx context.Context, req *discovery.Request) (*discovery.Request, error) {
	token, err := a.tokens.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	signed := req.Clone()
	signed.Headers.Set("Authorization", "OAuth "+token)

	return signed, nil
}

var (
	_ discovery.Authorization = None{}
	_ discovery.Authorization = (*OAuth2)(nil)
	_ discovery.Authorization = (*OAuth1)(nil)
)
