package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fivetwenty-io/discovery-client/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrNoValidCredentials       = errors.New("no valid credentials available")
	ErrTokenURLRequired         = errors.New("token URL is required to obtain a token")
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
)

// OAuth2Config holds the credentials an OAuth2TokenManager may use.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RefreshToken string
	AccessToken  string
	Scopes       []string

	// HTTPClient is used for token requests. Defaults to a client with a
	// short timeout.
	HTTPClient *http.Client
}

// OAuth2TokenManager obtains and renews tokens with golang.org/x/oauth2.
//
// A valid stored token is returned as is. Otherwise the manager tries, in
// order, the refresh token grant, the client_credentials grant and the
// password grant.
type OAuth2TokenManager struct {
	config *OAuth2Config
	store  *TokenStore
	mu     sync.Mutex
}

// NewOAuth2TokenManager creates a manager. A configured AccessToken is stored
// without an expiry.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	if config == nil {
		config = &OAuth2Config{}
	}

	manager := &OAuth2TokenManager{
		config: config,
		store:  NewTokenStore(),
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
			TokenType:    "bearer",
		})
	}

	return manager
}

// GetToken returns a valid access token, obtaining a new one when needed.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have refreshed while we waited.
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	token, err := m.fetch(ctx)
	if err != nil {
		return "", err
	}

	return token.AccessToken, nil
}

// RefreshToken obtains a new token even if the stored one is still valid.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.fetch(ctx)

	return err
}

// SetToken manually sets the access token.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	refreshToken := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}

	m.store.Set(&Token{
		AccessToken:  token,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	})
}

// Token returns the stored token, or nil.
func (m *OAuth2TokenManager) Token() *Token {
	return m.store.Get()
}

func (m *OAuth2TokenManager) fetch(ctx context.Context) (*Token, error) {
	if m.config.TokenURL == "" {
		if m.store.Get() == nil && !m.hasGrant() {
			return nil, ErrNoValidCredentials
		}

		return nil, ErrTokenURLRequired
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient())

	oauthConfig := &oauth2.Config{
		ClientID:     m.config.ClientID,
		ClientSecret: m.config.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: m.config.TokenURL},
		Scopes:       m.config.Scopes,
	}

	var (
		token *oauth2.Token
		err   error
	)

	switch refreshToken := m.refreshToken(); {
	case refreshToken != "":
		token, err = oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	case m.config.ClientID != "" && m.config.ClientSecret != "" && m.config.Username == "":
		ccConfig := &clientcredentials.Config{
			ClientID:     m.config.ClientID,
			ClientSecret: m.config.ClientSecret,
			TokenURL:     m.config.TokenURL,
			Scopes:       m.config.Scopes,
		}
		token, err = ccConfig.Token(ctx)
	case m.config.Username != "" && m.config.Password != "":
		token, err = oauthConfig.PasswordCredentialsToken(ctx, m.config.Username, m.config.Password)
	default:
		return nil, ErrNoValidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to obtain token: %w", err)
	}

	stored := &Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    strings.ToLower(token.TokenType),
		ExpiresAt:    token.Expiry,
	}

	if !token.Expiry.IsZero() {
		stored.ExpiresIn = int(time.Until(token.Expiry).Seconds())
	}

	if stored.RefreshToken == "" {
		stored.RefreshToken = m.refreshToken()
	}

	m.store.Set(stored)

	return stored, nil
}

func (m *OAuth2TokenManager) refreshToken() string {
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		return current.RefreshToken
	}

	return m.config.RefreshToken
}

func (m *OAuth2TokenManager) hasGrant() bool {
	return m.config.RefreshToken != "" ||
		(m.config.ClientID != "" && m.config.ClientSecret != "") ||
		(m.config.Username != "" && m.config.Password != "")
}

func (m *OAuth2TokenManager) httpClient() *http.Client {
	if m.config.HTTPClient != nil {
		return m.config.HTTPClient
	}

	return &http.Client{Timeout: constants.ShortHTTPTimeout}
}

// StaticTokenManager always returns the same token.
type StaticTokenManager struct {
	mu    sync.RWMutex
	token string
}

// NewStaticTokenManager creates a manager for a fixed token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

// GetToken returns the token.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == "" {
		return "", ErrNoValidCredentials
	}

	return m.token, nil
}

// RefreshToken always fails.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrStaticTokenCannotRefresh
}

// SetToken replaces the token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
}
