package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/discovery-client/pkg/discovery"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister saves tokens obtained by a ConfigTokenManager.
type ConfigPersister interface {
	UpdateToken(token string, expiresAt time.Time, refreshToken string) error
}

// ConfigTokenManager wraps an OAuth2TokenManager and persists every new
// token it obtains.
type ConfigTokenManager struct {
	oauth2Manager *OAuth2TokenManager
	persister     ConfigPersister
	logger        discovery.Logger

	mu            sync.Mutex
	lastToken     string
	lastExpiresAt time.Time
}

// NewConfigTokenManager creates a persisting token manager. A non-empty
// initialToken is seeded with initialExpiry.
func NewConfigTokenManager(config *OAuth2Config, persister ConfigPersister, initialToken string, initialExpiry time.Time) *ConfigTokenManager {
	oauth2Manager := NewOAuth2TokenManager(config)

	if initialToken != "" {
		oauth2Manager.SetToken(initialToken, initialExpiry)
	}

	return &ConfigTokenManager{
		oauth2Manager: oauth2Manager,
		persister:     persister,
		logger:        discovery.NopLogger{},
		lastToken:     initialToken,
		lastExpiresAt: initialExpiry,
	}
}

// SetLogger sets the logger used to report persistence failures.
func (m *ConfigTokenManager) SetLogger(logger discovery.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// GetToken returns a valid access token, persisting it if it changed.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.oauth2Manager.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfChanged()

	return token, nil
}

// RefreshToken forces a refresh and persists the result.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	err := m.oauth2Manager.RefreshToken(ctx)
	if err != nil {
		return err
	}

	m.persistIfChanged()

	return nil
}

// SetToken sets the access token without persisting it.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.oauth2Manager.SetToken(token, expiresAt)
	m.lastToken = token
	m.lastExpiresAt = expiresAt
}

// TokenExpiry returns the current token's expiration time.
func (m *ConfigTokenManager) TokenExpiry() time.Time {
	token := m.oauth2Manager.Token()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

func (m *ConfigTokenManager) persistIfChanged() {
	current := m.oauth2Manager.Token()
	if current == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current.AccessToken == m.lastToken && current.ExpiresAt.Equal(m.lastExpiresAt) {
		return
	}

	err := m.persist(current)
	if err != nil {
		m.logger.Warn("failed to persist refreshed token", map[string]interface{}{"error": err.Error()})
	}

	m.lastToken = current.AccessToken
	m.lastExpiresAt = current.ExpiresAt
}

func (m *ConfigTokenManager) persist(token *Token) error {
	if m.persister == nil {
		return ErrNoConfigPersister
	}

	err := m.persister.UpdateToken(token.AccessToken, token.ExpiresAt, token.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to update token: %w", err)
	}

	return nil
}
