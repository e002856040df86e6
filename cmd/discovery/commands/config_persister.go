package commands

import (
	"sync"
	"time"
)

// ConfigPersister implements the auth.ConfigPersister interface on top of
// the CLI config file.
type ConfigPersister struct {
	mutex sync.Mutex
	now   func() time.Time
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{now: time.Now}
}

// UpdateToken stores a renewed token and its metadata in the config file.
func (p *ConfigPersister) UpdateToken(token string, expiresAt time.Time, refreshToken string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	config.Token = token
	config.TokenExpiresAt = nil

	if !expiresAt.IsZero() {
		config.TokenExpiresAt = &expiresAt
	}

	if refreshToken != "" {
		config.RefreshToken = refreshToken
	}

	now := p.now()
	config.LastRefreshed = &now

	return saveConfigStruct(config)
}
