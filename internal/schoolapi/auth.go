package schoolapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"school-admin-core/internal/config"
	"school-admin-core/internal/model"
	"school-admin-core/pkg/errors"

	"github.com/rs/zerolog"
)

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
	Invalidate()
}

// StaticToken is a pre-issued token that never expires locally.
type StaticToken string

func (t StaticToken) GetToken(context.Context) (string, error) {
	return string(t), nil
}

func (StaticToken) Invalidate() {}

// AuthManager logs in with service credentials and caches the token until
// shortly before it expires.
type AuthManager struct {
	cfg       config.SchoolAPIConfig
	client    *http.Client
	token     string
	expiresAt time.Time
	mu        sync.RWMutex
	now       func() time.Time
	log       zerolog.Logger
}

func NewAuthManager(cfg config.SchoolAPIConfig, client *http.Client, log zerolog.Logger) *AuthManager {
	return &AuthManager{
		cfg:    cfg,
		client: client,
		now:    time.Now,
		log:    log,
	}
}

func (a *AuthManager) GetToken(ctx context.Context) (string, error) {
	a.mu.RLock()
	if a.valid() {
		token := a.token
		a.mu.RUnlock()
		return token, nil
	}
	a.mu.RUnlock()

	return a.refreshToken(ctx)
}

// Invalidate drops the cached token so the next request logs in again.
func (a *AuthManager) Invalidate() {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
}

func (a *AuthManager) valid() bool {
	return a.token != "" && a.now().Before(a.expiresAt.Add(-30*time.Second))
}

func (a *AuthManager) refreshToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Double check after acquiring write lock
	if a.valid() {
		return a.token, nil
	}

	a.log.Debug().Msg("Refreshing school API token")

	jsonData, err := json.Marshal(map[string]string{
		"username": a.cfg.Username,
		"password": a.cfg.Password,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth data: %w", err)
	}

	url := a.cfg.BaseURL + a.cfg.AuthEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(a.cfg.SchoolHeader, a.cfg.SchoolID)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", errors.NewRetryableError(err, "auth request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", errors.ErrAuthenticationFailed, resp.StatusCode)
	}

	var tokenResp model.AuthTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}
	if tokenResp.Token == "" {
		return "", fmt.Errorf("%w: empty token", errors.ErrAuthenticationFailed)
	}

	lifetime := time.Duration(tokenResp.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = time.Hour
	}

	a.token = tokenResp.Token
	a.expiresAt = a.now().Add(lifetime)

	a.log.Debug().Time("expires_at", a.expiresAt).Msg("Token refreshed successfully")

	return a.token, nil
}
