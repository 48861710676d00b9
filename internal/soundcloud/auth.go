// Package soundcloud talks to the SoundCloud HTTP API: OAuth token
// lifecycle and the track catalogue endpoints the player browses.
package soundcloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	authURL  = "https://secure.soundcloud.com/authorize"
	tokenURL = "https://secure.soundcloud.com/oauth/token"
)

// TokenManager holds the OAuth credentials and exchanges the refresh token
// for access tokens as they expire. It is safe for concurrent use; the
// fetcher's download goroutines all read through it.
type TokenManager struct {
	conf *oauth2.Config
	log  *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenManager starts from a previously obtained refresh token. The
// first Token call performs the initial exchange.
func NewTokenManager(clientID, clientSecret, redirectURL, refreshToken string, log *zap.Logger) *TokenManager {
	return &TokenManager{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		log: log,
		token: &oauth2.Token{
			RefreshToken: refreshToken,
			Expiry:       time.Now().Add(-time.Hour),
		},
	}
}

// AuthCodeURL returns the browser URL that starts a fresh authorization
// flow, for when the stored refresh token has been revoked.
func (m *TokenManager) AuthCodeURL(state string) string {
	return m.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a full token pair and adopts it.
func (m *TokenManager) Exchange(ctx context.Context, code string) error {
	tok, err := m.conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("soundcloud: code exchange: %w", err)
	}
	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()
	m.log.Info("authorized with new token pair")
	return nil
}

// Token returns the current access token, refreshing it first if expired.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token.Valid() {
		return m.token.AccessToken, nil
	}
	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.token.AccessToken, nil
}

// Refresh discards the current access token and obtains a new one, even if
// the old one has not expired yet. Used after the API rejects a request.
func (m *TokenManager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.refreshLocked(ctx); err != nil {
		return "", err
	}
	return m.token.AccessToken, nil
}

func (m *TokenManager) refreshLocked(ctx context.Context) error {
	if m.token.RefreshToken == "" {
		return fmt.Errorf("soundcloud: no refresh token")
	}

	src := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: m.token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("soundcloud: token refresh: %w", err)
	}
	// SoundCloud rotates refresh tokens, but keep the old one if the
	// response omitted a replacement.
	if tok.RefreshToken == "" {
		tok.RefreshToken = m.token.RefreshToken
	}
	m.token = tok
	m.log.Debug("access token refreshed", zap.Time("expiry", tok.Expiry))
	return nil
}
