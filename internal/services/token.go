package services

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/shared"
	"golang.org/x/oauth2"
)

// Environment variables holding the playlist system credentials.
const (
	EnvClientID     = "SPOTIFY_CLIENT_ID"
	EnvClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvRefreshToken = "SPOTIFY_REFRESH_TOKEN"
)

// Scopes requested by the auth command. The sync job needs to read and modify playlists.
var Scopes = []string{"playlist-modify-public", "playlist-modify-private", "playlist-read-private"}

// Credentials is the client id/secret pair plus the long-lived refresh token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CredentialsFromEnv reads [Credentials] from the environment.
//
// A missing variable is an [shared.ErrAuth] that also matches [shared.ErrMissingCredentials].
func CredentialsFromEnv() (Credentials, error) {
	c := Credentials{
		ClientID:     strings.TrimSpace(os.Getenv(EnvClientID)),
		ClientSecret: strings.TrimSpace(os.Getenv(EnvClientSecret)),
		RefreshToken: strings.TrimSpace(os.Getenv(EnvRefreshToken)),
	}

	var absent []string
	if c.ClientID == "" {
		absent = append(absent, EnvClientID)
	}
	if c.ClientSecret == "" {
		absent = append(absent, EnvClientSecret)
	}
	if c.RefreshToken == "" {
		absent = append(absent, EnvRefreshToken)
	}
	if len(absent) > 0 {
		return c, fmt.Errorf("%w: %w: %s", shared.ErrAuth, shared.ErrMissingCredentials, strings.Join(absent, ", "))
	}
	return c, nil
}

// NewOAuthConfig builds the [oauth2.Config] shared by the refresh grant and the auth code flow.
func NewOAuthConfig(clientID, clientSecret string, cfg shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL(),
			TokenURL:  cfg.TokenURL(),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// TokenManager exchanges the refresh token for short-lived access tokens.
//
// It is safe for concurrent use, though the sync engine calls it sequentially.
type TokenManager struct {
	config     *oauth2.Config
	httpClient *http.Client
	logger     *log.Logger

	mu           sync.Mutex
	refreshToken string
	token        *oauth2.Token
}

// NewTokenManager creates a [TokenManager]. A nil httpClient uses [http.DefaultClient].
func NewTokenManager(creds Credentials, cfg shared.SpotifyConfig, httpClient *http.Client, logger *log.Logger) *TokenManager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TokenManager{
		config:       NewOAuthConfig(creds.ClientID, creds.ClientSecret, cfg),
		httpClient:   httpClient,
		logger:       logger,
		refreshToken: creds.RefreshToken,
	}
}

// Acquire performs the refresh grant unconditionally and stores the new access token.
func (m *TokenManager) Acquire(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquire(ctx)
}

func (m *TokenManager) acquire(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	token, err := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: m.refreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: token refresh: %w", shared.ErrAuth, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: token response missing access_token", shared.ErrAuth)
	}

	if token.RefreshToken != "" && token.RefreshToken != m.refreshToken {
		m.logger.Info("refresh token was rotated; update SPOTIFY_REFRESH_TOKEN")
		m.refreshToken = token.RefreshToken
	}
	m.token = token
	m.logger.Debug("acquired access token", "expires", token.Expiry)
	return token.AccessToken, nil
}

// Token returns the current access token, acquiring a new one when none is valid.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token.Valid() {
		return m.token.AccessToken, nil
	}
	return m.acquire(ctx)
}

// RefreshToken returns the refresh token in use, which differs from the configured one after rotation.
func (m *TokenManager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshToken
}
