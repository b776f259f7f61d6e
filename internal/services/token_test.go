package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/radiosync/internal/shared"
	tu "github.com/desertthunder/radiosync/internal/testing"
)

func fakeConfig(fake *tu.FakeSpotify) shared.SpotifyConfig {
	cfg := shared.DefaultConfig().Spotify
	cfg.APIURL = fake.APIURL()
	cfg.AccountsURL = fake.AccountsURL()
	cfg.RequestsPerSecond = 0
	return cfg
}

func fakeCredentials() Credentials {
	return Credentials{ClientID: tu.FakeClientID, ClientSecret: tu.FakeClientSecret, RefreshToken: tu.FakeRefreshToken}
}

func newTokenManager(fake *tu.FakeSpotify, creds Credentials) *TokenManager {
	return NewTokenManager(creds, fakeConfig(fake), fake.Server.Client(), shared.NewLogger(io.Discard))
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		t.Setenv(EnvClientID, "id")
		t.Setenv(EnvClientSecret, "secret")
		t.Setenv(EnvRefreshToken, " refresh ")

		creds, err := CredentialsFromEnv()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if creds.RefreshToken != "refresh" {
			t.Errorf("expected trimmed refresh token, got %q", creds.RefreshToken)
		}
	})

	tc := []struct {
		name  string
		unset string
	}{
		{name: "missing client id", unset: EnvClientID},
		{name: "missing client secret", unset: EnvClientSecret},
		{name: "missing refresh token", unset: EnvRefreshToken},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvClientID, "id")
			t.Setenv(EnvClientSecret, "secret")
			t.Setenv(EnvRefreshToken, "refresh")
			t.Setenv(tt.unset, "")

			_, err := CredentialsFromEnv()
			if !errors.Is(err, shared.ErrAuth) {
				t.Errorf("expected ErrAuth, got %v", err)
			}
			if !errors.Is(err, shared.ErrConfig) {
				t.Errorf("expected error to also match ErrConfig, got %v", err)
			}
		})
	}
}

func TestTokenManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Acquire exchanges the refresh token", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		tm := newTokenManager(fake, fakeCredentials())

		token, err := tm.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if token != "access-1" {
			t.Errorf("expected access-1, got %s", token)
		}
	})

	t.Run("Token reuses a valid token", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		tm := newTokenManager(fake, fakeCredentials())

		first, err := tm.Token(ctx)
		if err != nil {
			t.Fatal(err)
		}
		second, _ := tm.Token(ctx)
		if first != second || fake.TokenRequests() != 1 {
			t.Errorf("expected one exchange, got %d (%s, %s)", fake.TokenRequests(), first, second)
		}

		third, _ := tm.Acquire(ctx)
		if third == first || fake.TokenRequests() != 2 {
			t.Errorf("Acquire should always exchange, got %s after %d requests", third, fake.TokenRequests())
		}
	})

	t.Run("rejected client secret", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		creds := fakeCredentials()
		creds.ClientSecret = "wrong"
		tm := newTokenManager(fake, creds)

		if _, err := tm.Acquire(ctx); !errors.Is(err, shared.ErrAuth) {
			t.Errorf("expected ErrAuth, got %v", err)
		}
	})

	t.Run("response without access token", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.OmitAccessToken = true
		tm := newTokenManager(fake, fakeCredentials())

		if _, err := tm.Acquire(ctx); !errors.Is(err, shared.ErrAuth) {
			t.Errorf("expected ErrAuth, got %v", err)
		}
	})

	t.Run("rotated refresh token replaces the stored one", func(t *testing.T) {
		fake := tu.NewFakeSpotify(t)
		fake.RotateRefreshToken = "rotated"
		tm := newTokenManager(fake, fakeCredentials())

		if _, err := tm.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
		if tm.RefreshToken() != "rotated" {
			t.Errorf("expected rotated refresh token, got %s", tm.RefreshToken())
		}
		if _, err := tm.Acquire(ctx); err != nil {
			t.Errorf("rotated token should be accepted: %v", err)
		}
	})
}
