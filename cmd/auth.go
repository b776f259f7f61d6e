package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/radiosync/internal/server"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// authTimeout is how long the auth command waits for the browser callback by default.
const authTimeout = 2 * time.Minute

// clientCredentials reads the client id and secret; the auth command runs before a
// refresh token exists.
func clientCredentials() (string, string, error) {
	id := strings.TrimSpace(os.Getenv(services.EnvClientID))
	secret := strings.TrimSpace(os.Getenv(services.EnvClientSecret))
	if id == "" || secret == "" {
		return "", "", fmt.Errorf("%w: %w: %s and %s are required", shared.ErrAuth, shared.ErrMissingCredentials, services.EnvClientID, services.EnvClientSecret)
	}
	return id, secret, nil
}

// Auth runs the authorization code flow against a local callback server and prints the
// refresh token to store in the environment.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	id, secret, err := clientCredentials()
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return err
	}

	config := services.NewOAuthConfig(id, secret, r.config.Spotify)
	handler := server.NewOAuthHandler(config, state)
	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	srv := server.NewCallbackServer(addr, handler, r.logger)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("failed to stop callback server", "err", err)
		}
	}()

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	r.writePlain("Open this URL to authorize:\n\n  %s\n\n", authURL)
	if !cmd.Bool("no-browser") {
		if err := r.openBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "err", err)
		}
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}
	token, err := srv.Wait(ctx, timeout)
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("%w: token response carried no refresh token", shared.ErrAuth)
	}

	r.logger.Info("authorization complete", "expires", token.Expiry)
	r.writePlain("✓ Authorization complete\n")
	return r.writePlainln("Add this line to your environment or .env file:\n\n%s=%s", services.EnvRefreshToken, token.RefreshToken)
}
