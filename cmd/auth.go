package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/cardx/internal/models"
	"github.com/desertthunder/cardx/internal/repositories"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges username and password for a token and saves it for the configured server.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	username := cmd.String("username")
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or CARDX_PASSWORD is required", shared.ErrMissingArgument)
	}

	creds, err := r.store()
	if err != nil {
		return err
	}

	r.logger.Info("logging in", "username", username, "server", r.api.BaseURL())

	tok, err := r.api.Login(ctx, username, password)
	if err != nil {
		return err
	}

	cred := models.NewCredential(r.api.BaseURL(), username, tok.AccessToken, tok.TokenType)
	if err := creds.Save(cred); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	r.logger.Info("login saved", "username", username)
	return r.writePlain("✓ Logged in as %s\n", username)
}

// AuthRegister creates an account. It does not log in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	username := cmd.String("username")
	password := cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or CARDX_PASSWORD is required", shared.ErrMissingArgument)
	}

	user, err := r.api.Register(ctx, username, cmd.String("email"), password)
	if err != nil {
		return err
	}

	r.writePlain("✓ Registered %s\n", user.Username)
	return r.writePlain("Run 'cardx auth login -u %s' to sign in\n", user.Username)
}

// AuthLogout removes the saved login for the configured server.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	creds, err := r.store()
	if err != nil {
		return err
	}

	removed, err := creds.DeleteForServer(r.api.BaseURL())
	if err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	r.api.SetToken("")

	if !removed {
		return r.writePlain("Not logged in to %s\n", r.api.BaseURL())
	}
	return r.writePlain("✓ Logged out of %s\n", r.api.BaseURL())
}

// AuthStatus reports the saved login and whether the server still accepts it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds, err := r.store()
	if err != nil {
		return err
	}

	cred, err := creds.Current(r.api.BaseURL())
	if errors.Is(err, repositories.ErrCredentialNotFound) {
		r.writePlain("Server: %s\n", r.api.BaseURL())
		return r.writePlain("Authentication: ✗ Not logged in\n")
	}
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	r.api.SetToken(cred.AccessToken())
	r.writePlain("Server: %s\n", cred.Server())
	r.writePlain("Saved login: %s (since %s)\n", cred.Username(), cred.UpdatedAt().Local().Format("2006-01-02 15:04"))

	user, err := r.api.Me(ctx)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return r.writePlain("Authentication: ✗ Token rejected, run 'cardx auth login' again\n")
	}
	if err != nil {
		return err
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	if user.Email != "" {
		r.writePlain("Email: %s\n", user.Email)
	}
	if user.Role != "" {
		r.writePlain("Role: %s\n", user.Role)
	}
	return nil
}
