package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cardx/internal/session"
	"github.com/desertthunder/cardx/internal/shared"
	"github.com/desertthunder/cardx/internal/ui"
	"github.com/desertthunder/cardx/internal/view"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive upload dashboard with live status updates.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.TUIFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	token, err := r.authenticate()
	if err != nil {
		return err
	}

	pages := view.New(view.Options{
		Lister:   r.api,
		PageSize: r.config.Listing.PageSize,
		Logger:   r.logger,
	})
	bridge := ui.NewBridge(128)
	defer bridge.Close()

	sess := session.New(session.Options{
		Dialer:         r.eventDialer(),
		Store:          pages.Store(),
		Notifier:       bridge,
		Observer:       bridge,
		ReconnectDelay: r.config.Stream.ReconnectDelay,
		ConnectDelay:   r.config.Stream.ConnectDelay,
		AlertOnFinal:   r.config.Notifications.AlertOnFinal,
		Logger:         r.logger,
	})
	if err := sess.Start(token); err != nil {
		return err
	}
	defer sess.Close()

	model := ui.NewModel(ctx, pages, r.api, bridge)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
