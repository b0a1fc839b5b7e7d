// Package app wires the monitor's components together and manages their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/database"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/scheduler"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/webhook"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/whatsapp"
)

// App runs the webhook server and the daily scheduler, handling graceful
// shutdown on context cancellation.
type App struct {
	logger    *slog.Logger
	store     database.Store
	bridge    *whatsapp.Client
	server    *webhook.Server
	scheduler *scheduler.Scheduler
}

// New creates the application orchestrator with all required components.
func New(
	logger *slog.Logger,
	store database.Store,
	bridge *whatsapp.Client,
	server *webhook.Server,
	sched *scheduler.Scheduler,
) *App {
	return &App{
		logger:    logger.With("component", "app"),
		store:     store,
		bridge:    bridge,
		server:    server,
		scheduler: sched,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting WhatsApp Groups Monitor...")

	a.syncGroups(ctx)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Run(gCtx)
	})

	g.Go(func() error {
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	a.logger.Info("Monitor running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Monitor stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Monitor stopped gracefully.")
	return nil
}

// syncGroups seeds the group table from the bridge's group list. Best effort:
// groups are also created lazily on first observed message, so a bridge
// hiccup here is not fatal.
func (a *App) syncGroups(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	groups, err := a.bridge.Groups(syncCtx)
	if err != nil {
		a.logger.Warn("Startup group sync failed, groups will be created on first message", "error", err)
		return
	}

	synced := 0
	for _, g := range groups {
		if g.JID == "" {
			continue
		}
		if _, err := a.store.UpsertGroup(syncCtx, whatsapp.NormalizeJID(g.JID), g.Name); err != nil {
			a.logger.Warn("Failed to sync group", "jid", g.JID, "error", err)
			continue
		}
		synced++
	}
	a.logger.Info("Synced existing groups from bridge", "count", synced)
}
