// Package commands recognizes keyword commands in direct messages from the
// authorized recipient and triggers on-demand summary generation.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/config"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/database"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/summary"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/whatsapp"
)

const ackMessage = "⏳ Generating summary for all groups... This may take a moment."

// Runner triggers the on-demand aggregation path. Satisfied by
// *summary.Aggregator.
type Runner interface {
	RunOnDemand(ctx context.Context, requester string) error
}

// Dispatcher matches direct messages against the configured command keywords.
// Only the single authorized recipient may issue commands; everyone else is
// ignored silently, so the bot's presence leaks to no one.
type Dispatcher struct {
	store      database.Store
	aggregator Runner
	sender     summary.Sender
	loc        *time.Location
	log        *slog.Logger

	authorized   string
	keywords     []string
	statsKeyword string
}

// NewDispatcher creates the dispatcher from the summary configuration
// section. The configured timezone must be valid; config.Load guarantees it.
func NewDispatcher(store database.Store, aggregator Runner, sender summary.Sender, cfg config.SummaryConfig, log *slog.Logger) (*Dispatcher, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	d := &Dispatcher{
		store:        store,
		aggregator:   aggregator,
		sender:       sender,
		loc:          loc,
		log:          log.With("component", "command_dispatcher"),
		authorized:   whatsapp.NormalizeJID(cfg.Recipient),
		keywords:     cfg.KeywordList(),
		statsKeyword: strings.ToLower(strings.TrimSpace(cfg.StatsKeyword)),
	}
	d.log.Info("Command dispatcher initialized",
		"authorized", d.authorized, "keywords", d.keywords)
	return d, nil
}

// Dispatch examines one direct message. It returns true when the message was
// a command and has been handled, false when it should be treated as an
// ordinary direct message.
func (d *Dispatcher) Dispatch(ctx context.Context, senderJID, text string) bool {
	if whatsapp.NormalizeJID(senderJID) != d.authorized {
		d.log.DebugContext(ctx, "Ignoring direct message from unauthorized sender", "sender", senderJID)
		return false
	}

	normalized := strings.ToLower(strings.TrimSpace(text))

	if d.statsKeyword != "" && matchesKeyword(normalized, d.statsKeyword) {
		d.log.InfoContext(ctx, "Processing stats command", "sender", senderJID)
		d.handleStats(ctx, senderJID)
		return true
	}

	for _, kw := range d.keywords {
		if matchesKeyword(normalized, kw) {
			d.log.InfoContext(ctx, "Processing summary command", "keyword", kw, "sender", senderJID)
			d.handleSummary(ctx, senderJID)
			return true
		}
	}

	return false
}

// matchesKeyword reports whether text is the keyword or starts with it
// followed by a space.
func matchesKeyword(text, keyword string) bool {
	return text == keyword || strings.HasPrefix(text, keyword+" ")
}

func (d *Dispatcher) handleSummary(ctx context.Context, requester string) {
	if err := d.sender.SendMessage(ctx, requester, ackMessage); err != nil {
		d.log.ErrorContext(ctx, "Failed to send acknowledgement", "error", err)
	}

	if err := d.aggregator.RunOnDemand(ctx, requester); err != nil {
		d.log.ErrorContext(ctx, "On-demand summary run failed", "error", err)
		if sendErr := d.sender.SendMessage(ctx, requester,
			fmt.Sprintf("❌ Error generating summary: %v", err)); sendErr != nil {
			d.log.ErrorContext(ctx, "Failed to send error notification", "error", sendErr)
		}
	}
}

func (d *Dispatcher) handleStats(ctx context.Context, requester string) {
	groupCount, err := d.store.CountGroups(ctx)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to count groups for stats", "error", err)
		return
	}

	now := time.Now().In(d.loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
	messageCount, err := d.store.CountMessagesSince(ctx, todayStart)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to count messages for stats", "error", err)
		return
	}

	reply := fmt.Sprintf("📊 Monitoring %d groups, %d messages today.", groupCount, messageCount)
	if err := d.sender.SendMessage(ctx, requester, reply); err != nil {
		d.log.ErrorContext(ctx, "Failed to send stats reply", "error", err)
	}
}
