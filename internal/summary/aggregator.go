// Package summary implements the aggregation pipeline: per-group message
// selection, threshold gating, summary generation, consolidation, delivery,
// and watermark bookkeeping.
package summary

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/config"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/database"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/whatsapp"
)

// Summarizer generates a plain-text summary of a chat transcript.
// Satisfied by gemini.Client.
type Summarizer interface {
	Summarize(ctx context.Context, groupName, transcript string) (string, error)
}

// Sender delivers text through the WhatsApp bridge.
// Satisfied by *whatsapp.Client.
type Sender interface {
	SendMessage(ctx context.Context, phone, message string) error
}

// Aggregator runs summary generation over all managed groups. Groups are
// processed sequentially: keeps log ordering deterministic and bounds
// concurrent LLM quota usage.
type Aggregator struct {
	store      database.Store
	summarizer Summarizer
	sender     Sender
	cfg        config.SummaryConfig
	loc        *time.Location
	log        *slog.Logger

	now func() time.Time
}

// groupSummary is one group's successful result within a run.
type groupSummary struct {
	logID        uint
	groupName    string
	messageCount int
	text         string
}

// NewAggregator creates the aggregator. The configured timezone must be
// valid; config.Load guarantees that.
func NewAggregator(store database.Store, summarizer Summarizer, sender Sender, cfg config.SummaryConfig, log *slog.Logger) (*Aggregator, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return &Aggregator{
		store:      store,
		summarizer: summarizer,
		sender:     sender,
		cfg:        cfg,
		loc:        loc,
		log:        log.With("component", "aggregator"),
		now:        time.Now,
	}, nil
}

// RunScheduled executes the daily path: each managed group's window is
// [last_summary_sync, now). The consolidated result goes to the configured
// recipient, and the watermark of every non-skipped group advances to the
// window end regardless of delivery outcome.
func (a *Aggregator) RunScheduled(ctx context.Context) error {
	end := a.now().UTC()
	a.log.InfoContext(ctx, "Starting scheduled summary run", "window_end", end)

	groups, err := a.store.GetManagedGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch managed groups: %w", err)
	}
	if len(groups) == 0 {
		a.log.WarnContext(ctx, "No managed groups found, nothing to summarize")
		return nil
	}

	var results []groupSummary
	var processed []string

	for _, group := range groups {
		result, wasProcessed, err := a.summarizeGroup(ctx, group, group.LastSummarySync, end)
		if err != nil {
			return err
		}
		if wasProcessed {
			processed = append(processed, group.GroupJID)
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	a.log.InfoContext(ctx, "Scheduled summary generation complete",
		"groups", len(groups), "processed", len(processed), "summaries", len(results))

	if len(results) > 0 {
		a.deliver(ctx, a.cfg.Recipient, results, end)
	} else {
		a.log.InfoContext(ctx, "No summaries to send")
	}

	// Watermarks advance for every processed group, delivered or not, so
	// messages already handed to the LLM are not billed twice.
	for _, jid := range processed {
		if err := a.store.AdvanceLastSummarySync(ctx, jid, end); err != nil {
			return err
		}
	}

	return nil
}

// RunOnDemand executes the keyword-triggered path: every managed group's
// window is [start of today in the configured timezone, now). The result is
// delivered to the requester. No watermark moves.
func (a *Aggregator) RunOnDemand(ctx context.Context, requester string) error {
	now := a.now().In(a.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc).UTC()
	end := now.UTC()

	a.log.InfoContext(ctx, "Starting on-demand summary run",
		"requester", requester, "window_start", start, "window_end", end)

	groups, err := a.store.GetManagedGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch managed groups: %w", err)
	}

	var results []groupSummary
	for _, group := range groups {
		result, _, err := a.summarizeGroup(ctx, group, start, end)
		if err != nil {
			return err
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	if len(results) == 0 {
		a.log.InfoContext(ctx, "On-demand run produced no summaries")
		if err := a.sender.SendMessage(ctx, requester, noSummariesNotice); err != nil {
			a.log.ErrorContext(ctx, "Failed to send no-summaries notice", "error", err)
		}
		return nil
	}

	a.deliver(ctx, requester, results, end)
	return nil
}

// summarizeGroup handles one group within a run. It returns the group's
// result (nil when skipped or failed), whether the group was processed at all
// (i.e., cleared the threshold gate), and a storage error, which is fatal to
// the run. An LLM failure is not: it is recorded as an error row and the
// batch continues.
func (a *Aggregator) summarizeGroup(ctx context.Context, group database.Group, start, end time.Time) (*groupSummary, bool, error) {
	name := group.GroupName
	if name == "" {
		name = whatsapp.BareJID(group.GroupJID)
	}

	messages, err := a.store.GetMessagesInWindow(ctx, group.GroupJID, start, end)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch messages for group %s: %w", group.GroupJID, err)
	}

	if len(messages) < a.cfg.MinMessages {
		a.log.DebugContext(ctx, "Skipping group below message threshold",
			"group", name, "count", len(messages), "min", a.cfg.MinMessages)
		return nil, false, nil
	}

	if len(messages) > a.cfg.MaxMessages {
		a.log.WarnContext(ctx, "Truncating group messages for summary",
			"group", name, "count", len(messages), "max", a.cfg.MaxMessages)
		messages = messages[len(messages)-a.cfg.MaxMessages:]
	}

	entry := &database.SummaryLog{
		GroupJID:     group.GroupJID,
		MessageCount: len(messages),
		StartTime:    start,
		EndTime:      end,
	}

	text, err := a.summarizer.Summarize(ctx, name, Transcript(messages))
	if err != nil {
		a.log.ErrorContext(ctx, "Summary generation failed for group",
			"group", name, "error", err)
		entry.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		if saveErr := a.store.SaveSummaryLog(ctx, entry); saveErr != nil {
			return nil, true, saveErr
		}
		return nil, true, nil
	}

	entry.SummaryText = text
	if err := a.store.SaveSummaryLog(ctx, entry); err != nil {
		return nil, true, err
	}

	a.log.InfoContext(ctx, "Generated summary for group",
		"group", name, "message_count", entry.MessageCount)

	return &groupSummary{
		logID:        entry.ID,
		groupName:    name,
		messageCount: entry.MessageCount,
		text:         text,
	}, true, nil
}

// deliver sends the consolidated message and, on success, flags the included
// summary rows as sent. A delivery failure is logged and absorbed: the
// summaries remain in the audit log for manual re-delivery.
func (a *Aggregator) deliver(ctx context.Context, to string, results []groupSummary, end time.Time) {
	consolidated := Consolidate(end.In(a.loc), results)

	if err := a.sender.SendMessage(ctx, to, consolidated); err != nil {
		a.log.ErrorContext(ctx, "Failed to deliver consolidated summary", "to", to, "error", err)
		return
	}

	ids := make([]uint, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.logID)
	}
	if err := a.store.MarkSummariesSent(ctx, ids); err != nil {
		a.log.ErrorContext(ctx, "Failed to mark summaries as sent", "error", err)
	}
}
