package webhook

import (
	"context"
	"log/slog"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/database"
)

// CommandDispatcher routes direct messages that may be commands.
// Satisfied by *commands.Dispatcher.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, senderJID, text string) bool
}

// Ingestor validates and normalizes inbound payloads, persists group
// messages, and routes direct messages to the command dispatcher.
type Ingestor struct {
	store      database.Store
	dispatcher CommandDispatcher
	selfJID    string
	log        *slog.Logger
}

// NewIngestor creates the ingestion handler. selfJID, when known, filters out
// the bridge account's own messages; pass empty to disable the filter.
func NewIngestor(store database.Store, dispatcher CommandDispatcher, selfJID string, log *slog.Logger) *Ingestor {
	return &Ingestor{
		store:      store,
		dispatcher: dispatcher,
		selfJID:    selfJID,
		log:        log.With("component", "ingestor"),
	}
}

// Process handles one inbound payload end to end. Malformed payloads are
// logged and dropped; the webhook response is unaffected either way, since
// the bridge's at-least-once delivery has no retry contract worth triggering.
func (i *Ingestor) Process(ctx context.Context, payload *Payload) {
	msg, err := parsePayload(payload)
	if err != nil {
		i.log.WarnContext(ctx, "Dropping malformed payload", "error", err)
		return
	}

	if i.selfJID != "" && msg.SenderJID == i.selfJID {
		i.log.DebugContext(ctx, "Skipping message from self")
		return
	}

	if msg.IsDirect() {
		if i.dispatcher.Dispatch(ctx, msg.SenderJID, msg.Content) {
			i.log.DebugContext(ctx, "Direct message handled as command", "sender", msg.SenderJID)
		} else {
			i.log.DebugContext(ctx, "Ignoring non-command direct message", "sender", msg.SenderJID)
		}
		return
	}

	if _, err := i.store.UpsertGroup(ctx, msg.GroupJID, ""); err != nil {
		i.log.ErrorContext(ctx, "Failed to upsert group",
			"group_jid", msg.GroupJID, "error", err)
		return
	}

	inserted, err := i.store.SaveMessage(ctx, &database.Message{
		MessageID:   msg.MessageID,
		GroupJID:    msg.GroupJID,
		SenderJID:   msg.SenderJID,
		SenderName:  msg.SenderName,
		Content:     msg.Content,
		MessageType: msg.MessageType,
		Timestamp:   msg.Timestamp,
	})
	if err != nil {
		i.log.ErrorContext(ctx, "Failed to save message",
			"message_id", msg.MessageID, "group_jid", msg.GroupJID, "error", err)
		return
	}

	if inserted {
		i.log.InfoContext(ctx, "Stored group message",
			"message_id", msg.MessageID, "group_jid", msg.GroupJID, "type", msg.MessageType)
	}
}
