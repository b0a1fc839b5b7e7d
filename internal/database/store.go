package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertGroup creates the group on first sight (managed by default) or
	// updates its display name when a non-empty new name is learned. It never
	// touches the managed flag or the summary watermark of an existing group.
	UpsertGroup(ctx context.Context, groupJID, groupName string) (*Group, error)

	// GetManagedGroups retrieves all groups flagged for monitoring.
	GetManagedGroups(ctx context.Context) ([]Group, error)

	// SaveMessage inserts a new message record. Duplicate message IDs are a
	// no-op enforced by the storage constraint; the boolean reports whether a
	// row was actually inserted.
	SaveMessage(ctx context.Context, message *Message) (bool, error)

	// GetMessagesInWindow retrieves a group's messages with timestamp in
	// [start, end), in chronological order.
	GetMessagesInWindow(ctx context.Context, groupJID string, start, end time.Time) ([]Message, error)

	// SaveSummaryLog appends one summary audit row.
	SaveSummaryLog(ctx context.Context, log *SummaryLog) error

	// MarkSummariesSent flags the given summary log rows as delivered.
	MarkSummariesSent(ctx context.Context, ids []uint) error

	// AdvanceLastSummarySync moves a group's watermark forward to ts.
	// The watermark never moves backward.
	AdvanceLastSummarySync(ctx context.Context, groupJID string, ts time.Time) error

	// GetGroup retrieves a group by JID. Returns nil, nil if not found.
	GetGroup(ctx context.Context, groupJID string) (*Group, error)

	// CountGroups returns the number of known groups.
	CountGroups(ctx context.Context) (int, error)

	// CountMessagesSince returns the number of stored messages with
	// timestamp at or after ts.
	CountMessagesSince(ctx context.Context, ts time.Time) (int, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
// Message content and summary text pass through the codec on write and read.
type sqlxStore struct {
	db     *sqlx.DB
	codec  Codec
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx. It requires a
// connected sqlx.DB instance, a text codec, and a logger.
func NewStore(db *sqlx.DB, codec Codec, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if codec == nil {
		codec = plainCodec{}
	}
	return &sqlxStore{
		db:     db,
		codec:  codec,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) UpsertGroup(ctx context.Context, groupJID, groupName string) (*Group, error) {
	if groupJID == "" {
		return nil, fmt.Errorf("group JID cannot be empty")
	}

	now := time.Now().UTC()

	// Single-statement upsert so concurrent webhook deliveries cannot race a
	// check-then-insert. A new group starts managed with its watermark at
	// creation time; an existing group only picks up a non-empty new name.
	query := `
        INSERT INTO groups (group_jid, group_name, managed, last_summary_sync, created_at, updated_at)
        VALUES (?, ?, TRUE, ?, ?, ?)
        ON CONFLICT(group_jid) DO UPDATE SET
            group_name = CASE WHEN excluded.group_name != '' THEN excluded.group_name ELSE groups.group_name END,
            updated_at = excluded.updated_at;
    `

	if _, err := s.db.ExecContext(ctx, query, groupJID, groupName, now, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting group", "group_jid", groupJID, "error", err)
		return nil, fmt.Errorf("failed to upsert group %s: %w", groupJID, err)
	}

	group, err := s.GetGroup(ctx, groupJID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, fmt.Errorf("group %s missing after upsert", groupJID)
	}
	return group, nil
}

func (s *sqlxStore) GetGroup(ctx context.Context, groupJID string) (*Group, error) {
	var group Group
	query := `SELECT id, group_jid, group_name, managed, last_summary_sync, created_at, updated_at
	          FROM groups WHERE group_jid = ?`

	err := s.db.GetContext(ctx, &group, query, groupJID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting group", "group_jid", groupJID, "error", err)
		return nil, fmt.Errorf("failed to get group %s: %w", groupJID, err)
	}
	return &group, nil
}

func (s *sqlxStore) GetManagedGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	query := `SELECT id, group_jid, group_name, managed, last_summary_sync, created_at, updated_at
	          FROM groups WHERE managed ORDER BY group_jid`

	if err := s.db.SelectContext(ctx, &groups, query); err != nil {
		s.logger.ErrorContext(ctx, "Error getting managed groups", "error", err)
		return nil, fmt.Errorf("failed to get managed groups: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched managed groups", "count", len(groups))
	return groups, nil
}

// SaveMessage inserts a new message record. Dedup is enforced by the unique
// constraint on message_id: a conflicting insert affects zero rows and is
// reported as (false, nil), never as an error.
func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) (bool, error) {
	if message == nil {
		return false, fmt.Errorf("cannot save nil message")
	}
	if message.MessageID == "" {
		return false, fmt.Errorf("message must have a non-empty message_id")
	}
	if message.GroupJID == "" {
		return false, fmt.Errorf("message must have a non-empty group_jid")
	}
	if message.Timestamp.IsZero() {
		return false, fmt.Errorf("message must have a non-zero timestamp")
	}

	message.CreatedAt = time.Now().UTC()
	message.Timestamp = message.Timestamp.UTC()

	content, err := s.codec.Encode(message.Content)
	if err != nil {
		return false, fmt.Errorf("failed to encode message content: %w", err)
	}

	query := `
        INSERT INTO messages (message_id, group_jid, sender_jid, sender_name, content, message_type, timestamp, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(message_id) DO NOTHING;
    `

	result, err := s.db.ExecContext(ctx, query,
		message.MessageID, message.GroupJID, message.SenderJID, message.SenderName,
		content, message.MessageType, message.Timestamp, message.CreatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message",
			"message_id", message.MessageID, "group_jid", message.GroupJID, "error", err)
		return false, fmt.Errorf("failed to save message %s: %w", message.MessageID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count after saving message",
			"message_id", message.MessageID, "error", err)
		return true, nil
	}
	if affected == 0 {
		s.logger.DebugContext(ctx, "Duplicate message delivery ignored", "message_id", message.MessageID)
		return false, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		message.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Message saved successfully",
		"message_id", message.MessageID, "group_jid", message.GroupJID)
	return true, nil
}

func (s *sqlxStore) GetMessagesInWindow(ctx context.Context, groupJID string, start, end time.Time) ([]Message, error) {
	if groupJID == "" {
		return nil, fmt.Errorf("group_jid cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var messages []Message
	query := `
        SELECT id, message_id, group_jid, sender_jid, sender_name, content, message_type, timestamp, created_at
        FROM messages
        WHERE group_jid = ? AND timestamp >= ? AND timestamp < ?
        ORDER BY timestamp ASC, id ASC;
    `

	err := s.db.SelectContext(ctx, &messages, query, groupJID, start.UTC(), end.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting messages in window",
			"group_jid", groupJID, "start", start, "end", end, "error", err)
		return nil, fmt.Errorf("failed to get messages for group %s: %w", groupJID, err)
	}

	for i := range messages {
		content, err := s.codec.Decode(messages[i].Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode content of message %s: %w", messages[i].MessageID, err)
		}
		messages[i].Content = content
	}

	s.logger.DebugContext(ctx, "Fetched messages in window",
		"group_jid", groupJID, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) SaveSummaryLog(ctx context.Context, log *SummaryLog) error {
	if log == nil {
		return fmt.Errorf("cannot save nil summary log")
	}

	log.CreatedAt = time.Now().UTC()

	text, err := s.codec.Encode(log.SummaryText)
	if err != nil {
		return fmt.Errorf("failed to encode summary text: %w", err)
	}

	query := `
        INSERT INTO summary_logs (group_jid, summary_text, message_count, start_time, end_time, sent_successfully, error_message, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?);
    `

	result, err := s.db.ExecContext(ctx, query,
		log.GroupJID, text, log.MessageCount, log.StartTime.UTC(), log.EndTime.UTC(),
		log.SentSuccessfully, log.ErrorMessage, log.CreatedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving summary log", "group_jid", log.GroupJID, "error", err)
		return fmt.Errorf("failed to save summary log for group %s: %w", log.GroupJID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		//nolint:gosec // integer overflow conversion is acceptable here
		log.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Summary log saved",
		"group_jid", log.GroupJID, "message_count", log.MessageCount, "sent", log.SentSuccessfully)
	return nil
}

func (s *sqlxStore) MarkSummariesSent(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`UPDATE summary_logs SET sent_successfully = TRUE WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build query for marking summaries sent: %w", err)
	}

	query = s.db.Rebind(query)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking summaries as sent", "error", err)
		return fmt.Errorf("failed to mark summaries as sent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && int(affected) != len(ids) {
		s.logger.WarnContext(ctx, "Not all summary logs were marked as sent",
			"requested", len(ids), "affected", affected)
	}

	s.logger.DebugContext(ctx, "Marked summaries as sent", "count", len(ids))
	return nil
}

func (s *sqlxStore) AdvanceLastSummarySync(ctx context.Context, groupJID string, ts time.Time) error {
	if groupJID == "" {
		return fmt.Errorf("group_jid cannot be empty")
	}

	// Guard in the WHERE clause keeps the watermark monotonic.
	query := `UPDATE groups SET last_summary_sync = ?, updated_at = ?
	          WHERE group_jid = ? AND last_summary_sync < ?`

	ts = ts.UTC()
	if _, err := s.db.ExecContext(ctx, query, ts, time.Now().UTC(), groupJID, ts); err != nil {
		s.logger.ErrorContext(ctx, "Error advancing summary watermark",
			"group_jid", groupJID, "to", ts, "error", err)
		return fmt.Errorf("failed to advance watermark for group %s: %w", groupJID, err)
	}

	s.logger.DebugContext(ctx, "Advanced summary watermark", "group_jid", groupJID, "to", ts)
	return nil
}

func (s *sqlxStore) CountGroups(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM groups`); err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) CountMessagesSince(ctx context.Context, ts time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM messages WHERE timestamp >= ?`
	if err := s.db.GetContext(ctx, &count, query, ts.UTC()); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
