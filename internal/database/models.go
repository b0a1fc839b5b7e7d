package database

import (
	"database/sql"
	"time"
)

// Message type tags stored in the messages table.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeDocument = "document"
	TypeAudio    = "audio"
	TypeOther    = "other"
)

// Group represents a WhatsApp group known to the monitor. A group is created
// the first time a message from its JID is observed and is never deleted by
// the core. LastSummarySync is the watermark up to which the group's messages
// have been included in a scheduled summary.
type Group struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	GroupJID        string    `db:"group_jid"`
	GroupName       string    `db:"group_name"`
	Managed         bool      `db:"managed"`
	LastSummarySync time.Time `db:"last_summary_sync"`
}

// Message represents a message observed in a WhatsApp group chat. Rows are
// immutable once stored; MessageID is the dedup key enforced by a unique
// constraint.
type Message struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	MessageID   string    `db:"message_id"`
	GroupJID    string    `db:"group_jid"`
	SenderJID   string    `db:"sender_jid"`
	SenderName  string    `db:"sender_name"`
	Content     string    `db:"content"`
	MessageType string    `db:"message_type"`
	Timestamp   time.Time `db:"timestamp"`
}

// SummaryLog is one row of the append-only audit trail: one row per
// (group, aggregation run), recording the generated text, the window covered,
// and the delivery outcome.
type SummaryLog struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	GroupJID         string         `db:"group_jid"`
	SummaryText      string         `db:"summary_text"`
	MessageCount     int            `db:"message_count"`
	StartTime        time.Time      `db:"start_time"`
	EndTime          time.Time      `db:"end_time"`
	SentSuccessfully bool           `db:"sent_successfully"`
	ErrorMessage     sql.NullString `db:"error_message"`
}
