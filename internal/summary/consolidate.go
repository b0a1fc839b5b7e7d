package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/database"
	"github.com/tsuri55/whatsappgroupsmonitor/internal/whatsapp"
)

const noSummariesNotice = "ℹ️ No summaries were generated - no group reached the minimum message threshold today."

var sectionRule = strings.Repeat("=", 50)

// Transcript formats messages into the text handed to the summarization
// function, one line per message. Senders appear under their display name,
// falling back to the bare JID when none was learned.
func Transcript(messages []database.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		sender := m.SenderName
		if sender == "" {
			sender = whatsapp.BareJID(m.SenderJID)
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			m.Timestamp.Format("2006-01-02 15:04:05"), sender, m.Content))
	}
	return strings.Join(lines, "\n")
}

// Consolidate concatenates all per-group summaries from one run into the
// single outbound message: date header, one section per group with its name
// and message count, and a footer.
func Consolidate(date time.Time, results []groupSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📱 Daily WhatsApp Groups Summary - %s\n", date.Format("2006-01-02")))
	sb.WriteString(sectionRule + "\n\n")

	sections := make([]string, 0, len(results))
	for _, r := range results {
		sections = append(sections, fmt.Sprintf("📌 *%s* (%d messages)\n%s\n", r.groupName, r.messageCount, r.text))
	}
	sb.WriteString(strings.Join(sections, "\n\n"))

	sb.WriteString("\n" + sectionRule + "\n")
	sb.WriteString("Generated by WhatsApp Groups Monitor")

	return sb.String()
}
