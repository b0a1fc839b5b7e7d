package whatsapp

import "strings"

// JID network suffixes used by WhatsApp. Group addresses contain a '-' in
// the local part and carry the group suffix; user addresses carry the user
// suffix.
const (
	userSuffix  = "@s.whatsapp.net"
	groupSuffix = "@g.us"
)

// NormalizeJID strips whatever network suffix a JID carries and re-adds the
// canonical one, so addresses compare reliably regardless of how the bridge
// formatted them.
func NormalizeJID(jid string) string {
	if jid == "" {
		return ""
	}
	local := strings.SplitN(jid, "@", 2)[0]
	if strings.Contains(local, "-") {
		return local + groupSuffix
	}
	return local + userSuffix
}

// BareJID returns the local part of a JID, used as a participant tag when no
// display name is known.
func BareJID(jid string) string {
	return strings.SplitN(jid, "@", 2)[0]
}

// FormatPhone normalizes a phone number for the bridge: leading '+', no
// spaces or dashes.
func FormatPhone(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	if phone != "" && !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone
}
