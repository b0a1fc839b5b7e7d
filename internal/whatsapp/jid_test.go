package whatsapp_test

import (
	"testing"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/whatsapp"
)

func TestNormalizeJID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare phone number",
			input:    "972501234567",
			expected: "972501234567@s.whatsapp.net",
		},
		{
			name:     "user jid already canonical",
			input:    "972501234567@s.whatsapp.net",
			expected: "972501234567@s.whatsapp.net",
		},
		{
			name:     "user jid with device suffix host",
			input:    "972501234567@c.us",
			expected: "972501234567@s.whatsapp.net",
		},
		{
			name:     "group jid already canonical",
			input:    "123456789-987654@g.us",
			expected: "123456789-987654@g.us",
		},
		{
			name:     "bare group id",
			input:    "123456789-987654",
			expected: "123456789-987654@g.us",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := whatsapp.NormalizeJID(tc.input); got != tc.expected {
				t.Errorf("NormalizeJID(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestBareJID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{input: "972501234567@s.whatsapp.net", expected: "972501234567"},
		{input: "123-456@g.us", expected: "123-456"},
		{input: "972501234567", expected: "972501234567"},
		{input: "", expected: ""},
	}

	for _, tc := range testCases {
		if got := whatsapp.BareJID(tc.input); got != tc.expected {
			t.Errorf("BareJID(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{input: "972501234567", expected: "+972501234567"},
		{input: "+972501234567", expected: "+972501234567"},
		{input: "+972 50-123-4567", expected: "+972501234567"},
		{input: "", expected: ""},
	}

	for _, tc := range testCases {
		if got := whatsapp.FormatPhone(tc.input); got != tc.expected {
			t.Errorf("FormatPhone(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
