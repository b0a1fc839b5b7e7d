package database_test

import (
	"strings"
	"testing"

	"github.com/tsuri55/whatsappgroupsmonitor/internal/database"
)

func TestPlainCodecPassthrough(t *testing.T) {
	t.Parallel()

	codec, err := database.NewCodec("")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	stored, err := codec.Encode("hello world")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if stored != "hello world" {
		t.Errorf("plain codec altered text on encode: %q", stored)
	}

	plain, err := codec.Decode(stored)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if plain != "hello world" {
		t.Errorf("plain codec altered text on decode: %q", plain)
	}
}

func TestAESCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec, err := database.NewCodec("my-secret-key")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	testCases := []struct {
		name  string
		input string
	}{
		{name: "simple text", input: "hello world"},
		{name: "hebrew text", input: "שלום לכולם, מה שלומכם?"},
		{name: "emoji and newlines", input: "line one 📱\nline two 📌"},
		{name: "long text", input: strings.Repeat("a fairly long message. ", 200)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			stored, err := codec.Encode(tc.input)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if stored == tc.input {
				t.Error("encode left the text in plaintext")
			}
			if !strings.HasPrefix(stored, "enc1:") {
				t.Errorf("encoded value missing marker prefix: %q", stored)
			}

			plain, err := codec.Decode(stored)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if plain != tc.input {
				t.Errorf("round trip mismatch: got %q, want %q", plain, tc.input)
			}
		})
	}
}

func TestAESCodecEmptyString(t *testing.T) {
	t.Parallel()

	codec, err := database.NewCodec("my-secret-key")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	stored, err := codec.Encode("")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if stored != "" {
		t.Errorf("empty input should stay empty, got %q", stored)
	}
}

// Rows written before encryption was enabled carry no marker and must come
// back unchanged.
func TestAESCodecLegacyPlaintext(t *testing.T) {
	t.Parallel()

	codec, err := database.NewCodec("my-secret-key")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	plain, err := codec.Decode("an old unencrypted row")
	if err != nil {
		t.Fatalf("decode of legacy row failed: %v", err)
	}
	if plain != "an old unencrypted row" {
		t.Errorf("legacy row altered: %q", plain)
	}
}

func TestAESCodecWrongKey(t *testing.T) {
	t.Parallel()

	writer, err := database.NewCodec("key-one")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	reader, err := database.NewCodec("key-two")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	stored, err := writer.Encode("sensitive text")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := reader.Decode(stored); err == nil {
		t.Fatal("decode with the wrong key should fail")
	}
}

func TestAESCodecMalformedValue(t *testing.T) {
	t.Parallel()

	codec, err := database.NewCodec("my-secret-key")
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	testCases := []struct {
		name   string
		stored string
	}{
		{name: "not base64", stored: "enc1:%%%not-base64%%%"},
		{name: "too short", stored: "enc1:QQ=="},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Decode(tc.stored); err == nil {
				t.Error("expected error for malformed value")
			}
		})
	}
}
