package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestInitWithWriterJSONFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, Config{Service: "router-test"})
	t.Cleanup(func() { Init() })

	log.Info().Str("agent", "finance").Msg("dispatched")
	log.Debug().Msg("hidden at info level")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected exactly one line, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["service"] != "router-test" || entry["agent"] != "finance" || entry["message"] != "dispatched" {
		t.Fatalf("unexpected log entry: %#v", entry)
	}
}

func TestInitWithWriterDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, Config{Debug: true})
	t.Cleanup(func() { Init() })

	log.Debug().Msg("visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Fatalf("debug line missing: %s", buf.String())
	}
}
