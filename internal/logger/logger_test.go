package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false).With("request_id", "req-1")

	ctx := WithContext(context.Background(), l)
	FromContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["request_id"] != "req-1" || entry["msg"] != "hello" {
		t.Errorf("unexpected log entry %v", entry)
	}
}

func TestFromContextFallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext() returned nil without a stored logger")
	}
}

func TestNewDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %q", buf.String())
	}

	New(&buf, true).Debug("shown")
	if buf.Len() == 0 {
		t.Fatal("debug line missing in debug mode")
	}
}
