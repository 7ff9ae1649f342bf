package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
		wantInfo  bool
	}{
		{"default", Options{}, false, true},
		{"debug", Options{Debug: true}, true, true},
		{"quiet", Options{Quiet: true}, false, false},
		{"quiet_wins_over_debug", Options{Debug: true, Quiet: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Output = &buf
			Init(tt.opts)
			defer Init(Options{})

			Debug("debug message")
			Info("info message")
			Error("error message")

			out := buf.String()
			if got := strings.Contains(out, "debug message"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(out, "info message"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
			if !strings.Contains(out, "error message") {
				t.Error("error message always logs")
			}
		})
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{JSON: true, Output: &buf})
	defer Init(Options{})

	Info("structured", "url", "https://example.com", "attempts", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "structured" {
		t.Errorf("msg = %v, want %q", entry["msg"], "structured")
	}
	if entry["url"] != "https://example.com" {
		t.Errorf("url attribute = %v", entry["url"])
	}
}

func TestSetLogger_RoutesThroughCustomLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer Init(Options{})

	Info("custom sink")
	if !strings.Contains(buf.String(), "custom sink") {
		t.Errorf("custom logger did not receive the message: %q", buf.String())
	}
}

func TestSetLogger_IgnoresNil(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Output: &buf})
	defer Init(Options{})

	SetLogger(nil)
	Info("still works")
	if !strings.Contains(buf.String(), "still works") {
		t.Error("nil SetLogger broke the active logger")
	}
}

func TestWith_CarriesAttributes(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{JSON: true, Output: &buf})
	defer Init(Options{})

	With("component", "pool").Info("scoped")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["component"] != "pool" {
		t.Errorf("component attribute = %v, want %q", entry["component"], "pool")
	}
}
