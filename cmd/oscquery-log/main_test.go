package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plml/oscquery-go/pkg/log"
)

func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.olog")
	fl, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	fl.Log(log.Event{
		Timestamp: time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC),
		SessionID: "ws-1",
		Channel:   log.ChannelSubscription,
		Category:  log.CategoryCommand,
		Command:   &log.CommandEvent{Command: "LISTEN", Data: "/a"},
	})
	fl.Close()
	return path
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 1 {
		t.Errorf("no args exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Usage:") {
		t.Error("usage not printed")
	}

	stdout.Reset()
	if code := run([]string{"help"}, &stdout, &stderr); code != 0 {
		t.Errorf("help exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "oscquery-log <command>") {
		t.Error("help not printed to stdout")
	}

	stderr.Reset()
	if code := run([]string{"bogus"}, &stdout, &stderr); code != 1 {
		t.Errorf("unknown command exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "Unknown command: bogus") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunCommands(t *testing.T) {
	path := writeLog(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"view", []string{"view", "--category", "command", path}, "Command: LISTEN"},
		{"export", []string{"export", "--format", "jsonl", path}, `"Command":"LISTEN"`},
		{"stats", []string{"stats", path}, "Total Events: 1"},
		{"filter", []string{"filter", "-o", filepath.Join(t.TempDir(), "out.olog"), path}, "Filtered 1 events"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 0 {
				t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
			}
			if !strings.Contains(stdout.String(), tt.want) {
				t.Errorf("stdout missing %q:\n%s", tt.want, stdout.String())
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	path := writeLog(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing path", []string{"view"}, "log file path required"},
		{"filter without output", []string{"filter", path}, "output file (-o) required"},
		{"bad channel", []string{"view", "--channel", "smtp", path}, "invalid channel"},
		{"bad flag", []string{"stats", "--nope", path}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(tt.args, &stdout, &stderr); code != 1 {
				t.Fatalf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr missing %q:\n%s", tt.want, stderr.String())
			}
		})
	}
}
