package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plml/oscquery-go/pkg/log"
)

var t0 = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.olog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp:  t0,
			SessionID:  "ctl-0001-aaaa",
			Direction:  log.DirectionIn,
			Channel:    log.ChannelControl,
			Category:   log.CategoryMessage,
			RemoteAddr: "192.168.1.20:50000",
			Message:    &log.MessageEvent{Address: "/hands/left/x", Args: []any{0.25}},
		},
		{
			Timestamp: t0.Add(time.Second),
			SessionID: "ctl-0001-aaaa",
			Direction: log.DirectionIn,
			Channel:   log.ChannelControl,
			Category:  log.CategoryMessage,
			Message:   &log.MessageEvent{Address: "/render/mode", Args: []any{"hexagon"}, Rejection: "value out of range"},
		},
		{
			Timestamp: t0.Add(2 * time.Second),
			SessionID: "ws-0002-bbbb",
			Direction: log.DirectionIn,
			Channel:   log.ChannelSubscription,
			Category:  log.CategoryCommand,
			Command:   &log.CommandEvent{Command: "LISTEN", Data: "/hands/left/x"},
		},
		{
			Timestamp: t0.Add(3 * time.Second),
			SessionID: "ws-0002-bbbb",
			Direction: log.DirectionOut,
			Channel:   log.ChannelSubscription,
			Category:  log.CategoryMessage,
			Message:   &log.MessageEvent{Address: "/hands/left/x", Args: []any{0.5}},
		},
		{
			Timestamp: t0.Add(4 * time.Second),
			Direction: log.DirectionOut,
			Channel:   log.ChannelDiscovery,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityAdvertisement,
				NewState: "ADVERTISED",
				Reason:   "Test._osc._udp:9050",
			},
		},
		{
			Timestamp: t0.Add(5 * time.Second),
			SessionID: "ws-0002-bbbb",
			Direction: log.DirectionIn,
			Channel:   log.ChannelSubscription,
			Category:  log.CategoryError,
			Error:     &log.ErrorEventData{Message: "malformed command", Context: "command"},
		},
	}
}

func TestFilterOptionsBuild(t *testing.T) {
	f, err := FilterOptions{Direction: "OUT", Channel: "subscription", Category: "message"}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if f.Direction == nil || *f.Direction != log.DirectionOut {
		t.Error("direction not parsed")
	}
	if f.Channel == nil || *f.Channel != log.ChannelSubscription {
		t.Error("channel not parsed")
	}
	if f.Category == nil || *f.Category != log.CategoryMessage {
		t.Error("category not parsed")
	}

	bad := []FilterOptions{
		{Direction: "sideways"},
		{Channel: "smtp"},
		{Category: "snapshot"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
	}
	for _, o := range bad {
		if _, err := o.Build(); err == nil {
			t.Errorf("Build(%+v) should fail", o)
		}
	}
}

func TestViewFormatsEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, FilterOptions{}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z [ctl-0001] IN  CONTROL Message",
		"  Remote: 192.168.1.20:50000",
		"  Address: /hands/left/x",
		"  Args: [0.25]",
		`  Args: ["hexagon"]`,
		"CONTROL Rejected",
		"  Rejected: value out of range",
		"  Command: LISTEN",
		"  Data: /hands/left/x",
		"[-] OUT DISCOVERY State",
		"  Entity: ADVERTISEMENT",
		"  -> ADVERTISED",
		"  Message: malformed command",
		"  Context: command",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view output missing %q\n%s", want, out)
		}
	}
}

func TestViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, FilterOptions{Channel: "control"}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	if n := strings.Count(buf.String(), " CONTROL "); n != 2 {
		t.Errorf("got %d control events, want 2", n)
	}
	if strings.Contains(buf.String(), "SUBSCRIPTION") {
		t.Error("filter leaked subscription events")
	}

	buf.Reset()
	if err := RunView(path, FilterOptions{Address: "/HANDS"}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	if n := strings.Count(buf.String(), "Address: /hands/left/x"); n != 2 {
		t.Errorf("address filter matched %d events, want 2", n)
	}

	if err := RunView(path, FilterOptions{Direction: "up"}, &buf); err == nil {
		t.Error("expected error for invalid direction")
	}
	if err := RunView(filepath.Join(t.TempDir(), "missing.olog"), FilterOptions{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", "", FilterOptions{Category: "command"}, &buf); err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}

	var got log.Event
	if err := json.Unmarshal([]byte(lines[0]), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Command == nil || got.Command.Command != "LISTEN" || got.SessionID != "ws-0002-bbbb" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", output, FilterOptions{}, nil); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	rows, err := readCSV(output)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(sampleEvents())+1 {
		t.Fatalf("got %d rows, want header plus %d", len(rows), len(sampleEvents()))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}
	rejected := rows[2]
	if rejected[6] != "Rejected" || rejected[7] != "/render/mode" || rejected[8] != "value out of range" {
		t.Errorf("rejected row = %v", rejected)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunExport(path, "xml", "", FilterOptions{}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFilterWritesMatchingEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "ws.olog")

	var buf bytes.Buffer
	if err := RunFilter(path, output, FilterOptions{Session: "ws-0002-bbbb"}, &buf); err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if !strings.Contains(buf.String(), "Filtered 3 events") {
		t.Errorf("summary = %q", buf.String())
	}

	reader, err := log.NewReader(output)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	count := 0
	err = each(reader, func(e log.Event) error {
		if e.SessionID != "ws-0002-bbbb" {
			t.Errorf("unexpected session %q", e.SessionID)
		}
		count++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("filtered file holds %d events, want 3", count)
	}
}

func TestFilterTimeWindow(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	output := filepath.Join(t.TempDir(), "window.olog")

	opts := FilterOptions{
		TimeStart: t0.Add(time.Second).Format(time.RFC3339Nano),
		TimeEnd:   t0.Add(3 * time.Second).Format(time.RFC3339Nano),
	}
	var buf bytes.Buffer
	if err := RunFilter(path, output, opts, &buf); err != nil {
		t.Fatalf("RunFilter: %v", err)
	}
	if !strings.Contains(buf.String(), "Filtered 2 events") {
		t.Errorf("summary = %q", buf.String())
	}
}

func TestStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := Collect(path)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if stats.TotalEvents != 6 {
		t.Errorf("TotalEvents = %d, want 6", stats.TotalEvents)
	}
	if len(stats.Sessions) != 2 {
		t.Errorf("Sessions = %d, want 2", len(stats.Sessions))
	}
	if stats.Sessions["ws-0002-bbbb"].Events != 3 {
		t.Errorf("ws session events = %d, want 3", stats.Sessions["ws-0002-bbbb"].Events)
	}
	if stats.Rejected != 1 || stats.Errors != 1 {
		t.Errorf("Rejected = %d, Errors = %d; want 1 and 1", stats.Rejected, stats.Errors)
	}
	if got := stats.End.Sub(stats.Start); got != 5*time.Second {
		t.Errorf("time range = %s, want 5s", got)
	}

	var buf bytes.Buffer
	if err := RunStats(path, 1, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Total Events: 6",
		"CONTROL:",
		"SUBSCRIPTION:",
		"DISCOVERY:",
		"COMMAND:",
		"Sessions: 2",
		"remote 192.168.1.20:50000",
		"/hands/left/x",
		"Rejected Messages: 1",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "/render/mode") {
		t.Error("top 1 should list only the most frequent address")
	}
}

func TestStatsEmptyFile(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, 0, &buf); err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("output = %q", buf.String())
	}
	if strings.Contains(buf.String(), "Time Range") {
		t.Error("empty log should not print a time range")
	}
}

func TestTopAddresses(t *testing.T) {
	counts := map[string]int{"/b": 2, "/a": 2, "/c": 5}
	got := topAddresses(counts, 0)
	want := []string{"/c", "/a", "/b"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("topAddresses = %v, want %v", got, want)
	}
	if got := topAddresses(counts, 2); len(got) != 2 {
		t.Errorf("limit ignored: %v", got)
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return csv.NewReader(f).ReadAll()
}
