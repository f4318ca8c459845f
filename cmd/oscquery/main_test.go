package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/plml/oscquery-go/pkg/params"
	"github.com/plml/oscquery-go/pkg/service"
	"github.com/plml/oscquery-go/pkg/tree"
	"github.com/plml/oscquery-go/pkg/version"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"4.5", 4.5},
		{"true", true},
		{"circle", "circle"},
		{"FF9614FF", "FF9614FF"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestParseValuesKeepsQuotedStrings(t *testing.T) {
	got := parseValues([]string{`"42"`, "42"})
	if got[0] != "42" {
		t.Errorf("quoted value = %#v, want string", got[0])
	}
	if got[1] != int64(42) {
		t.Errorf("bare value = %#v, want int64", got[1])
	}
}

func TestQueryURL(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		attr     string
		hostInfo bool
		want     string
	}{
		{"root", "/", "", false, "http://localhost:45321/"},
		{"relative path", "hands/left", "", false, "http://localhost:45321/hands/left"},
		{"attribute", "/render/size", "value", false, "http://localhost:45321/render/size?VALUE"},
		{"host info wins", "/", "VALUE", true, "http://localhost:45321/?HOST_INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := queryURL("localhost:45321", tt.path, tt.attr, tt.hostInfo)
			if err != nil {
				t.Fatalf("queryURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("queryURL = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := queryURL("", "/", "", false); err == nil {
		t.Error("expected error for empty server")
	}
}

func TestFetchSendsUserAgent(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.UserAgent()
		_, _ = w.Write([]byte(`{"VALUE":[1]}`))
	}))
	defer srv.Close()

	body, err := fetch(context.Background(), srv.URL+"/x?VALUE")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(body) != `{"VALUE":[1]}` {
		t.Errorf("body = %s", body)
	}
	if agent != version.UserAgent() {
		t.Errorf("User-Agent = %q, want %q", agent, version.UserAgent())
	}
}

func TestFetchReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("fetch error = %v, want server message", err)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, []byte(`{"A":1}`)); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"A\": 1\n}\n" {
		t.Errorf("indented = %q", buf.String())
	}

	buf.Reset()
	if err := printJSON(&buf, []byte("plain")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "plain" {
		t.Errorf("non-JSON = %q", buf.String())
	}
}

func TestServiceType(t *testing.T) {
	for in, want := range map[string]string{
		"query":     "_oscjson._tcp",
		"HTTP":      "_oscjson._tcp",
		"control":   "_osc._udp",
		"_osc._udp": "_osc._udp",
	} {
		got, err := serviceType(in)
		if err != nil || got != want {
			t.Errorf("serviceType(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := serviceType("ftp"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func newServeCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "serve"}
	addServeFlags(cmd.Flags())
	cmd.Flags().String("log-level", "info", "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestServeConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	data := "name: FromFile\ncontrol_address: \":9999\"\ndemo: true\nlog_level: debug\nparams: [extra.yaml]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newServeCommand(t, "--config", path, "--name", "FromFlag", "--no-discovery")
	c, opts, err := serveConfig(cmd)
	if err != nil {
		t.Fatalf("serveConfig: %v", err)
	}
	if c.ServiceName != "FromFlag" {
		t.Errorf("ServiceName = %q, want flag value", c.ServiceName)
	}
	if c.ControlAddress != ":9999" {
		t.Errorf("ControlAddress = %q, want file value", c.ControlAddress)
	}
	if c.QueryAddress != service.DefaultConfig().QueryAddress {
		t.Errorf("QueryAddress = %q, want default", c.QueryAddress)
	}
	if !c.DisableDiscovery {
		t.Error("DisableDiscovery should be set by flag")
	}
	if !opts.demo {
		t.Error("demo should come from the file")
	}
	if opts.level.String() != "DEBUG" {
		t.Errorf("level = %s, want DEBUG from file", opts.level)
	}
	if len(opts.params) != 1 || opts.params[0] != filepath.Join(dir, "extra.yaml") {
		t.Errorf("params = %v", opts.params)
	}
}

func TestServeConfigLogLevelFlagWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newServeCommand(t, "--config", path, "--log-level", "error")
	_, opts, err := serveConfig(cmd)
	if err != nil {
		t.Fatalf("serveConfig: %v", err)
	}
	if opts.level.String() != "ERROR" {
		t.Errorf("level = %s, want ERROR", opts.level)
	}
}

func TestServeConfigRejectsInvalid(t *testing.T) {
	cmd := newServeCommand(t, "--query-addr", "nonsense")
	if _, _, err := serveConfig(cmd); err == nil {
		t.Error("expected validation error")
	}

	cmd = newServeCommand(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, _, err := serveConfig(cmd); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestBuildTree(t *testing.T) {
	empty, err := buildTree(serveOptions{})
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	if empty.Len() != 1 {
		t.Errorf("empty tree Len = %d, want root only", empty.Len())
	}

	path := filepath.Join(t.TempDir(), "extra.yaml")
	manifest := "name: extra\nparameters:\n  - path: /extra/gain\n    type: f\n    value: 0.25\n"
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	tr, err := buildTree(serveOptions{demo: true, params: []string{path}})
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	if _, ok := tr.Lookup("/hands/left/x"); !ok {
		t.Error("demo parameters missing")
	}
	if v, ok := tr.Lookup("/extra/gain"); !ok || v.Value.Float() != 0.25 {
		t.Error("manifest parameter missing")
	}

	if _, err := buildTree(serveOptions{params: []string{filepath.Join(t.TempDir(), "nope.yaml")}}); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()
	tr := tree.New()
	m, err := params.Load(params.Demo)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Register(tr); err != nil {
		t.Fatal(err)
	}
	cfg := service.DefaultConfig()
	cfg.DisableDiscovery = true
	srv, err := service.New(tr, cfg)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	return &Console{srv: srv, out: &buf}, &buf
}

func TestConsoleSetClampsAndPrints(t *testing.T) {
	c, out := newTestConsole(t)

	if !c.exec("set /render/size 999") {
		t.Fatal("set should not end the console")
	}
	if !strings.Contains(out.String(), "/render/size = 400") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	c.exec("set /render/mode hexagon")
	if !strings.Contains(out.String(), "Error:") {
		t.Errorf("expected enum rejection, got %q", out.String())
	}
}

func TestConsoleSetIgnoresAccess(t *testing.T) {
	c, out := newTestConsole(t)

	c.exec("set /hands/left/visible true")
	if !strings.Contains(out.String(), "/hands/left/visible = true") {
		t.Errorf("output = %q", out.String())
	}
}

func TestConsoleGet(t *testing.T) {
	c, out := newTestConsole(t)

	c.exec("get /render/size")
	for _, want := range []string{"/render/size", "type:", "value:       40", "range:       1 .. 400"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("get output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	c.exec("get /render/mode")
	if !strings.Contains(out.String(), "circle | square | trail") {
		t.Errorf("enum range missing:\n%s", out.String())
	}

	out.Reset()
	c.exec("get /nope")
	if !strings.Contains(out.String(), "node not found") {
		t.Errorf("output = %q", out.String())
	}
}

func TestConsoleTree(t *testing.T) {
	c, out := newTestConsole(t)

	c.exec("tree /hands/left")
	got := out.String()
	if !strings.HasPrefix(got, "/hands/left/\n") {
		t.Errorf("tree should start at the requested node:\n%s", got)
	}
	if !strings.Contains(got, "  /hands/left/x [f RW] = 0.5") {
		t.Errorf("leaf line missing:\n%s", got)
	}
	if strings.Contains(got, "/hands/right") {
		t.Errorf("tree leaked outside the subtree:\n%s", got)
	}
}

func TestConsoleListen(t *testing.T) {
	c, _ := newTestConsole(t)

	c.exec("listen /hands/left/x")
	v, _ := c.srv.Tree().Lookup("/hands/left/x")
	if !v.Listening {
		t.Error("listen did not set the flag")
	}

	c.exec("ignore /hands/left/x")
	v, _ = c.srv.Tree().Lookup("/hands/left/x")
	if v.Listening {
		t.Error("ignore did not clear the flag")
	}
}

func TestConsoleServerCommands(t *testing.T) {
	c, out := newTestConsole(t)

	c.exec("sessions")
	c.exec("ads")
	c.exec("status")
	for _, want := range []string{"Server not running", "No advertisements", "State:   IDLE"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestConsoleUnknownAndQuit(t *testing.T) {
	c, out := newTestConsole(t)

	if !c.exec("   ") {
		t.Error("blank line should keep the console running")
	}
	c.exec("frobnicate")
	if !strings.Contains(out.String(), "Unknown command: frobnicate") {
		t.Errorf("output = %q", out.String())
	}
	if c.exec("QUIT") {
		t.Error("quit should end the console")
	}
}
