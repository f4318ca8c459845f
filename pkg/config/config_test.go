package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plml/oscquery-go/pkg/service"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "server.yaml", `
name: Test
query_address: "127.0.0.1:45321"
discovery: false
probe_timeout: 500ms
session_queue_size: 16
log_level: debug
params: [hands.yaml, /abs/more.yaml]
`)
	f, err := Load(path)
	require.NoError(t, err)

	c := service.DefaultConfig()
	require.NoError(t, f.Apply(&c))

	assert.Equal(t, "Test", c.ServiceName)
	assert.Equal(t, "127.0.0.1:45321", c.QueryAddress)
	assert.Equal(t, ":9050", c.ControlAddress, "unset keys keep defaults")
	assert.True(t, c.DisableDiscovery)
	assert.Equal(t, 500*time.Millisecond, c.ProbeTimeout)
	assert.Equal(t, 16, c.SessionQueueSize)
	assert.Equal(t, []string{filepath.Join(filepath.Dir(path), "hands.yaml"), "/abs/more.yaml"}, f.Params)

	level, err := f.Level(slog.LevelInfo)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "server.toml", `
name = "Test"
control_address = ":9051"
strict_discovery = true
shutdown_timeout = "2s"
demo = true
`)
	f, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, f.Demo)
	assert.True(t, *f.Demo)

	c := service.DefaultConfig()
	require.NoError(t, f.Apply(&c))
	assert.Equal(t, "Test", c.ServiceName)
	assert.Equal(t, ":9051", c.ControlAddress)
	assert.True(t, c.StrictDiscovery)
	assert.False(t, c.DisableDiscovery)
	assert.Equal(t, 2*time.Second, c.ShutdownTimeout)
	require.NoError(t, c.Validate())

	level, err := f.Level(slog.LevelWarn)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadEmptyYAML(t *testing.T) {
	f, err := Load(writeFile(t, "empty.yml", ""))
	require.NoError(t, err)

	c := service.DefaultConfig()
	require.NoError(t, f.Apply(&c))
	assert.Equal(t, service.DefaultConfig(), c)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown yaml key", "a.yaml", "nmae: Test\n"},
		{"unknown toml key", "a.toml", "nmae = \"Test\"\n"},
		{"bad yaml", "a.yaml", "name: [\n"},
		{"bad toml", "a.toml", "name = \n"},
		{"wrong type", "a.yaml", "session_queue_size: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeFile(t, "a.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyErrors(t *testing.T) {
	bad := "soon"
	c := service.DefaultConfig()

	assert.Error(t, (&File{ProbeTimeout: &bad}).Apply(&c))
	assert.Error(t, (&File{ShutdownTimeout: &bad}).Apply(&c))

	_, err := (&File{LogLevel: &bad}).Level(slog.LevelInfo)
	assert.Error(t, err)
}
