package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Web struct {
		Addr string `koanf:"addr"`
	} `koanf:"web"`
	Sites struct {
		Dir          string        `koanf:"dir"`
		PollInterval time.Duration `koanf:"poll_interval"`
	} `koanf:"sites"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sabertooth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	assert.Equal(t, DefaultEnvPrefix, l.envPrefix)
	assert.False(t, l.IsLoaded())

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/x.yaml"))
	assert.Equal(t, "TEST_", l.envPrefix)
	assert.Equal(t, "/x.yaml", l.filePath)
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, "web:\n  addr: \":9000\"\nsites:\n  dir: /srv/sites\n  poll_interval: 250ms\n")

	l := NewLoader()
	require.NoError(t, l.LoadFile(path))
	assert.Equal(t, ":9000", l.GetString("web.addr"))

	var cfg testConfig
	require.NoError(t, l.Unmarshal(&cfg))
	assert.Equal(t, "/srv/sites", cfg.Sites.Dir)
	assert.Equal(t, 250*time.Millisecond, cfg.Sites.PollInterval)
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	l := NewLoader()
	assert.Error(t, l.LoadFile("/nonexistent/sabertooth.yaml"))
	assert.NoError(t, l.LoadFile(""))
}

func TestLoader_LoadEnv_NestedKeys(t *testing.T) {
	t.Setenv("SABERTOOTH_SITES__POLL_INTERVAL", "2s")
	t.Setenv("SABERTOOTH_WEB__ADDR", "127.0.0.1:8080")

	l := NewLoader()
	require.NoError(t, l.LoadEnv())
	assert.Equal(t, "127.0.0.1:8080", l.GetString("web.addr"))
	assert.Equal(t, "2s", l.GetString("sites.poll_interval"))
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, "web:\n  addr: from-file:1\nsites:\n  dir: file-dir\n")
	t.Setenv("SABERTOOTH_WEB__ADDR", "from-env:2")

	var cfg testConfig
	cfg.Sites.PollInterval = 500 * time.Millisecond

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"sites.dir": "flag-dir"}),
	)
	require.NoError(t, l.Load(&cfg))

	assert.True(t, l.IsLoaded())
	assert.Equal(t, "from-env:2", cfg.Web.Addr)
	assert.Equal(t, "flag-dir", cfg.Sites.Dir)
	assert.Equal(t, 500*time.Millisecond, cfg.Sites.PollInterval, "untouched default must survive")
}

func TestLoader_LoadMap_Nested(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadMap(map[string]any{
		"web": map[string]any{"addr": ":1"},
	}))
	assert.Equal(t, ":1", l.Get("web.addr"))
	assert.Contains(t, l.Keys(), "web.addr")
}

func TestMapProvider_ReadBytes(t *testing.T) {
	_, err := mapProvider{}.ReadBytes()
	assert.ErrorIs(t, err, ErrReadBytesNotSupported)
}
