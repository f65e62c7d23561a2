package config_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow/catalog"
	"github.com/meikuraledutech/flow/codec"
	"github.com/meikuraledutech/flow/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, ":3000", cfg.Server.Listen)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, codec.DefaultImplicitPackages, cfg.Packages.Implicit)
	assert.Equal(t, codec.AbortWiring, cfg.ConnectionPolicy())
	assert.Equal(t, catalog.ConstraintLastWins, cfg.ConstraintPolicy())
	assert.Empty(t, cfg.Validate())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FLOW_SERVER_LISTEN", ":8080")
	t.Setenv("FLOW_EDITOR_CONNECTION_POLICY", "skip")
	t.Setenv("FLOW_DATABASE_URL", "postgres://localhost/flow")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, codec.SkipUnresolved, cfg.ConnectionPolicy())
	assert.Equal(t, "postgres://localhost/flow", cfg.Database.URL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: http://build:8000
  timeout: 5s
packages:
  folder: /srv/packages
  active: [built-in, flowrs-std]
  watch: true
editor:
  constraint_policy: intersect
log:
  level: debug
  format: json
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://build:8000", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, []string{"built-in", "flowrs-std"}, cfg.Packages.Active)
	assert.True(t, cfg.Packages.Watch)
	assert.Equal(t, catalog.ConstraintIntersect, cfg.ConstraintPolicy())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &config.Config{}
	cfg.Editor.ConnectionPolicy = "retry"
	cfg.Editor.ConstraintPolicy = "first"
	cfg.Packages.Watch = true
	cfg.API.Timeout = -time.Second
	cfg.Log.Format = "xml"

	assert.Len(t, cfg.Validate(), 5)
	assert.Equal(t, codec.AbortWiring, cfg.ConnectionPolicy())
	assert.Equal(t, catalog.ConstraintLastWins, cfg.ConstraintPolicy())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.NewLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "project", "demo")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "demo", entry["project"])

	buf.Reset()
	config.NewLogger(&buf, config.LogConfig{Level: "nonsense"}).Info("text line")
	assert.Contains(t, buf.String(), "msg=\"text line\"")
}
