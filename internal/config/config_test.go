package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ":9090"
mysql:
  host: "db.internal"
  port: 3307
parser:
  service_url: "http://parser.internal:8000"
storage:
  backend: "minio"
email:
  backend: "api"
  api_url: "https://mail.example.com/send"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, 3307, cfg.MySQL.Port)
	assert.Equal(t, "http://parser.internal:8000", cfg.Parser.ServiceURL)
	assert.Equal(t, "minio", cfg.Storage.Backend)
	assert.Equal(t, "api", cfg.Email.Backend)
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \"\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30, cfg.Parser.TimeoutSeconds)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "uploads/cvs", cfg.Storage.LocalDir)
	assert.Equal(t, "smtp", cfg.Email.Backend)
	assert.Equal(t, "recruiter.score.exchange", cfg.RabbitMQ.ScoreEventsExchange)
	assert.Equal(t, "q.score_recalc", cfg.RabbitMQ.ScoreRecalcQueue)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mysql:\n  password: \"from-file\"\n"), 0o644))

	t.Setenv("RECRUITER_MYSQL_PASSWORD", "from-env")
	t.Setenv("RECRUITER_PARSER_URL", "http://override:8000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.MySQL.Password)
	assert.Equal(t, "http://override:8000", cfg.Parser.ServiceURL)
}

func TestLoadConfigMissingFileUnderTest(t *testing.T) {
	// Under `go test` a missing config file yields the default config.
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestCreateSampleConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateSampleConfig(path))
	assert.Error(t, CreateSampleConfig(path))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("", 5*time.Second))
	assert.Equal(t, 2*time.Minute, GetDuration("2m", time.Second))
	assert.Equal(t, time.Second, GetDuration("garbage", time.Second))
}
