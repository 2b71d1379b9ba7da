package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visme-go/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", "config.yaml"), []byte(body), 0o644))
	return root
}

func TestLoadDefaults(t *testing.T) {
	_, err := Load(t.TempDir())
	require.NoError(t, err)

	c := Current()
	assert.Equal(t, "5050", c.Server.Port)
	assert.Equal(t, uint(30), c.Server.DetectRateLimit)
	assert.Equal(t, 24*time.Hour, c.Redis.TTL)
	assert.Equal(t, models.DefaultMicrosaccadeConfiguration(), c.Detection.Microsaccade)
	assert.Equal(t, models.DefaultSaccadeConfiguration(), c.Detection.Saccade)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	root := writeConfig(t, `
server:
  port: "8080"
redis:
  enabled: true
  ttl: 30m
detection:
  microsaccade:
    velocity_threshold: 6
    use_ignore_at_end: true
    ignore_at_end: 15
  saccade:
    binocular: true
`)
	t.Setenv("VISME_DATABASE_HOST", "localhost")

	_, err := Load(root)
	require.NoError(t, err)

	c := Current()
	assert.Equal(t, "8080", c.Server.Port)
	assert.Equal(t, "localhost", c.Database.Host)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, 30*time.Minute, c.Redis.TTL)

	ms := c.Detection.Microsaccade
	assert.Equal(t, 6.0, ms.VelocityThreshold)
	assert.True(t, ms.UseIgnoreAtEnd)
	assert.Equal(t, 15.0, ms.IgnoreAtEnd)
	// untouched keys keep their defaults
	assert.Equal(t, 5, ms.VelocityWindowSize)
	assert.True(t, c.Detection.Saccade.Binocular)
	assert.Equal(t, 9, c.Detection.Saccade.VelocityWindowSize)
}

func TestLoadRejectsInvalidFilter(t *testing.T) {
	root := writeConfig(t, `
detection:
  saccade:
    velocity_window_size: 4
`)
	_, err := Load(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
}

func TestOnChange(t *testing.T) {
	var got []Config
	OnChange(func(c Config) { got = append(got, c) })

	c := Current()
	c.Server.Port = "9999"
	Set(c)

	require.NotEmpty(t, got)
	assert.Equal(t, "9999", got[len(got)-1].Server.Port)
	assert.Equal(t, "9999", Current().Server.Port)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: "1", User: "u", Password: "p", DBName: "n"}
	assert.Equal(t, "host=h user=u password=p dbname=n port=1 sslmode=disable TimeZone=UTC", d.DSN())
}
