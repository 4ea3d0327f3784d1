package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Complete(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1
  port: 9000
database:
  path: data/app.db
jwt:
  secret: test-secret
app:
  debug: true
  default_currency: COP
mail:
  base_url: https://mail.example.com
  api_key: k
`)
	c, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, "data/app.db", c.Database.Path)
	assert.True(t, c.App.Debug)
	assert.Equal(t, "COP", c.App.DefaultCurrency)
	assert.Equal(t, 24, c.JWT.ExpireHours, "default applies")
}

func TestLoad_MissingRequired(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/app.db
`)
	_, err := load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")

	path = writeConfig(t, `
jwt:
  secret: s
`)
	_, err = load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.path")
}

func TestLoad_BadCurrency(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/app.db
jwt:
  secret: s
app:
  default_currency: GBP
`)
	_, err := load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_currency")
}
