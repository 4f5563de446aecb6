package core

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
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Full(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
bot:
  name: testbot
  alias: tb
  app_id: app-1
  client_secret: secret-1
  tenant_id: tenant-1
  service_url: https://svc.example.com/
  auto_create_conversations: true
logging:
  level: debug
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "testbot", config.Bot.Name)
	assert.Equal(t, "tb", config.Bot.Alias)
	assert.Equal(t, "app-1", config.Bot.AppID)
	assert.Equal(t, "secret-1", config.Bot.ClientSecret)
	assert.Equal(t, "tenant-1", config.Bot.TenantID)
	assert.Equal(t, "https://svc.example.com/", config.Bot.ServiceURL)
	assert.True(t, config.Bot.AutoCreateConversations)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  name: testbot
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 3978, config.Server.Port)
	assert.Equal(t, "MultiTenant", config.Bot.AppType)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 100, config.Logging.MaxSize)
	assert.Equal(t, 5, config.Logging.MaxBackups)
	assert.Equal(t, 30, config.Logging.MaxAge)
	assert.True(t, config.Logging.Compress)
	assert.True(t, config.Logging.EnableStdout)
}

func TestLoadConfig_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_BOT_SECRET", "expanded-secret")
	path := writeConfig(t, `
bot:
  name: testbot
  client_secret: ${TEST_BOT_SECRET}
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret", config.Bot.ClientSecret)
}

func TestLoadConfig_MissingEnvVar(t *testing.T) {
	path := writeConfig(t, `
bot:
  name: testbot
  client_secret: ${DEFINITELY_NOT_SET_ANYWHERE}
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFINITELY_NOT_SET_ANYWHERE")
}

func TestLoadConfig_EnvOverridesWin(t *testing.T) {
	t.Setenv("BOT_APP_ID", "env-app-id")
	t.Setenv("BOT_CLIENT_SECRET", "env-secret")
	t.Setenv("BOT_APP_TYPE", "SingleTenant")
	t.Setenv("BOT_TENANT_ID", "env-tenant")
	t.Setenv("BOT_SERVICE_URL", "https://env.example.com/")

	path := writeConfig(t, `
bot:
  name: testbot
  app_id: file-app-id
  client_secret: file-secret
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-app-id", config.Bot.AppID)
	assert.Equal(t, "env-secret", config.Bot.ClientSecret)
	assert.Equal(t, "SingleTenant", config.Bot.AppType)
	assert.Equal(t, "env-tenant", config.Bot.TenantID)
	assert.Equal(t, "https://env.example.com/", config.Bot.ServiceURL)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/no/such/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "bot: [unclosed")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_PortOutOfRange(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 99999
bot:
  name: testbot
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("BOT_APP_ID", "env-app-id")
	t.Setenv("BOT_TENANT_ID", "env-tenant")

	config, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "env-app-id", config.Bot.AppID)
	assert.Equal(t, "env-tenant", config.Bot.TenantID)
	assert.Equal(t, "teamsbridge", config.Bot.Name)
	assert.Equal(t, "MultiTenant", config.Bot.AppType)
	assert.Equal(t, 3978, config.Server.Port)
}
