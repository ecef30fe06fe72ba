package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "https://www.tiktok.com/tiktokstudio/upload", cfg.Automation.UploadURL)
	assert.Equal(t, 30, cfg.Automation.PresencePoll)
	assert.Equal(t, 9222, cfg.Chrome.DebugPort)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/done")
	t.Setenv("CHROME_HEADLESS", "true")
	t.Setenv("JWT_EXPIRE_TIME", "3600")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://hooks.example.com/done", cfg.Automation.WebhookURL)
	assert.True(t, cfg.Chrome.HeadlessMode)
	assert.Equal(t, 3600, cfg.JWT.ExpireTime)
}

func TestGetDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_USERNAME", "svc")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "posts")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "svc:pw@tcp(db.internal:3307)/posts?charset=utf8mb4&parseTime=True&loc=Local", cfg.GetDSN())
}
