package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/vip")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, 720*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, "https://a.example,https://b.example", cfg.Origins())
	assert.False(t, cfg.R2.Enabled())
}

func TestValidate(t *testing.T) {
	base := Config{DatabaseDriver: "sqlite", DatabaseURL: "x", JWTSecret: "0123456789abcdef", AccessTokenTTL: time.Hour}
	require.NoError(t, base.Validate())

	bad := base
	bad.DatabaseDriver = "mysql"
	assert.Error(t, bad.Validate())

	bad = base
	bad.JWTSecret = "short"
	assert.Error(t, bad.Validate())
}

func TestResolvedAdminToken(t *testing.T) {
	cfg := Config{AdminPassword: "pw"}
	assert.Equal(t, "pw", cfg.ResolvedAdminToken())
	cfg.AdminToken = "tok"
	assert.Equal(t, "tok", cfg.ResolvedAdminToken())
}

func TestAdminIDs(t *testing.T) {
	cfg := Config{AdminTelegramIDs: " 42, 7 ,,"}
	ids, err := cfg.AdminIDs()
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 7}, ids)

	cfg.AdminTelegramIDs = "42,abc"
	_, err = cfg.AdminIDs()
	assert.Error(t, err)
}
