package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("MOMO_TIMEOUT", "")
	t.Setenv("MANUAL_CONFIRM_ENABLED", "")

	cfg := Load()
	assert.Equal(t, "127.0.0.1", cfg.DBHost)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, "VND", cfg.Currency)
	assert.Equal(t, "ORD", cfg.OrderCodePrefix)
	assert.Equal(t, 10*time.Second, cfg.MoMoTimeout)
	assert.False(t, cfg.ManualConfirmEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MOMO_TIMEOUT", "3s")
	t.Setenv("MANUAL_CONFIRM_ENABLED", "true")
	t.Setenv("WEBHOOK_RATE_LIMIT", "2.5")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.MoMoTimeout)
	assert.True(t, cfg.ManualConfirmEnabled)
	assert.Equal(t, 2.5, cfg.WebhookRateLimit)
	assert.Equal(t, 465, cfg.SMTPPort)
}

func TestValidate(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "u", DBName: "travel", JWTSecret: "s", ArchiveBackend: "local"}
	assert.NoError(t, cfg.Validate())

	missingSecret := cfg
	missingSecret.JWTSecret = ""
	assert.Error(t, missingSecret.Validate())

	partialMoMo := cfg
	partialMoMo.MoMoPartnerCode = "MOMO"
	assert.Error(t, partialMoMo.Validate())

	s3 := cfg
	s3.ArchiveBackend = "s3"
	assert.Error(t, s3.Validate())
	s3.S3Bucket = "evidence"
	assert.NoError(t, s3.Validate())

	unknown := cfg
	unknown.ArchiveBackend = "ftp"
	assert.Error(t, unknown.Validate())
}

func TestDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "travel"}
	assert.Equal(t, "u:p@tcp(h:3306)/travel?charset=utf8mb4&parseTime=True&loc=Local", cfg.DSN())
}
