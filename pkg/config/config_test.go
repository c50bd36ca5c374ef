package config

import (
	"testing"
	"time"

	"tudu/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "secret")
	t.Setenv("APP_UTC_OFFSET", "")
	t.Setenv("STORAGE_BUCKET", "")
	t.Setenv("JWT_SECRET_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "+05:30", cfg.App.UTCOffset)
	assert.Equal(t, "INR", cfg.App.DefaultCurrency)
	assert.Equal(t, 60*time.Second, cfg.GigaChat.Timeout)
	assert.Equal(t, "GigaChat", cfg.GigaChat.Model)
	assert.False(t, cfg.Storage.Enabled())
	assert.False(t, cfg.JWT.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("LLM_TIMEOUT_SECONDS", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ConfigurationError))
}

func TestValidateBadOffset(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "secret")
	t.Setenv("APP_UTC_OFFSET", "IST")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, apperrors.Is(cfg.Validate(), apperrors.ConfigurationError))
}

func TestValidateStorageNeedsCredentials(t *testing.T) {
	t.Setenv("GIGACHAT_API_KEY", "secret")
	t.Setenv("STORAGE_BUCKET", "receipts")
	t.Setenv("STORAGE_ACCESS_KEY_ID", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, apperrors.Is(cfg.Validate(), apperrors.ConfigurationError))
}

func TestParseUTCOffset(t *testing.T) {
	tests := []struct {
		in      string
		seconds int
		wantErr bool
	}{
		{in: "+05:30", seconds: 5*3600 + 30*60},
		{in: "-03:00", seconds: -3 * 3600},
		{in: "+00:00", seconds: 0},
		{in: "05:30", wantErr: true},
		{in: "+5:30", wantErr: true},
		{in: "+15:00", wantErr: true},
		{in: "+05:75", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := ParseUTCOffset(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
			assert.Equal(t, tt.seconds, offset)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "tudu", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/tudu?sslmode=disable", cfg.URL())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tudu sslmode=disable", cfg.DSN())
}
