package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("MAX_UPLOAD_SIZE", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := LoadConfig()
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, AttachmentsLocal, cfg.AttachmentBackend)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestGetEnvBytes(t *testing.T) {
	t.Setenv("SIZE_PLAIN", "2048")
	t.Setenv("SIZE_HUMAN", "5MiB")
	t.Setenv("SIZE_BAD", "lots")

	assert.Equal(t, int64(2048), getEnvBytes("SIZE_PLAIN", 1))
	assert.Equal(t, int64(5<<20), getEnvBytes("SIZE_HUMAN", 1))
	assert.Equal(t, int64(1), getEnvBytes("SIZE_BAD", 1))
	assert.Equal(t, int64(7), getEnvBytes("SIZE_UNSET_FOR_TEST", 7))
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("ORIGINS", " http://a.test , ,http://b.test")
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, getEnvList("ORIGINS", nil))
}

func TestValidate(t *testing.T) {
	cfg := &Config{StoreBackend: StoreMemory, AttachmentBackend: AttachmentsLocal, UploadDir: "up", MaxUploadSize: 1}
	require.NoError(t, cfg.Validate())

	cfg.StoreBackend = StorePostgres
	require.EqualError(t, cfg.Validate(), "DATABASE_URL not set")

	cfg.StoreBackend = "sqlite"
	require.Error(t, cfg.Validate())

	cfg.StoreBackend = StoreMemory
	cfg.AttachmentBackend = "ftp"
	require.Error(t, cfg.Validate())

	cfg.AttachmentBackend = AttachmentsLocal
	cfg.MaxUploadSize = 0
	require.Error(t, cfg.Validate())
}
