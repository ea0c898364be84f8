package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "HF_API_URL", "HF_MODEL", "DATA_DIR", "MINIO_USE_SSL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api-inference.huggingface.co", cfg.HFAPIURL)
	assert.Equal(t, "data", cfg.DataDir)
	assert.False(t, cfg.MinioUseSSL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("HF_MODEL", "my-org/my-model")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "my-org/my-model", cfg.HFModel)
	assert.True(t, cfg.MinioUseSSL)
}
