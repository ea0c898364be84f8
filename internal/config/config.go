package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port    string
	BaseURL string

	// Inference endpoint (Hugging Face style text-generation API).
	HFAPIURL   string
	HFModel    string
	HFAPIToken string

	// Local reference documents served under /data/.
	DataDir string

	PostgresDSN   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getenv("PORT", "8080"),
		BaseURL:        getenv("BASE_URL", "http://localhost:8080"),
		HFAPIURL:       getenv("HF_API_URL", "https://api-inference.huggingface.co"),
		HFModel:        getenv("HF_MODEL", "deepseek-ai/DeepSeek-R1"),
		HFAPIToken:     getenv("HF_API_TOKEN", ""),
		DataDir:        getenv("DATA_DIR", "data"),
		PostgresDSN:    getenv("POSTGRES_DSN", ""),
		MongoURI:       getenv("MONGO_URI", ""),
		MongoDB:        getenv("MONGO_DB", "research_assistant"),
		RedisAddr:      getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "research-reports"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
