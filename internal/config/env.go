package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"

	AttachmentsLocal = "local"
	AttachmentsS3    = "s3"
)

type Config struct {
	Port string

	StoreBackend  string
	DatabaseURL   string
	SslCertPath   string
	MongoURI      string
	MongoDatabase string

	AttachmentBackend string
	UploadDir         string
	MaxUploadSize     int64
	AwsAccessKey      string
	AwsSecretKey      string
	AwsRegion         string
	BucketName        string

	CORSOrigins     []string
	ShutdownTimeout int // seconds

	LogLevel  string
	LogFormat string
	LogFile   string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", StorePostgres)),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SslCertPath:   getEnv("SSL_CERT_PATH", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "ivyready"),

		AttachmentBackend: strings.ToLower(getEnv("ATTACHMENT_BACKEND", AttachmentsLocal)),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSize:     getEnvBytes("MAX_UPLOAD_SIZE", 10<<20),
		AwsAccessKey:      getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:      getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:         getEnv("AWS_REGION", "us-east-2"),
		BucketName:        getEnv("BUCKET_NAME", "ivyready-uploads"),

		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		ShutdownTimeout: getEnvInt("SHUTDOWN_TIMEOUT", 15),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		LogFile:   getEnv("LOG_FILE", ""),
	}

	return cfg
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL not set")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGO_URI not set")
		}
	case StoreMemory:
	default:
		return errors.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.AttachmentBackend {
	case AttachmentsLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR not set")
		}
	case AttachmentsS3:
		if c.BucketName == "" {
			return errors.New("BUCKET_NAME not set")
		}
	default:
		return errors.Errorf("unknown ATTACHMENT_BACKEND %q", c.AttachmentBackend)
	}

	if c.MaxUploadSize <= 0 {
		return errors.New("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("not an int, using default")
		return def
	}
	return n
}

// getEnvBytes accepts plain byte counts as well as sizes like "10MiB" or "5 MB".
func getEnvBytes(key string, def int64) int64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Int64("default", def).Msg("not a byte size, using default")
		return def
	}
	return int64(n)
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
