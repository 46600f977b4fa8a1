// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage providers accepted by STORAGE_PROVIDER.
const (
	ProviderR2     = "r2"
	ProviderMinio  = "minio"
	ProviderMemory = "memory"
)

// Config holds all runtime configuration for the service.
// It is built once at startup and never mutated afterwards.
type Config struct {
	AppEnv      string   `envconfig:"APP_ENV" default:"production"`
	Port        string   `envconfig:"PORT" default:"3001"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	Server   ServerConfig
	Firebase FirebaseConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Proxy    ProxyConfig
}

// ServerConfig holds HTTP server timeouts.
type ServerConfig struct {
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
}

// FirebaseConfig identifies the project whose ID tokens are accepted.
type FirebaseConfig struct {
	ProjectID   string        `envconfig:"FIREBASE_PROJECT_ID" required:"true"`
	ClientEmail string        `envconfig:"FIREBASE_CLIENT_EMAIL"`
	PrivateKey  string        `envconfig:"FIREBASE_PRIVATE_KEY"`
	CertsURL    string        `envconfig:"FIREBASE_CERTS_URL" default:"https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"`
	CertTimeout time.Duration `envconfig:"FIREBASE_CERT_TIMEOUT" default:"10s"`
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Provider string        `envconfig:"STORAGE_PROVIDER" default:"r2"`
	Timeout  time.Duration `envconfig:"STORAGE_TIMEOUT" default:"30s"`

	// Cloudflare R2
	R2AccountID       string `envconfig:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `envconfig:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `envconfig:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `envconfig:"R2_BUCKET_NAME"`
	R2PublicURL       string `envconfig:"R2_PUBLIC_URL"` // e.g. "https://media.example.com"

	// S3-compatible (MinIO locally)
	MinioEndpoint   string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	MinioAccessKey  string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey  string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucketName string `envconfig:"MINIO_BUCKET_NAME" default:"media"`
	MinioPublicURL  string `envconfig:"MINIO_PUBLIC_URL"`
	MinioUseSSL     bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	MinioPublicRead bool   `envconfig:"MINIO_PUBLIC_READ" default:"false"`
}

// UploadConfig bounds incoming files.
type UploadConfig struct {
	MaxFileSize int64 `envconfig:"UPLOAD_MAX_FILE_SIZE" default:"10485760"` // 10MB
}

// ProxyConfig bounds the media proxy.
type ProxyConfig struct {
	Timeout      time.Duration `envconfig:"PROXY_TIMEOUT" default:"30s"`
	MaxBytes     int64         `envconfig:"PROXY_MAX_BYTES" default:"104857600"` // 100MB
	AllowedHosts []string      `envconfig:"PROXY_ALLOWED_HOSTS"`
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	// Private keys usually arrive with escaped newlines.
	cfg.Firebase.PrivateKey = strings.ReplaceAll(cfg.Firebase.PrivateKey, `\n`, "\n")
	cfg.Storage.Provider = strings.ToLower(strings.TrimSpace(cfg.Storage.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the identity provider and the selected storage
// provider have their credentials.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require("FIREBASE_PROJECT_ID", c.Firebase.ProjectID)

	switch c.Storage.Provider {
	case ProviderR2:
		require("R2_ACCOUNT_ID", c.Storage.R2AccountID)
		require("R2_ACCESS_KEY_ID", c.Storage.R2AccessKeyID)
		require("R2_SECRET_ACCESS_KEY", c.Storage.R2SecretAccessKey)
		require("R2_BUCKET_NAME", c.Storage.R2BucketName)
	case ProviderMinio:
		require("MINIO_ENDPOINT", c.Storage.MinioEndpoint)
		require("MINIO_ACCESS_KEY", c.Storage.MinioAccessKey)
		require("MINIO_SECRET_KEY", c.Storage.MinioSecretKey)
		require("MINIO_BUCKET_NAME", c.Storage.MinioBucketName)
	case ProviderMemory:
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.Upload.MaxFileSize <= 0 {
		return errors.New("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	return nil
}

// IsDevelopment returns true when error details and verbose logs may be
// exposed. Only an explicit APP_ENV=development enables it.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
