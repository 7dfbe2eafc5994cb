package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageBackendLocal = "local"
	StorageBackendAzure = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	InferenceTimeout   time.Duration
	MaxRequestBodySize int64

	// Model
	ModelPath          string
	LabelsPath         string
	ONNXRuntimeLib     string
	ImageHeight        int
	ImageWidth         int
	ClassifierPoolSize int
	WorkerCount        int

	// Uploads
	StorageBackend        string
	UploadDir             string
	AllowedExtensions     []string
	AzureStorageAccount   string
	AzureStorageKey       string
	AzureStorageContainer string

	// History
	DatabaseURL  string
	ShareTTL     time.Duration
	HistoryLimit int
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// UsesDatabase reports whether history is kept in Postgres rather than memory.
func (c *Config) UsesDatabase() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		InferenceTimeout:   parseDurationOrDefault("INFERENCE_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 16*1024*1024), // 16MB

		ModelPath:          getEnvOrDefault("MODEL_PATH", "model/sign_model.onnx"),
		LabelsPath:         os.Getenv("LABELS_PATH"),
		ONNXRuntimeLib:     os.Getenv("ONNXRUNTIME_LIB"),
		ImageHeight:        int(parseIntOrDefault("IMAGE_HEIGHT", 64)),
		ImageWidth:         int(parseIntOrDefault("IMAGE_WIDTH", 64)),
		ClassifierPoolSize: int(parseIntOrDefault("CLASSIFIER_POOL_SIZE", 2)),
		WorkerCount:        int(parseIntOrDefault("WORKER_COUNT", 4)),

		StorageBackend:        strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", StorageBackendLocal)),
		UploadDir:             getEnvOrDefault("UPLOAD_DIR", "uploads"),
		AllowedExtensions:     parseListOrDefault("ALLOWED_EXTENSIONS", []string{"png", "jpg", "jpeg", "gif", "webp", "bmp"}),
		AzureStorageAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:       os.Getenv("AZURE_STORAGE_KEY"),
		AzureStorageContainer: getEnvOrDefault("AZURE_STORAGE_CONTAINER", "sign-uploads"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		ShareTTL:     parseDurationOrDefault("SHARE_TTL", 7*24*time.Hour),
		HistoryLimit: int(parseIntOrDefault("HISTORY_LIMIT", 50)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.InferenceTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, inference=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.InferenceTimeout)
	}
	if strings.TrimSpace(c.ModelPath) == "" {
		return fmt.Errorf("MODEL_PATH must be set")
	}
	if c.ImageHeight <= 0 || c.ImageWidth <= 0 {
		return fmt.Errorf("IMAGE_HEIGHT and IMAGE_WIDTH must be > 0 (got %dx%d)", c.ImageHeight, c.ImageWidth)
	}
	if c.ClassifierPoolSize <= 0 || c.WorkerCount <= 0 {
		return fmt.Errorf("CLASSIFIER_POOL_SIZE and WORKER_COUNT must be > 0 (got %d, %d)",
			c.ClassifierPoolSize, c.WorkerCount)
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("ALLOWED_EXTENSIONS must list at least one extension")
	}
	switch c.StorageBackend {
	case StorageBackendLocal:
		if strings.TrimSpace(c.UploadDir) == "" {
			return fmt.Errorf("UPLOAD_DIR must be set for the local storage backend")
		}
	case StorageBackendAzure:
		if c.AzureStorageAccount == "" || c.AzureStorageKey == "" || c.AzureStorageContainer == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_STORAGE_CONTAINER are required for the azure backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.ShareTTL <= 0 || c.HistoryLimit <= 0 {
		return fmt.Errorf("SHARE_TTL and HISTORY_LIMIT must be > 0 (got %s, %d)", c.ShareTTL, c.HistoryLimit)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseListOrDefault reads a comma separated list, lowercased, leading dots removed.
func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(item), "."))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
