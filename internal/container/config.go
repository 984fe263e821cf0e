// Package container provides dependency injection and lifecycle management
// for the expense claims service.
package container

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Storage drivers
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config holds all configuration for the Container.
type Config struct {
	Database    DatabaseConfig
	Storage     StorageConfig
	Attachments AttachmentConfig
	Reference   ReferenceConfig
	Query       QueryConfig
	Lark        LarkConfig
	Janitor     JanitorConfig
	Server      ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration
}

// StorageConfig selects and configures the attachment store.
type StorageConfig struct {
	// Driver is "local" or "s3"
	Driver string

	// LocalDir is the base directory of the local driver
	LocalDir string

	S3Endpoint  string
	S3Bucket    string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
}

// AttachmentConfig bounds uploads. Zero values fall back to the service defaults.
type AttachmentConfig struct {
	MaxSize      int64
	AllowedTypes []string
}

// ReferenceConfig shapes claim reference IDs.
type ReferenceConfig struct {
	Prefix string

	// Timezone is the IANA zone of the business day, e.g. "Asia/Singapore"
	Timezone string
}

// QueryConfig bounds search paging.
type QueryConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// LarkConfig holds Lark API settings. Notifications are off without an app ID.
type LarkConfig struct {
	AppID     string
	AppSecret string
	BaseURL   string

	// ApproverChatID receives submission notices
	ApproverChatID string
}

// JanitorConfig schedules the orphan-file sweep.
type JanitorConfig struct {
	Enabled     bool
	Schedule    string
	GracePeriod time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/claims.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:   StorageDriverLocal,
			LocalDir: "data/attachments",
		},
		Attachments: AttachmentConfig{
			MaxSize: 1 << 20,
		},
		Reference: ReferenceConfig{
			Prefix:   "CLM",
			Timezone: "UTC",
		},
		Query: QueryConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Janitor: JanitorConfig{
			Enabled:     true,
			Schedule:    "17 3 * * *",
			GracePeriod: time.Hour,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Storage.Driver {
	case StorageDriverLocal, "":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local driver")
		}
	case StorageDriverS3:
		if c.Storage.S3Endpoint == "" {
			return fmt.Errorf("storage.s3.endpoint is required for the s3 driver")
		}
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Lark.AppID != "" && c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
	}

	if c.Janitor.Enabled {
		if _, err := cron.ParseStandard(c.Janitor.Schedule); err != nil {
			return fmt.Errorf("janitor.schedule: %w", err)
		}
	}

	if c.Query.MaxPageSize > 0 && c.Query.DefaultPageSize > c.Query.MaxPageSize {
		return fmt.Errorf("query.default_page_size exceeds query.max_page_size")
	}

	return nil
}

// Location resolves the business time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Reference.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Reference.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reference.timezone: %w", err)
	}
	return loc, nil
}
