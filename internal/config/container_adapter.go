package config

import (
	"github.com/garyjia/expense-claims/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Storage: container.StorageConfig{
			Driver:      c.Storage.Driver,
			LocalDir:    c.Storage.LocalDir,
			S3Endpoint:  c.Storage.S3.Endpoint,
			S3Bucket:    c.Storage.S3.Bucket,
			S3Region:    c.Storage.S3.Region,
			S3AccessKey: c.Storage.S3.AccessKey,
			S3SecretKey: c.Storage.S3.SecretKey,
			S3UseSSL:    c.Storage.S3.UseSSL,
		},
		Attachments: container.AttachmentConfig{
			MaxSize:      c.Attachments.MaxSize,
			AllowedTypes: c.Attachments.AllowedTypes,
		},
		Reference: container.ReferenceConfig{
			Prefix:   c.Reference.Prefix,
			Timezone: c.Reference.Timezone,
		},
		Query: container.QueryConfig{
			DefaultPageSize: c.Query.DefaultPageSize,
			MaxPageSize:     c.Query.MaxPageSize,
		},
		Lark: container.LarkConfig{
			AppID:          c.Lark.AppID,
			AppSecret:      c.Lark.AppSecret,
			BaseURL:        c.Lark.BaseURL,
			ApproverChatID: c.Lark.ApproverChatID,
		},
		Janitor: container.JanitorConfig{
			Enabled:     c.Janitor.Enabled,
			Schedule:    c.Janitor.Schedule,
			GracePeriod: c.Janitor.GracePeriod,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
