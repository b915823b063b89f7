// Package config loads portal settings from defaults, an optional YAML file
// and the environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	RecordStorePostgres = "postgres"
	RecordStoreMemory   = "memory"

	BlobDriverDisk = "disk"
	BlobDriverS3   = "s3"
)

type Config struct {
	HTTP        HTTPConfig
	Database    DatabaseConfig
	RecordStore string
	Blob        BlobConfig
	Media       MediaConfig
	Log         LogConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	CORS        CORSConfig
}

type HTTPConfig struct {
	Addr string
	// PublicURL prefixes links to files kept on local disk.
	PublicURL       string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
}

type BlobConfig struct {
	Driver string
	Disk   DiskConfig
	S3     S3Config
}

type DiskConfig struct {
	Root string
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PublicURL string
}

type MediaConfig struct {
	AllowedFileTypes []string
	MaxFileSizeMB    int
}

type LogConfig struct {
	Level  string
	Format string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type OutboxConfig struct {
	Interval  time.Duration
	BatchSize int
}

type CORSConfig struct {
	AllowedOrigins []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8081")
	v.SetDefault("http.public_url", "http://localhost:8081")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("record_store", RecordStorePostgres)
	v.SetDefault("blob.driver", BlobDriverDisk)
	v.SetDefault("blob.disk.root", "storage/app/public")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.use_ssl", true)
	v.SetDefault("media.allowed_file_types", "pdf,jpg,jpeg,png")
	v.SetDefault("media.max_file_size_mb", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("kafka.topic", "visa-docs.media-events")
	v.SetDefault("outbox.interval", time.Second)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("cors.allowed_origins", "*")
}

// Load reads path when it is not empty. Every key can be overridden with
// PORTAL_<KEY> (dots become underscores). DATABASE_URL, MEDIA_ALLOWED_FILE_TYPES
// and MEDIA_MAX_FILE_SIZE_MB are honored as well.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("portal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range map[string][]string{
		"database.url":             {"PORTAL_DATABASE_URL", "DATABASE_URL"},
		"media.allowed_file_types": {"PORTAL_MEDIA_ALLOWED_FILE_TYPES", "MEDIA_ALLOWED_FILE_TYPES"},
		"media.max_file_size_mb":   {"PORTAL_MEDIA_MAX_FILE_SIZE_MB", "MEDIA_MAX_FILE_SIZE_MB"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			PublicURL:       strings.TrimRight(v.GetString("http.public_url"), "/"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			URL:         v.GetString("database.url"),
			AutoMigrate: v.GetBool("database.auto_migrate"),
		},
		RecordStore: strings.ToLower(v.GetString("record_store")),
		Blob: BlobConfig{
			Driver: strings.ToLower(v.GetString("blob.driver")),
			Disk:   DiskConfig{Root: v.GetString("blob.disk.root")},
			S3: S3Config{
				Endpoint:  v.GetString("blob.s3.endpoint"),
				Region:    v.GetString("blob.s3.region"),
				Bucket:    v.GetString("blob.s3.bucket"),
				AccessKey: v.GetString("blob.s3.access_key"),
				SecretKey: v.GetString("blob.s3.secret_key"),
				UseSSL:    v.GetBool("blob.s3.use_ssl"),
				PublicURL: v.GetString("blob.s3.public_url"),
			},
		},
		Media: MediaConfig{
			AllowedFileTypes: lowerAll(list(v, "media.allowed_file_types")),
			MaxFileSizeMB:    v.GetInt("media.max_file_size_mb"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Kafka: KafkaConfig{
			Brokers: list(v, "kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Outbox: OutboxConfig{
			Interval:  v.GetDuration("outbox.interval"),
			BatchSize: v.GetInt("outbox.batch_size"),
		},
		CORS: CORSConfig{AllowedOrigins: list(v, "cors.allowed_origins")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.RecordStore {
	case RecordStoreMemory:
	case RecordStorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres record store"))
		}
	default:
		errs = append(errs, fmt.Errorf("record_store must be %q or %q, got %q", RecordStorePostgres, RecordStoreMemory, c.RecordStore))
	}

	switch c.Blob.Driver {
	case BlobDriverDisk:
		if c.Blob.Disk.Root == "" {
			errs = append(errs, errors.New("blob.disk.root is required"))
		}
	case BlobDriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required"))
		}
		if c.Blob.S3.PublicURL == "" {
			errs = append(errs, errors.New("blob.s3.public_url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver must be %q or %q, got %q", BlobDriverDisk, BlobDriverS3, c.Blob.Driver))
	}

	if len(c.Media.AllowedFileTypes) == 0 {
		errs = append(errs, errors.New("media.allowed_file_types is empty"))
	}
	if c.Media.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("media.max_file_size_mb must be positive, got %d", c.Media.MaxFileSizeMB))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// list accepts a YAML list or a comma separated string.
func list(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToLower(strings.TrimPrefix(s, "."))
	}
	return in
}
