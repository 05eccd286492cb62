// Package config gathers the runtime settings of the storefront service.
// Values come from the environment (optionally populated from a .env file
// by main) on top of development defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends for product images
const (
	StorageS3    = "s3"
	StorageDrive = "drive"
)

// Config holds runtime settings.
//
// Fields:
//   - Port / BaseURL: listen port and the externally reachable base URL
//     (the PDF exporter navigates the headless browser to it).
//   - DatabaseURL: PostgreSQL DSN for the pgx driver.
//   - StorageBackend: "s3" or "drive".
//   - S3*: S3-compatible bucket settings; S3PublicBaseURL is where objects are served from.
//   - DriveCredentialsPath / DriveFolderID: Google Drive service account and folder.
//   - AdminJWTSecret / AdminEmails: HS256 secret of the identity provider and an optional allowlist.
//   - PricingConfigPath: JSON file for the pricing engine (empty = defaults).
//   - WhatsAppPhone: number that receives order messages.
//   - CacheDir: thumbnail cache directory.
//   - StorageLimitMB: safety limit shown in the storage meter.
//   - StagingTTL: idle lifetime of an upload staging set.
//   - ChromePath: Chrome/Chromium binary for PDF export (auto-detected when empty).
type Config struct {
	Env                  string
	Port                 string
	BaseURL              string
	DatabaseURL          string
	StorageBackend       string
	S3Endpoint           string
	S3Region             string
	S3Bucket             string
	S3AccessKey          string
	S3SecretKey          string
	S3PublicBaseURL      string
	DriveCredentialsPath string
	DriveFolderID        string
	AdminJWTSecret       string
	AdminEmails          []string
	PricingConfigPath    string
	WhatsAppPhone        string
	CacheDir             string
	StorageLimitMB       float64
	StagingTTL           time.Duration
	ChromePath           string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the JWT secret and bucket credentials must be overridden in production.
func (c *Config) LoadDefaults() {
	c.Env = "development"
	c.Port = "8080"
	c.BaseURL = "http://localhost:8080"
	c.StorageBackend = StorageS3
	c.S3Endpoint = "http://127.0.0.1:9000"
	c.S3Region = "us-east-1"
	c.S3Bucket = "product-images"
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.WhatsAppPhone = "919778757265"
	c.CacheDir = "cache/images"
	c.StorageLimitMB = 100
	c.StagingTTL = 30 * time.Minute
}

// LoadConfig builds a Config from defaults overlaid with environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := cfg.FromEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv overlays values found through getenv
func (c *Config) FromEnv(getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&c.Env, "ENV")
	setString(&c.Port, "PORT")
	// PORT from some hosts comes with a leading colon
	c.Port = strings.TrimPrefix(c.Port, ":")
	setString(&c.BaseURL, "BASE_URL")
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	c.DatabaseURL = databaseURL(getenv)

	setString(&c.StorageBackend, "STORAGE_BACKEND")
	c.StorageBackend = strings.ToLower(c.StorageBackend)
	setString(&c.S3Endpoint, "S3_ENDPOINT")
	setString(&c.S3Region, "S3_REGION")
	setString(&c.S3Bucket, "S3_BUCKET")
	setString(&c.S3AccessKey, "S3_ACCESS_KEY")
	setString(&c.S3SecretKey, "S3_SECRET_KEY")
	setString(&c.S3PublicBaseURL, "S3_PUBLIC_BASE_URL")
	setString(&c.DriveCredentialsPath, "GOOGLE_APPLICATION_CREDENTIALS")
	setString(&c.DriveFolderID, "DRIVE_FOLDER_ID")
	setString(&c.AdminJWTSecret, "ADMIN_JWT_SECRET")
	setString(&c.PricingConfigPath, "PRICING_CONFIG")
	setString(&c.WhatsAppPhone, "WHATSAPP_PHONE")
	setString(&c.CacheDir, "CACHE_DIR")
	setString(&c.ChromePath, "CHROME_PATH")

	if v := strings.TrimSpace(getenv("ADMIN_EMAILS")); v != "" {
		c.AdminEmails = nil
		for _, email := range strings.Split(v, ",") {
			if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
				c.AdminEmails = append(c.AdminEmails, email)
			}
		}
	}

	if v := strings.TrimSpace(getenv("STORAGE_LIMIT_MB")); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil || limit <= 0 {
			return fmt.Errorf("STORAGE_LIMIT_MB must be a positive number, got %q", v)
		}
		c.StorageLimitMB = limit
	}

	if v := strings.TrimSpace(getenv("STAGING_TTL")); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return fmt.Errorf("STAGING_TTL must be a positive duration, got %q", v)
		}
		c.StagingTTL = ttl
	}

	return nil
}

// databaseURL returns DATABASE_URL or builds a DSN from the DB_* variables
func databaseURL(getenv func(string) string) string {
	if connStr := getenv("DATABASE_URL"); connStr != "" {
		return connStr
	}

	host := getenv("DB_HOST")
	user := getenv("DB_USER")
	dbname := getenv("DB_NAME")
	if host == "" || user == "" || dbname == "" {
		return ""
	}

	port := getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	sslmode := getenv("DB_SSLMODE")
	if sslmode == "" {
		sslmode = "disable"
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, getenv("DB_PASSWORD"), dbname, sslmode)
}

// Validate checks that required settings are present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database connection variables not set. Set DATABASE_URL or DB_HOST, DB_USER, DB_NAME")
	}
	switch c.StorageBackend {
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	case StorageDrive:
		if c.DriveCredentialsPath == "" || c.DriveFolderID == "" {
			return fmt.Errorf("GOOGLE_APPLICATION_CREDENTIALS and DRIVE_FOLDER_ID are required for the drive storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (expected %q or %q)", c.StorageBackend, StorageS3, StorageDrive)
	}
	if c.AdminJWTSecret == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET environment variable is not set")
	}
	return nil
}

// IsProduction reports whether ENV=production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// PublicBucketBase returns the base URL objects are publicly served from
func (c *Config) PublicBucketBase() string {
	if c.S3PublicBaseURL != "" {
		return strings.TrimSuffix(c.S3PublicBaseURL, "/")
	}
	return strings.TrimSuffix(c.S3Endpoint, "/") + "/" + c.S3Bucket
}
