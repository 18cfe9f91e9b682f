package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"
)

// Env holds every runtime setting. Values come from defaults, then the
// optional TOML file, then environment variables.
type Env struct {
	AppAddr string `toml:"app_addr"`
	GinMode string `toml:"gin_mode"`

	DB       DBConfig      `toml:"database"`
	Auth     AuthConfig    `toml:"auth"`
	Storage  StorageConfig `toml:"storage"`
	Redis    RedisConfig   `toml:"redis"`
	Log      LogConfig     `toml:"log"`
	HTTP     HTTPConfig    `toml:"http"`
	Listing  ListingConfig `toml:"listing"`
	CLIToken string        `toml:"-"`
}

type DBConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	User        string `toml:"user"`
	Password    string `toml:"password"`
	Name        string `toml:"name"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret          string        `toml:"jwt_secret"`
	TokenTTLRaw        string        `toml:"token_ttl"`
	LoginRatePerMinute int           `toml:"login_rate_per_minute"`
	TokenTTL           time.Duration `toml:"-"`
}

type StorageConfig struct {
	Backend       string        `toml:"backend"` // fs | s3
	BasePath      string        `toml:"base_path"`
	PublicBaseURL string        `toml:"public_base_url"`
	Bucket        string        `toml:"bucket"`
	Region        string        `toml:"region"`
	Endpoint      string        `toml:"endpoint"`
	MaxUploadSize string        `toml:"max_upload_size"`
	SignedURLRaw  string        `toml:"signed_url_ttl"`
	SignedURLTTL  time.Duration `toml:"-"`

	maxUploadBytes int64
}

// MaxUploadBytes returns the parsed MaxUploadSize.
func (s StorageConfig) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Enabled reports whether the Redis relay should be started.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type HTTPConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

type ListingConfig struct {
	DefaultPageSize int `toml:"default_page_size"`
	CacheEntries    int `toml:"cache_entries"`
}

func defaultEnv() Env {
	return Env{
		AppAddr: ":8080",
		DB: DBConfig{
			Host: "127.0.0.1",
			Port: 3306,
			User: "root",
			Name: "hki_app",
		},
		Auth: AuthConfig{
			JWTSecret:          "super-secret-key-change-me",
			TokenTTLRaw:        "24h",
			LoginRatePerMinute: 10,
		},
		Storage: StorageConfig{
			Backend:       "fs",
			BasePath:      "storage/sertifikat-hki",
			Bucket:        "sertifikat-hki",
			Region:        "ap-southeast-1",
			MaxUploadSize: "10MB",
			SignedURLRaw:  "300s",
		},
		Log: LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}},
		Listing: ListingConfig{DefaultPageSize: 50, CacheEntries: 32},
	}
}

// LoadEnv reads configuration and exits the process when it is invalid.
func LoadEnv() Env {
	env, err := Load(strings.TrimSpace(os.Getenv("HKI_CONFIG")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "konfigurasi tidak valid: %v\n", err)
		os.Exit(1)
	}
	return env
}

// Load builds Env from defaults, the TOML file at path (optional; "" means
// config.toml when present) and environment overrides.
func Load(path string) (Env, error) {
	env := defaultEnv()

	explicit := path != ""
	if !explicit {
		path = "config.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &env); err != nil {
			return Env{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if explicit {
		return Env{}, fmt.Errorf("read %s: %w", path, err)
	}

	env.loadOverrides()
	if err := env.finalize(); err != nil {
		return Env{}, err
	}
	return env, nil
}

func (e *Env) loadOverrides() {
	setString(&e.AppAddr, "APP_ADDR")
	setString(&e.GinMode, "GIN_MODE")

	setString(&e.DB.Host, "DB_HOST")
	setInt(&e.DB.Port, "DB_PORT")
	setString(&e.DB.User, "DB_USER")
	if v, ok := os.LookupEnv("DB_PASSWORD"); ok {
		e.DB.Password = v
	}
	setString(&e.DB.Name, "DB_NAME")
	setBool(&e.DB.AutoMigrate, "DB_AUTO_MIGRATE")

	setString(&e.Auth.JWTSecret, "JWT_SECRET")
	setString(&e.Auth.TokenTTLRaw, "JWT_TTL")
	setInt(&e.Auth.LoginRatePerMinute, "LOGIN_RATE_PER_MINUTE")

	setString(&e.Storage.Backend, "STORAGE_BACKEND")
	setString(&e.Storage.BasePath, "STORAGE_BASE_PATH")
	setString(&e.Storage.PublicBaseURL, "STORAGE_PUBLIC_BASE_URL")
	setString(&e.Storage.Bucket, "S3_BUCKET")
	setString(&e.Storage.Region, "S3_REGION")
	setString(&e.Storage.Endpoint, "S3_ENDPOINT")
	setString(&e.Storage.MaxUploadSize, "MAX_UPLOAD_SIZE")
	setString(&e.Storage.SignedURLRaw, "SIGNED_URL_TTL")

	setString(&e.Redis.Addr, "REDIS_ADDR")
	if v, ok := os.LookupEnv("REDIS_PASSWORD"); ok {
		e.Redis.Password = v
	}
	setInt(&e.Redis.DB, "REDIS_DB")

	setString(&e.Log.Level, "LOG_LEVEL")
	setString(&e.Log.Format, "LOG_FORMAT")

	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		origins := []string{}
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		e.HTTP.AllowedOrigins = origins
	}

	setInt(&e.Listing.DefaultPageSize, "DEFAULT_PAGE_SIZE")
	setInt(&e.Listing.CacheEntries, "LISTING_CACHE_ENTRIES")
	setString(&e.CLIToken, "HKI_TOKEN")
}

func (e *Env) finalize() error {
	size, err := units.FromHumanSize(e.Storage.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size harus lebih dari 0")
	}
	e.Storage.maxUploadBytes = size

	switch e.Storage.Backend {
	case "fs":
		if strings.TrimSpace(e.Storage.BasePath) == "" {
			return fmt.Errorf("storage base_path wajib diisi untuk backend fs")
		}
	case "s3":
		if strings.TrimSpace(e.Storage.Bucket) == "" {
			return fmt.Errorf("storage bucket wajib diisi untuk backend s3")
		}
	default:
		return fmt.Errorf("storage backend tidak dikenal: %q", e.Storage.Backend)
	}

	if e.Storage.SignedURLTTL, err = parseDuration(e.Storage.SignedURLRaw, 300*time.Second); err != nil {
		return fmt.Errorf("signed_url_ttl: %w", err)
	}
	if e.Auth.TokenTTL, err = parseDuration(e.Auth.TokenTTLRaw, 24*time.Hour); err != nil {
		return fmt.Errorf("token_ttl: %w", err)
	}
	if strings.TrimSpace(e.Auth.JWTSecret) == "" {
		return fmt.Errorf("jwt_secret wajib diisi")
	}
	if e.Listing.DefaultPageSize < 1 || e.Listing.DefaultPageSize > 100 {
		e.Listing.DefaultPageSize = 50
	}
	if e.Listing.CacheEntries < 1 {
		e.Listing.CacheEntries = 32
	}
	return nil
}

// DSN builds the MySQL DSN. multiStatements is required by the migration
// runner; clientFoundRows makes UPDATE report matched rather than changed rows.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s&multiStatements=true&clientFoundRows=true",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
	)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// parseDuration accepts Go durations ("5m") or plain seconds ("300").
func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return fallback, nil
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}
