package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets have no in-code defaults and must come from the environment or a .env file.
type AppConfig struct {
	AppPort string
	GinMode string

	// Admin gate
	AdminPassword   string // plain text, or a bcrypt hash ($2a$/$2b$ prefix)
	SessionSecret   string
	SessionTTLHours int

	// Database
	DatabaseURL string
	DBDriver    string // postgres or sqlite

	// Uploads
	UploadDir    string
	MaxUploadMB  int
	ImageExts    []string
	VideoExts    []string
	MediaPerPost int

	RateLimitPerMinute int
	AllowedOrigins     []string

	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Optional read-side cache
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
}

var cfg AppConfig
var loaded bool

// Load reads configuration from the environment (a .env file is honored when
// present). It should be called once during boot and exits on missing secrets.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = godotenv.Load()

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.AdminPassword == "" {
		log.Fatal("ADMIN_PASSWORD must be set in environment variables")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set in environment variables")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 12
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.UploadDir == "" {
		c.UploadDir = "static/uploads"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 100
	}
	if len(c.ImageExts) == 0 {
		c.ImageExts = []string{"png", "jpg", "jpeg", "gif", "webp"}
	}
	if len(c.VideoExts) == 0 {
		c.VideoExts = []string{"mp4", "webm", "ogg", "mov", "m4v"}
	}
	if c.MediaPerPost == 0 {
		c.MediaPerPost = 15
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 30
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
}

func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("APP_PORT"); v != "" {
		c.AppPort = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.GinMode = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		c.AdminPassword = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		c.SessionTTLHours = mustParseInt(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.DBDriver = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		c.MaxUploadMB = mustParseInt(v)
	}
	if v := os.Getenv("ALLOWED_IMAGE_EXTS"); v != "" {
		c.ImageExts = splitAndTrim(v)
	}
	if v := os.Getenv("ALLOWED_VIDEO_EXTS"); v != "" {
		c.VideoExts = splitAndTrim(v)
	}
	if v := os.Getenv("MEDIA_PER_POST"); v != "" {
		c.MediaPerPost = mustParseInt(v)
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_AGE_DAYS"); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		c.RedisEnabled = v == "true"
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
