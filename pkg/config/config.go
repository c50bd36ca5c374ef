package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tudu/pkg/apperrors"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	GigaChat GigaChatConfig
	App      AppConfig
	Storage  StorageConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level  string
	Format string // json or console
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
	AllowOrigins string
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	AutoMigrate bool
}

// JWTConfig configures the optional personal access token check.
// An empty SecretKey leaves the API open.
type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
}

func (c JWTConfig) Enabled() bool {
	return c.SecretKey != ""
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
	Model              string
	Timeout            time.Duration
}

type AppConfig struct {
	// UTCOffset is the reference offset used to resolve relative dates,
	// e.g. "+05:30".
	UTCOffset       string
	DefaultCurrency string
}

// Location returns the fixed zone described by UTCOffset.
func (c AppConfig) Location() (*time.Location, error) {
	return ParseUTCOffset(c.UTCOffset)
}

// StorageConfig points at an S3-compatible bucket for receipt images.
// Storage is off when Bucket is empty.
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

func (c StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work too (Docker/K8s)
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, err := getEnvInt("SERVER_READ_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := getEnvInt("SERVER_WRITE_TIMEOUT", 90)
	if err != nil {
		return nil, err
	}
	bodyLimitMB, err := getEnvInt("SERVER_BODY_LIMIT_MB", 12)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	jwtExp, err := getEnvInt("JWT_EXPIRATION_HOURS", 24*30)
	if err != nil {
		return nil, err
	}
	llmTimeout, err := getEnvInt("LLM_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
			BodyLimit:    bodyLimitMB * 1024 * 1024,
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "tudu"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    int32(maxConns),
			AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", ""),
			Expiration: time.Duration(jwtExp) * time.Hour,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: getEnvBool("GIGACHAT_INSECURE_SKIP_VERIFY", true),
			Model:              getEnv("GIGACHAT_MODEL", "GigaChat"),
			Timeout:            time.Duration(llmTimeout) * time.Second,
		},
		App: AppConfig{
			UTCOffset:       getEnv("APP_UTC_OFFSET", "+05:30"),
			DefaultCurrency: strings.ToUpper(getEnv("APP_DEFAULT_CURRENCY", "INR")),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			Region:          getEnv("STORAGE_REGION", "auto"),
			Bucket:          getEnv("STORAGE_BUCKET", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			PublicBaseURL:   strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE_URL", ""), "/"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GigaChat.APIKey) == "" {
		return apperrors.ConfigurationMissing("GIGACHAT_API_KEY")
	}
	if c.GigaChat.Timeout <= 0 {
		return apperrors.ConfigurationMissing("LLM_TIMEOUT_SECONDS")
	}
	if _, err := c.App.Location(); err != nil {
		return apperrors.ConfigurationMissing("APP_UTC_OFFSET")
	}
	if c.Storage.Enabled() && (c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "") {
		return apperrors.ConfigurationMissing("STORAGE_ACCESS_KEY_ID/STORAGE_SECRET_ACCESS_KEY")
	}
	return nil
}

// DSN returns the keyword/value connection string used by pgxpool.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the same connection as a postgres:// URL, which the
// migration driver requires.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

var utcOffsetPattern = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// ParseUTCOffset turns "+05:30" style offsets into a fixed zone.
func ParseUTCOffset(offset string) (*time.Location, error) {
	m := utcOffsetPattern.FindStringSubmatch(strings.TrimSpace(offset))
	if m == nil {
		return nil, fmt.Errorf("invalid UTC offset %q, want ±HH:MM", offset)
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("UTC offset %q out of range", offset)
	}
	seconds := hours*3600 + minutes*60
	if m[1] == "-" {
		seconds = -seconds
	}
	return time.FixedZone("UTC"+m[0], seconds), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
