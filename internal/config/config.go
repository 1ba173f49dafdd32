package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string
}

// URL builds a postgres:// connection URL
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// DSN builds a key=value DSN for pgx
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// WhatsAppConfig holds Cloud API credentials
type WhatsAppConfig struct {
	Token         string
	PhoneNumberID string
	VerifyToken   string
	AppSecret     string
	// SendEnabled false means dry-run: messages are logged, not sent
	SendEnabled bool
}

// BotConfig holds conversation behavior settings
type BotConfig struct {
	// Language is the single supported conversation language
	Language string
	Timezone string
	// IdleReset is how long a session survives without activity
	IdleReset time.Duration
	// SweepInterval is the cadence of the idle/farewell sweeper
	SweepInterval time.Duration
	// PageSize is how many results each reply shows
	PageSize int
	// SearchLimit is how many candidates each tier fetches
	SearchLimit int
}

// Location resolves the configured timezone, falling back to Mexico City
func (b *BotConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		loc, _ = time.LoadLocation("America/Mexico_City")
	}
	return loc
}

// Now is the current time in the bot's timezone
func (b *BotConfig) Now() time.Time {
	return time.Now().In(b.Location())
}

// Config is the top-level application configuration
type Config struct {
	ServerPort string
	ServerEnv  string

	DB       DatabaseConfig
	WhatsApp WhatsAppConfig
	Bot      BotConfig

	OpenAIAPIKey string
	OTLPEndpoint string
}

// Load reads configuration from the environment (.env supported)
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8000"),
		ServerEnv:  getEnv("SERVER_ENV", "production"),
		DB: DatabaseConfig{
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			DBName:   getEnv("POSTGRES_DB", "turicanje"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "require"),
		},
		WhatsApp: WhatsAppConfig{
			Token:         getEnv("WHATSAPP_TOKEN", ""),
			PhoneNumberID: getEnv("PHONE_NUMBER_ID", ""),
			VerifyToken:   getEnv("VERIFY_TOKEN", "verifica_turicanje"),
			AppSecret:     getEnv("APP_SECRET", ""),
			SendEnabled:   getEnvBool("SEND_VIA_WHATSAPP", true),
		},
		Bot: BotConfig{
			Language:      getEnv("SUPPORTED_LANGUAGE", "es"),
			Timezone:      getEnv("TZ", "America/Mexico_City"),
			IdleReset:     time.Duration(getEnvInt("IDLE_RESET_SECONDS", 120)) * time.Second,
			SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 30)) * time.Second,
			PageSize:      getEnvInt("PAGE_SIZE", 3),
			SearchLimit:   getEnvInt("SEARCH_LIMIT", 10),
		},
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
