package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Crawler holds the configuration of the product crawler loaded from environment variables.
type Crawler struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	// Scraping backend
	Backend     string        `env:"SCRAPER_BACKEND" envDefault:"api" validate:"oneof=api chrome"`
	APIURL      string        `env:"SCRAPER_API_URL" envDefault:"https://realtime.oxylabs.io/v1/queries" validate:"required,url"`
	APIUser     string        `env:"API_USER" validate:"required_if=Backend api"`
	APIPassword string        `env:"API_PASSWORD" validate:"required_if=Backend api"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	Interval    time.Duration `env:"REQUEST_INTERVAL" envDefault:"0s"`
	ChromeBin   string        `env:"CHROME_BIN"`

	// Pipeline
	DataDir       string `env:"DATA_DIR" envDefault:"./data" validate:"required"`
	ProjectName   string `env:"PROJECT_NAME" envDefault:"ali_crawler" validate:"required"`
	MaxReviews    int    `env:"MAX_REVIEWS" envDefault:"100" validate:"min=1"`
	FailurePolicy string `env:"ITEM_FAILURE_POLICY" envDefault:"abort" validate:"oneof=abort skip"`

	// Scheduling
	TaskRetries      int           `env:"TASK_RETRIES" envDefault:"1" validate:"min=0"`
	RetryDelay       time.Duration `env:"RETRY_DELAY" envDefault:"5m"`
	ScheduleInterval time.Duration `env:"SCHEDULE_INTERVAL" envDefault:"24h"`
	RunStorePath     string        `env:"RUNSTORE_PATH" envDefault:"crawler_runs.db"`

	// Inter-task data channel
	XComBackend string        `env:"XCOM_BACKEND" envDefault:"memory" validate:"oneof=memory redis"`
	RedisAddr   string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int           `env:"REDIS_DB" envDefault:"0"`
	XComTTL     time.Duration `env:"XCOM_TTL" envDefault:"72h"`

	// Object storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"s3" validate:"oneof=s3 memory"`
	S3Bucket       string `env:"S3_BUCKET" envDefault:"bucket-ali-crawler" validate:"required"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3PathStyle    bool   `env:"S3_PATH_STYLE" envDefault:"false"`

	// PostgreSQL
	PostgresEnabled  bool   `env:"POSTGRES_ENABLED" envDefault:"false"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"crawler"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"crawler123"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"aliexpress"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	MetricsAddr string `env:"METRICS_ADDR"`
}

// Web holds the configuration of the sentiment web app.
type Web struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
	HTTPPort  int    `env:"HTTP_PORT" envDefault:"5000" validate:"min=1,max=65535"`
}

// LoadCrawler reads the .env file and returns a validated crawler Config.
func LoadCrawler() (*Crawler, error) {
	loadDotEnv()
	cfg := &Crawler{}
	if err := parse(cfg); err != nil {
		return nil, fmt.Errorf("load crawler config: %w", err)
	}
	return cfg, nil
}

// LoadWeb reads the .env file and returns a validated web Config.
func LoadWeb() (*Web, error) {
	loadDotEnv()
	cfg := &Web{}
	if err := parse(cfg); err != nil {
		return nil, fmt.Errorf("load web config: %w", err)
	}
	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Crawler) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// KeyPrefix returns the object storage prefix for a run on the given date.
func (c *Crawler) KeyPrefix(date time.Time) string {
	return c.ProjectName + "/" + date.Format("2006-01-02")
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
}

func parse(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}
