package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort     int           `env:"SERVER_PORT" envDefault:"8080"`
	Env            string        `env:"ENV" envDefault:"production"`
	FrontendOrigin []string      `env:"FRONTEND_ORIGIN" envSeparator:"," envDefault:"http://localhost:5173"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	Database DatabaseConfig `envPrefix:"DB_"`
	Auth     AuthConfig     `envPrefix:"JWT_"`
	Storage  StorageConfig
	Upload   UploadConfig  `envPrefix:"UPLOAD_"`
	AI       AIConfig      `envPrefix:"AI_"`
	Sitemap  SitemapConfig `envPrefix:"SITEMAP_"`
	MQ       MQConfig      `envPrefix:"MQ_"`
	Log      LogConfig     `envPrefix:"LOG_"`
}

type DatabaseConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     int    `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"portfolio"`
	Password string `env:"PASSWORD" envDefault:"password"`
	DBName   string `env:"NAME" envDefault:"portfolio_db"`
	UseSSL   bool   `env:"USE_SSL" envDefault:"false"`
}

type AuthConfig struct {
	Secret       string        `env:"SECRET"`
	TokenTTL     time.Duration `env:"EXPIRES_IN" envDefault:"168h"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"token"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Backend string      `env:"STORAGE_BACKEND" envDefault:"minio"`
	Minio   MinioConfig `envPrefix:"MINIO_"`
	GCS     GCSConfig   `envPrefix:"GCS_"`
}

type MinioConfig struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"portfolio"`
	Region    string `env:"REGION"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
	// PublicURL is the base URL objects are served from, e.g. a CDN or
	// the bucket's public endpoint. Keys are appended to it.
	PublicURL string `env:"PUBLIC_URL"`
}

type GCSConfig struct {
	Bucket          string `env:"BUCKET"`
	ProjectID       string `env:"PROJECT_ID"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
	PublicURL       string `env:"PUBLIC_URL"`
}

type UploadConfig struct {
	MaxFileSize int64 `env:"MAX_FILE_SIZE" envDefault:"5242880"`
	MaxFiles    int   `env:"MAX_FILES" envDefault:"10"`
	MaxWidth    int   `env:"MAX_WIDTH" envDefault:"1920"`
	MaxHeight   int   `env:"MAX_HEIGHT" envDefault:"1080"`
	Quality     int   `env:"QUALITY" envDefault:"80"`
}

type AIConfig struct {
	APIKey        string        `env:"API_KEY"`
	BaseURL       string        `env:"BASE_URL"`
	Model         string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	MaxInputChars int           `env:"MAX_INPUT_CHARS" envDefault:"3000"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type SitemapConfig struct {
	SiteURL      string   `env:"SITE_URL" envDefault:"http://localhost:5173"`
	OutputPath   string   `env:"OUTPUT_PATH" envDefault:"./public/sitemap.xml"`
	StaticRoutes []string `env:"STATIC_ROUTES" envSeparator:"," envDefault:"/,/about,/portfolio,/blog,/contact"`
	Channel      string   `env:"CHANNEL" envDefault:"sitemap.regenerate"`
}

type MQConfig struct {
	Backend  string         `env:"BACKEND" envDefault:"memory"`
	Buffer   int            `env:"BUFFER" envDefault:"16"`
	RabbitMQ RabbitMQConfig `envPrefix:"RABBITMQ_"`
	PubSub   PubSubConfig   `envPrefix:"PUBSUB_"`
}

type RabbitMQConfig struct {
	URL             string `env:"URL"`
	PrefetchCount   int    `env:"PREFETCH" envDefault:"1"`
	QueueDurable    bool   `env:"DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"AUTO_DELETE" envDefault:"false"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PROJECT_ID"`
	CredentialsFile    string `env:"CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

// LoadConfig reads the process environment. In dev a local .env file is
// loaded first.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Auth.Secret = strings.TrimSpace(cfg.Auth.Secret)
	cfg.Sitemap.SiteURL = strings.TrimRight(cfg.Sitemap.SiteURL, "/")
	return cfg, nil
}

// IsDevelopment reports whether the server runs in dev mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "dev" || c.Env == "development"
}
