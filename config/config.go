package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database  DatabaseConfig
	Telegram  TelegramConfig
	Scraper   ScraperConfig
	Scheduler SchedulerConfig
	Proxy     ProxyConfig
	S3        S3Config
	DBPath    string
	LogLevel  string
	Sources   map[string]*SourceConfig
}

type DatabaseConfig struct {
	URL string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
}

type ScraperConfig struct {
	MaxListings   int
	MaxPages      int
	PageSize      int
	RadiusM       int
	PageDelay     time.Duration
	CityDelay     time.Duration
	IntervalHours int
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ProxyConfig struct {
	URL string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// SourceConfig describes one search source, loaded from config/sources/*.yaml.
type SourceConfig struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Handler     string            `yaml:"handler"`
	BaseURL     string            `yaml:"base_url"`
	Endpoints   map[string]string `yaml:"endpoints"`
	RateLimitMS int               `yaml:"rate_limit_ms"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Telegram: TelegramConfig{
			BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
			ChatID:   os.Getenv("TELEGRAM_USER_ID"),
		},
		Scraper: ScraperConfig{
			MaxListings:   getEnvInt("SCRAPE_MAX_LISTINGS", 100),
			MaxPages:      getEnvInt("SCRAPE_MAX_PAGES", 10),
			PageSize:      getEnvInt("SCRAPE_PAGE_SIZE", 20),
			RadiusM:       getEnvInt("SCRAPE_RADIUS_M", 10000),
			PageDelay:     time.Duration(getEnvInt("SCRAPE_PAGE_DELAY_S", 2)) * time.Second,
			CityDelay:     time.Duration(getEnvInt("SCRAPE_CITY_DELAY_S", 5)) * time.Second,
			IntervalHours: getEnvInt("SCRAPE_INTERVAL_HOURS", 24),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "eu-west-3"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		DBPath:   getEnv("DB_PATH", "scraper.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Sources:  make(map[string]*SourceConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if err := cfg.loadSourceConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSourceConfigs() error {
	configDir := "config/sources"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var source SourceConfig
		if err := yaml.Unmarshal(data, &source); err != nil {
			return err
		}

		c.Sources[source.ID] = &source
	}

	return nil
}

// Source returns the config for the given source ID, with a usable
// default when no YAML file is present.
func (c *Config) Source(id string) *SourceConfig {
	if src, ok := c.Sources[id]; ok {
		return src
	}
	if id == "leboncoin" {
		return &SourceConfig{
			ID:      "leboncoin",
			Name:    "Leboncoin",
			Handler: "api",
			BaseURL: "https://www.leboncoin.fr",
			Endpoints: map[string]string{
				"search": "https://api.leboncoin.fr/finder/search",
			},
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
