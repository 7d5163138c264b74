package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Application settings
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Ads      AdsConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
}

// Server settings
type ServerConfig struct {
	Port string
}

// Outbound platform client tuning and per-platform credentials
type AdsConfig struct {
	RequestTimeout     time.Duration
	RateLimitPerSecond int
	GoogleAds          GoogleAdsCredentials
	MetaAds            MetaAdsCredentials
}

// GoogleAdsCredentials is the credential set required by the Google Ads
// adapter. Any empty required field leaves the adapter disconnected.
type GoogleAdsCredentials struct {
	DeveloperToken string
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	CustomerID     string
	APIBaseURL     string
	TokenURL       string
}

// Complete reports whether every required credential is present.
func (c GoogleAdsCredentials) Complete() bool {
	return c.DeveloperToken != "" && c.ClientID != "" && c.ClientSecret != "" &&
		c.RefreshToken != "" && c.CustomerID != ""
}

// MetaAdsCredentials is the credential set required by the Meta Ads
// adapter.
type MetaAdsCredentials struct {
	AccessToken string
	AppID       string
	AppSecret   string
	AdAccountID string
	APIBaseURL  string
}

// Complete reports whether every required credential is present.
func (c MetaAdsCredentials) Complete() bool {
	return c.AccessToken != "" && c.AppID != "" && c.AppSecret != "" && c.AdAccountID != ""
}

// Database settings. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL string
}

// Report generator settings
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	// Best effort .env preload for local development
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Ads: AdsConfig{
			RequestTimeout:     getDurationEnv("ADS_REQUEST_TIMEOUT", "30s"),
			RateLimitPerSecond: getIntEnv("ADS_RATE_LIMIT_PER_SECOND", 10),
			GoogleAds: GoogleAdsCredentials{
				DeveloperToken: getEnv("GOOGLE_ADS_DEVELOPER_TOKEN", ""),
				ClientID:       getEnv("GOOGLE_ADS_CLIENT_ID", ""),
				ClientSecret:   getEnv("GOOGLE_ADS_CLIENT_SECRET", ""),
				RefreshToken:   getEnv("GOOGLE_ADS_REFRESH_TOKEN", ""),
				CustomerID:     getEnv("GOOGLE_ADS_CUSTOMER_ID", ""),
				APIBaseURL:     getEnv("GOOGLE_ADS_API_URL", "https://googleads.googleapis.com"),
				TokenURL:       getEnv("GOOGLE_ADS_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			},
			MetaAds: MetaAdsCredentials{
				AccessToken: getEnv("META_ACCESS_TOKEN", ""),
				AppID:       getEnv("META_APP_ID", ""),
				AppSecret:   getEnv("META_APP_SECRET", ""),
				AdAccountID: getEnv("META_AD_ACCOUNT_ID", ""),
				APIBaseURL:  getEnv("META_API_URL", "https://graph.facebook.com/v19.0"),
			},
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
