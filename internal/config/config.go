package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	SiteURL   string
	Location  *time.Location

	// Staff auth
	AppPassword string
	JWTSecret   string
	JWTTTL      time.Duration

	// Twilio
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Postmark
	PostmarkToken string
	EmailFrom     string
	PastorEmail   string

	// Vimeo
	VimeoAccessToken string
	VimeoVideoID     string

	RotationCheckInterval time.Duration
	RateLimitPerMinute    int
}

// Load reads configuration from the environment. Missing provider
// credentials are not an error; they disable the dependent feature.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("FLOCK_PORT", "8080"),
		DBPath:                os.Getenv("FLOCK_DB_PATH"),
		LogLevel:              getEnv("FLOCK_LOG_LEVEL", "info"),
		LogFormat:             getEnv("FLOCK_LOG_FORMAT", "text"),
		AppPassword:           os.Getenv("APP_PASSWORD"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		TwilioAccountSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:       os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:      os.Getenv("TWILIO_FROM_NUMBER"),
		PostmarkToken:         os.Getenv("POSTMARK_SERVER_TOKEN"),
		EmailFrom:             os.Getenv("EMAIL_FROM"),
		PastorEmail:           os.Getenv("PASTOR_EMAIL"),
		VimeoAccessToken:      os.Getenv("VIMEO_ACCESS_TOKEN"),
		VimeoVideoID:          os.Getenv("VIMEO_VIDEO_ID"),
	}
	if _, ok := os.LookupEnv("FLOCK_DB_PATH"); !ok {
		cfg.DBPath = "flock.db"
	}

	cfg.SiteURL = strings.TrimRight(getEnv("SITE_URL", "http://localhost:"+cfg.Port), "/")

	var err error
	if cfg.JWTTTL, err = durationEnv("JWT_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RotationCheckInterval, err = durationEnv("ROTATION_CHECK_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MIN", 20); err != nil {
		return nil, err
	}

	cfg.Location = time.Local
	if tz := os.Getenv("FLOCK_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("FLOCK_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
