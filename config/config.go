package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"amznerrors/dealbot/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Telegram configuration
	BotToken    string
	Channel     string
	AdminUser   string
	AdminChatID int64
	DebugPing   bool

	// Catalog configuration
	BaseURL      string
	AffiliateTag string
	MinDiscount  int

	// Scrape cycle configuration
	ScrapeInterval   time.Duration
	FirstScrapeDelay time.Duration
	FetchConcurrency int
	FetchBlockTime   time.Duration

	// Memcache configuration
	MemcacheAddr string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	SeenTTL              time.Duration
	ReserveTTL           time.Duration
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// SQLite configuration
	SQLitePath string

	// Notifier configuration
	NotifyPerSecond float64

	// Price history configuration
	PriceHistoryEnabled bool
	PriceHistoryURL     string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	minDiscount, _ := strconv.Atoi(getEnv("MIN_DISCOUNT", "90"))
	scrapeInterval, _ := strconv.Atoi(getEnv("SCRAPE_INTERVAL_SECONDS", "3600"))
	firstDelay, _ := strconv.Atoi(getEnv("FIRST_SCRAPE_DELAY_SECONDS", "10"))
	fetchConcurrency, _ := strconv.Atoi(getEnv("FETCH_CONCURRENCY", "4"))
	fetchBlock, _ := strconv.Atoi(getEnv("FETCH_BLOCK_SECONDS", "300"))
	seenTTL, _ := strconv.Atoi(getEnv("SEEN_TTL_HOURS", "2160"))
	reserveTTL, _ := strconv.Atoi(getEnv("RESERVE_TTL_SECONDS", "900"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	adminChatID, _ := strconv.ParseInt(getEnv("ADMIN_CHAT_ID", "0"), 10, 64)
	notifyPerSecond, _ := strconv.ParseFloat(getEnv("NOTIFY_PER_SECOND", "1"), 64)

	return Config{
		BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		Channel:     normalizeChannel(getEnv("TELEGRAM_CHANNEL", "AmznErrorsCA")),
		AdminUser:   getEnv("ADMIN_USERNAME", ""),
		AdminChatID: adminChatID,
		DebugPing:   strings.EqualFold(getEnv("DEBUG_PING", "false"), "true"),

		BaseURL:      getEnv("BASE_URL", "https://www.amazon.ca"),
		AffiliateTag: getEnv("AFFILIATE_TAG", "amznerrorsca-20"),
		MinDiscount:  minDiscount,

		ScrapeInterval:   time.Duration(scrapeInterval) * time.Second,
		FirstScrapeDelay: time.Duration(firstDelay) * time.Second,
		FetchConcurrency: fetchConcurrency,
		FetchBlockTime:   time.Duration(fetchBlock) * time.Second,

		MemcacheAddr: getEnv("MEMCACHE_ADDR", "localhost:11211"),

		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		SeenTTL:              time.Duration(seenTTL) * time.Hour,
		ReserveTTL:           time.Duration(reserveTTL) * time.Second,
		RedisStream:          getEnv("REDIS_STREAM", "deals"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMaxLen,

		SQLitePath: getEnv("SQLITE_PATH", "dealbot.db"),

		NotifyPerSecond: notifyPerSecond,

		PriceHistoryEnabled: strings.EqualFold(getEnv("PRICE_HISTORY_ENABLED", "false"), "true"),
		PriceHistoryURL:     getEnv("PRICE_HISTORY_URL", "https://camelcamelcamel.com"),

		Environment: getEnv("DEALBOT_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return errors.NewConfiguration("TELEGRAM_BOT_TOKEN is required", nil)
	}
	if c.MinDiscount < 0 || c.MinDiscount > 100 {
		return errors.NewConfiguration("MIN_DISCOUNT must be between 0 and 100", nil)
	}
	if c.ScrapeInterval <= 0 {
		return errors.NewConfiguration("SCRAPE_INTERVAL_SECONDS must be positive", nil)
	}
	if c.FetchConcurrency <= 0 {
		return errors.NewConfiguration("FETCH_CONCURRENCY must be positive", nil)
	}
	if c.RedisStreamCount <= 0 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be positive", nil)
	}
	if c.NotifyPerSecond <= 0 {
		return errors.NewConfiguration("NOTIFY_PER_SECOND must be positive", nil)
	}
	return nil
}

// normalizeChannel ensures the channel name carries the @ prefix Telegram expects
func normalizeChannel(raw string) string {
	if raw == "" || strings.HasPrefix(raw, "@") {
		return raw
	}
	return "@" + raw
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
