package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"amznerrors/dealbot/config"
	"amznerrors/dealbot/internal/bot"
	"amznerrors/dealbot/internal/catalog"
	"amznerrors/dealbot/internal/matcher"
	"amznerrors/dealbot/internal/notify"
	"amznerrors/dealbot/internal/pricehistory"
	"amznerrors/dealbot/internal/scraper"
	"amznerrors/dealbot/logger"
	"amznerrors/dealbot/services/cache"
	"amznerrors/dealbot/services/publisher"
	"amznerrors/dealbot/services/seen"
	"amznerrors/dealbot/services/store"
	"amznerrors/dealbot/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("channel", cfg.Channel).
		Dur("scrape_interval", cfg.ScrapeInterval).
		Int("min_discount", cfg.MinDiscount).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	// Build the pipeline
	cat := catalog.New(cfg.BaseURL, cfg.AffiliateTag)
	scr := scraper.New(scraper.Config{
		Catalog:   cat,
		CacheSvc:  services.Cache,
		BlockTime: cfg.FetchBlockTime,
	})
	agg := scraper.NewAggregator(scr, cat, cfg.FetchConcurrency)

	var history *pricehistory.Service
	if cfg.PriceHistoryEnabled {
		history = pricehistory.New(cfg.PriceHistoryURL, nil)
		log.Info().Str("base_url", cfg.PriceHistoryURL).Msg("Price history lookups enabled")
	}

	m := matcher.New(services.Store, services.Seen, scr, cfg.MinDiscount)

	w := worker.New(ctx, worker.Config{
		Aggregator:  agg,
		Matcher:     m,
		Seen:        services.Seen,
		Store:       services.Store,
		Notifier:    services.Notifier,
		Publisher:   services.Publisher,
		History:     history,
		MinDiscount: cfg.MinDiscount,
		Interval:    cfg.ScrapeInterval,
		FirstDelay:  cfg.FirstScrapeDelay,
	})

	b := bot.New(bot.Config{
		API:       services.API,
		Store:     services.Store,
		Searcher:  agg,
		Runner:    w,
		AdminUser: cfg.AdminUser,
	})

	if cfg.DebugPing {
		if err := services.Notifier.SendChannel(ctx, "✅ Debug ping: bot started"); err != nil {
			logger.LogError("main", err, "Debug ping failed")
		}
	}

	// Start worker and bot
	workerDone := make(chan struct{})
	go func() {
		w.Start()
		close(workerDone)
	}()
	go b.Run(ctx)

	// Wait for shutdown signal or worker exit
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case <-workerDone:
		log.Info().Msg("Worker exited")
	}

	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Seen      seen.Store
	Store     store.Store
	Publisher publisher.Publisher
	Notifier  notify.Notifier
	API       *tgbotapi.BotAPI
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Seen != nil {
		s.Seen.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize cache service
	services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize seen store
	services.Seen = seen.NewRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.SeenTTL, cfg.ReserveTTL)
	logger.Info("Connected to Redis at %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)

	// Initialize subscription/alert store
	st, err := store.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	services.Store = st
	logger.Info("Opened SQLite store at %s", cfg.SQLitePath)

	// Initialize feed publisher
	services.Publisher = publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	logger.Info("Publishing deals to stream %s (shards: %d)", cfg.RedisStream, cfg.RedisStreamCount)

	// Initialize Telegram
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		services.Cleanup()
		return nil, err
	}
	services.API = api
	services.Notifier = notify.NewTelegramNotifier(api, cfg.Channel, cfg.AdminChatID, cfg.NotifyPerSecond)
	logger.Info("Authorized on Telegram as %s", api.Self.UserName)

	return services, nil
}
