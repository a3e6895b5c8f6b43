package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mvidal-dev/schoolscout/internal/cache"
	"github.com/mvidal-dev/schoolscout/internal/config"
	"github.com/mvidal-dev/schoolscout/internal/crawler"
	"github.com/mvidal-dev/schoolscout/internal/document"
	"github.com/mvidal-dev/schoolscout/internal/index"
	"github.com/mvidal-dev/schoolscout/internal/llm"
	"github.com/mvidal-dev/schoolscout/internal/log"
	"github.com/mvidal-dev/schoolscout/internal/memory"
	"github.com/mvidal-dev/schoolscout/internal/retrieval"
	"github.com/mvidal-dev/schoolscout/internal/session"
	"github.com/mvidal-dev/schoolscout/internal/travel"
)

// app holds the wired component graph shared by the commands.
type app struct {
	cfg      *config.Config
	logger   log.Logger
	cache    *cache.Store
	loader   *document.Loader
	crawler  *crawler.Crawler
	index    *index.Client
	router   *retrieval.Router
	memory   *memory.Store
	model    *llm.OpenAI
	travel   *travel.Kit // nil when no Maps API key is configured
	sessions *session.Store
}

// newApp loads configuration and constructs every component.
func newApp() (*app, error) {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	store, err := cache.New(cache.Config{
		Dir:            cfg.CacheDir,
		DocumentExpiry: time.Duration(cfg.DocumentExpiryDays) * 24 * time.Hour,
		CrawlExpiry:    time.Duration(cfg.CrawlExpiryDays) * 24 * time.Hour,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}

	web, err := document.NewWebLoader(document.WebLoaderConfig{
		Client: httpClient,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	loader, err := document.NewLoader(document.LoaderConfig{
		Cache:  store,
		Web:    web,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	crawl, err := crawler.New(crawler.Config{Client: httpClient, Cache: store, Logger: logger})
	if err != nil {
		return nil, err
	}

	idx, err := index.New(index.Config{BaseURL: cfg.IndexURL, Logger: logger})
	if err != nil {
		return nil, err
	}
	router, err := retrieval.New(retrieval.Config{Index: idx, Logger: logger})
	if err != nil {
		return nil, err
	}

	memories, err := memory.New(memory.Config{Dir: cfg.CacheDir, Logger: logger})
	if err != nil {
		return nil, err
	}

	model, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	var kit *travel.Kit
	if cfg.MapsAPIKey != "" {
		client, err := travel.New(travel.Config{APIKey: cfg.MapsAPIKey, Logger: logger})
		if err != nil {
			return nil, err
		}
		kit, err = travel.NewKit(client, logger)
		if err != nil {
			return nil, err
		}
	} else {
		logger.Info("no maps api key configured, travel tools disabled")
	}

	sessions, err := session.New(session.Config{Dir: cfg.SessionDir, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		cache:    store,
		loader:   loader,
		crawler:  crawl,
		index:    idx,
		router:   router,
		memory:   memories,
		model:    model,
		travel:   kit,
		sessions: sessions,
	}, nil
}

// initLogger builds the process logger. DEBUG in the environment
// lowers the level to debug.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	slog.SetDefault(logger)
	return logger
}
