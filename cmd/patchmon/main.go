package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/patchmon/patchmon/internal/ai"
	"github.com/patchmon/patchmon/internal/fetch"
	"github.com/patchmon/patchmon/internal/inventory"
	"github.com/patchmon/patchmon/internal/notifications"
	"github.com/patchmon/patchmon/internal/patchmon"
	"github.com/patchmon/patchmon/internal/store"
	"github.com/patchmon/patchmon/internal/vendors"
	"github.com/patchmon/patchmon/internal/webserver"
)

func main() {
	ctx := context.Background()

	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	inventoryFileFlag := flag.String("i", "", "Path to a CSV inventory file (overrides INVENTORY_FILE)")
	runOnceFlag := flag.Bool("once", false, "Run a single detection pass and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found. Proceeding with environment variables.")
	}

	cfg, err := patchmon.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load pipeline configuration: %v", err)
	}
	if *inventoryFileFlag != "" {
		cfg.InventoryFile = *inventoryFileFlag
	}
	if *runOnceFlag {
		cfg.RunOnce = true
	}

	// Inventory source
	var source inventory.Source
	switch {
	case cfg.InventoryURL != "":
		source = inventory.NewAPISource(cfg.InventoryURL, cfg.InventoryAPIKey)
		logger.Infof("Using asset API inventory source: %s", cfg.InventoryURL)
	case cfg.InventoryFile != "":
		source = inventory.NewFileSource(cfg.InventoryFile)
		logger.Infof("Using file inventory source: %s", cfg.InventoryFile)
	default:
		logger.Fatal("One of INVENTORY_URL or INVENTORY_FILE is required.")
	}

	// Alert store
	storeCfg, err := store.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load store configuration: %v", err)
	}

	var db store.Store
	switch storeCfg.Type {
	case "bolt":
		db, err = store.NewBoltStore(storeCfg.Path)
		if err != nil {
			logger.Fatalf("Failed to initialize BoltStore: %v", err)
		}
		logger.Info("BoltStore initialized successfully")
	case "redis":
		db, err = store.NewRedisStore(storeCfg)
		if err != nil {
			logger.Fatalf("Failed to initialize RedisStore: %v", err)
		}
		logger.Info("RedisStore initialized successfully")
	default:
		logger.Fatalf("Unsupported database type: %s", storeCfg.Type)
	}
	defer db.Close(ctx)

	// Notifier (optional)
	notifCfg := notifications.LoadNotificationConfig()
	notifier, err := notifications.NewNotifier(notifCfg.ShoutrrrURLs)
	if err != nil {
		logger.Fatalf("Failed to initialize notifier: %v", err)
	}
	if notifier != nil {
		logger.Info("Notifier initialized successfully")
	}

	// Language model client (optional); without it the AI resolution and
	// extraction tiers degrade to misses.
	llm, err := ai.NewOpenAIClientFromEnv()
	if err != nil {
		logger.Fatalf("Failed to initialize language model client: %v", err)
	}
	var llmClient ai.Client
	if llm != nil {
		llmClient = llm
		logger.Info("Language model client initialized")
	} else {
		logger.Warn("OPENAI_API_KEY not provided. AI resolution and extraction tiers disabled.")
	}

	// Resolution and fetch pipeline
	cache := vendors.NewTTLCache(vendors.DefaultTTL, nil)
	resolver := vendors.NewResolver(cache, vendors.NewKnowledgeBase(), discovererOrNil(llmClient))
	fetcher := fetch.NewFetcher(extractorOrNil(llmClient))

	monitor := patchmon.NewMonitor(patchmon.MonitorConfig{
		Inventory:     source,
		Resolver:      resolver,
		Fetcher:       fetcher,
		Store:         db,
		Notifier:      notifier,
		CheckInterval: cfg.CheckInterval,
		RecordRate:    cfg.RecordRate,
		MaxWorkers:    cfg.MaxWorkers,
		RateLimits:    cfg.RateLimits,
	})

	if cfg.RunOnce {
		summary, err := monitor.RunDetection(ctx)
		if err != nil {
			logger.Fatalf("Detection pass failed: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"total_found": summary.TotalFound,
			"saved_count": summary.SavedCount,
		}).Info("Detection pass complete. Exiting.")
		return
	}

	webServerConfig, err := webserver.NewWebserverConfig()
	if err != nil {
		logger.Fatalf("Failed to load webserver configuration: %v", err)
	}

	webServer := webserver.NewWebServer(monitor, webServerConfig, logger)

	ctxCancel, cancel := context.WithCancel(ctx)
	defer cancel()

	server, err := webserver.StartWebServer(ctxCancel, webServer)
	if err != nil {
		logger.Fatalf("Failed to start web server: %v", err)
	}

	go func() {
		logger.Info("Starting scheduled update detection")
		monitor.Start(ctxCancel)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	logger.Infof("Received signal: %s. Initiating shutdown...", sig)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Failed to gracefully shutdown the server: %v", err)
	}

	logger.Info("Shutdown complete. Exiting.")
}

// discovererOrNil avoids handing the resolver a typed nil interface.
func discovererOrNil(client ai.Client) vendors.Discoverer {
	d := vendors.NewAIDiscoverer(client)
	if d == nil {
		return nil
	}
	return d
}

// extractorOrNil does the same for the fetcher's extraction tier.
func extractorOrNil(client ai.Client) fetch.Extractor {
	e := fetch.NewAIExtractor(client)
	if e == nil {
		return nil
	}
	return e
}
