package main

import (
	"context"
	"errors"
	stdlog "log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/pretzelai/openlingo/internal/config"
	"github.com/pretzelai/openlingo/internal/fetch"
	"github.com/pretzelai/openlingo/internal/httpapi"
	"github.com/pretzelai/openlingo/internal/jobs"
	"github.com/pretzelai/openlingo/internal/langdetect"
	"github.com/pretzelai/openlingo/internal/llm"
	"github.com/pretzelai/openlingo/internal/persistence"
	"github.com/pretzelai/openlingo/internal/pipeline"
	"github.com/pretzelai/openlingo/internal/translator"
	"github.com/pretzelai/openlingo/pkg/log"
)

// chatSwap lets the settings API swap the LLM client at runtime. Both the
// translator and the language detector go through it, so an unset client
// degrades softly instead of crashing the pipeline.
var errNoLLMClient = errors.New("no LLM API key configured")

type chatSwap struct {
	mu     sync.RWMutex
	client *llm.Client
}

func (s *chatSwap) SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return "", errNoLLMClient
	}
	return client.SimpleChat(ctx, prompt, systemPrompt)
}

func (s *chatSwap) set(client *llm.Client) {
	s.mu.Lock()
	s.client = client
	s.mu.Unlock()
}

func buildLLMClient(cfg config.LLMConfig) *llm.Client {
	if cfg.APIKey == "" {
		return nil
	}
	client, err := llm.NewClient(&llm.Config{
		APIKey:      cfg.APIKey,
		APIURL:      cfg.APIURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		SiteURL:     cfg.SiteURL,
		AppName:     cfg.AppName,
	})
	if err != nil {
		log.Warn("Failed to build LLM client: %v", err)
		return nil
	}
	return client
}

func main() {
	_ = godotenv.Load()

	settingsPath := config.RuntimeSettingsFilePath()
	var opts []config.Option
	if persisted, err := config.LoadRuntimeSettingsFile(settingsPath); err == nil {
		opts = append(opts, config.WithRuntimeSettings(persisted))
	}

	cfg, err := config.NewFromEnv(opts...)
	if err != nil {
		stdlog.Fatal("Failed to load configuration:", err)
	}
	log.InitLogger(log.ParseLevel(cfg.Server.LogLevel))

	store, err := persistence.NewSQLiteStore(cfg.Jobs.DBPath)
	if err != nil {
		stdlog.Fatal("Failed to open job store:", err)
	}
	defer store.Close()

	chat := &chatSwap{}
	chat.set(buildLLMClient(cfg.LLM))

	fetcher := fetch.New(fetch.WithRenderProxy(cfg.Fetch.ProxyURL, cfg.Fetch.ProxyAPIKey))
	detector := langdetect.New(chat)
	trans := translator.NewLLMTranslator(chat, cfg.Translate.BridgeLanguage)

	pipe := pipeline.New(store, fetcher, trans, detector,
		pipeline.WithWaveSize(cfg.Jobs.WaveSize))

	queue := jobs.NewQueue(cfg.Jobs.Workers, store)
	queue.Start(pipe.Run)
	defer queue.Stop()

	scheduler := cron.New()
	cleanup := func() {
		cutoff := time.Now().AddDate(0, 0, -cfg.Jobs.RetentionDays)
		removed, err := store.DeleteTerminalJobsBefore(context.Background(), cutoff)
		if err != nil {
			log.Error("Retention sweep failed: %v", err)
			return
		}
		if removed > 0 {
			log.Info("Retention sweep removed %d terminal jobs", removed)
		}
	}
	cleanupEntry, err := scheduler.AddFunc(cfg.Jobs.CleanupCron, cleanup)
	if err != nil {
		stdlog.Fatal("Invalid cleanup cron expression:", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	settingsStore, err := config.NewRuntimeSettingsStore(settingsPath, cfg.RuntimeSettings())
	if err != nil {
		stdlog.Fatal("Failed to initialize runtime settings:", err)
	}

	var cleanupMu sync.Mutex
	applySettings := func(next config.RuntimeSettings) error {
		chat.set(buildLLMClient(config.LLMConfig{
			APIKey:      next.LLMAPIKey,
			APIURL:      next.LLMAPIURL,
			Model:       next.LLMModel,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
			SiteURL:     cfg.LLM.SiteURL,
			AppName:     cfg.LLM.AppName,
		}))

		cleanupMu.Lock()
		defer cleanupMu.Unlock()
		scheduler.Remove(cleanupEntry)
		entry, err := scheduler.AddFunc(next.CleanupCron, cleanup)
		if err != nil {
			return err
		}
		cleanupEntry = entry
		return nil
	}

	server := httpapi.NewServer(store, queue, cfg.Translate,
		httpapi.WithRuntimeSettingsStore(settingsStore),
		httpapi.WithRuntimeSettingsApplier(applySettings))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("Listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Error("HTTP server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed: %v", err)
	}
}
