package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"benchtalk/internal/auth"
	"benchtalk/internal/config"
	"benchtalk/internal/gateway"
	"benchtalk/internal/room"
	"benchtalk/llm"
	"benchtalk/scene"
	"benchtalk/scene/persona"
	"benchtalk/transcript"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Server] Failed to load config: %v", err)
	}

	authService, err := auth.NewSQLiteService(cfg.Auth.DatabasePath, cfg.Auth.SessionTTL)
	if err != nil {
		log.Fatalf("[Server] Failed to init auth service: %v", err)
	}
	defer authService.Close()

	store, err := openTranscriptStore(cfg.Transcript)
	if err != nil {
		log.Fatalf("[Server] Failed to init transcript store: %v", err)
	}
	defer store.Close()

	registry := persona.NewRegistry()
	if err := registry.LoadFromFile(cfg.Personas.Path); err != nil {
		log.Printf("[Server] No personas loaded from %s: %v", cfg.Personas.Path, err)
	}
	log.Printf("[Server] Loaded %d personas", registry.Count())

	engineCfg := scene.DefaultConfig()
	engineCfg.Seed = cfg.Scene.Seed
	engineCfg.TopK = cfg.Scene.TopK
	engineCfg.HistoryLimit = cfg.Scene.HistoryLimit
	engine, err := scene.NewEngine(engineCfg)
	if err != nil {
		log.Fatalf("[Server] Failed to init behavior engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var gen scene.GenerateFunc
	if cfg.LLM.APIURL != "" {
		client := llm.NewClient(llm.Config{
			APIURL:      cfg.LLM.APIURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		})
		generator := llm.NewGenerator(client, registry, cfg.LLM.Timeout)
		gen = generator.Bind(ctx, engine.History)
		log.Printf("[Server] LLM generation enabled: %s (%s)", cfg.LLM.APIURL, cfg.LLM.Model)
	} else {
		log.Printf("[Server] No LLM endpoint configured; scenes run silent")
	}

	gw := gateway.New(authService, nil, store)
	rm := room.New("room-1", room.Config{TickInterval: cfg.Scene.TickInterval},
		engine, gen, registry, store, gw.Broadcast)
	defer rm.Close()
	gw.SetRoom(rm)

	mux := http.NewServeMux()
	gw.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("[Server] Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] Failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("[Server] Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Shutdown error: %v", err)
	}
}

func openTranscriptStore(cfg config.TranscriptConfig) (transcript.Store, error) {
	if cfg.Driver == "postgres" {
		return transcript.NewPostgresStore(cfg.PostgresDSN)
	}
	return transcript.NewSQLiteStore(cfg.SQLitePath)
}
