package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thoulee21/bedit/internal/api"
	"github.com/thoulee21/bedit/internal/config"
	"github.com/thoulee21/bedit/internal/format"
	"github.com/thoulee21/bedit/internal/session"
	"github.com/thoulee21/bedit/internal/wordcodec"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			slog.Error("load configuration", "error", err)
			os.Exit(1)
		}
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := format.NewRegistry(format.Options{
		MaxInputBytes:        cfg.MaxUploadBytes,
		SanitizeHTML:         cfg.SanitizeHTML,
		MinifyHTML:           cfg.MinifyHTML,
		PDFFallbackPdftotext: cfg.PDFFallbackPdftotext,
		Codec:                wordcodec.NewCodec(cfg.CodecTimeout, log),
		Logger:               log,
	})

	// Sessions expire after SessionTTL of inactivity.
	store := session.NewStore(reg, cfg.SessionTTL, log)
	store.Start(ctx)

	srv := api.NewServer(store, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		store.Stop()
	}()

	log.Info("starting bedit", "port", cfg.Port, "session_ttl", cfg.SessionTTL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
