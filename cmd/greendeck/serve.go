package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"GreenDeck/internal/logger"
	"GreenDeck/internal/recorder"
	"GreenDeck/internal/scheduler"
	"GreenDeck/internal/server"
	"GreenDeck/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Info("GreenDeck starting", "addr", cfg.Server.Addr, "storage", cfg.Storage.Backend)

	d, err := openDeck(cfg)
	if err != nil {
		return fmt.Errorf("load deck: %w", err)
	}
	log.Info("deck loaded", "title", d.Title, "slides", d.Len(), "sections", len(d.Sections))

	store, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", "error", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	reg := session.NewRegistry(store, d, log)

	sched := scheduler.NewScheduler(reg, rec, cfg.Session.IdleTimeout, log)
	if err := sched.RegisterAll(cfg.Schedule.SnapshotCron, cfg.Schedule.SweepCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(d, reg, rec, log, server.Options{SingleUser: cfg.Session.SingleUser})
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received, stopping", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Close()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	sched.RunSnapshotNow()
	log.Info("GreenDeck stopped")
	return nil
}
