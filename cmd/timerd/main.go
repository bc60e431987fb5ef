package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"

	"pomosync"
	"pomosync/sqlite"
)

const (
	RepoURL = "https://github.com/pomosync/pomosync"
	Version = "0.1.0"
)

func main() {
	// logger
	log.SetReportCaller(true)

	// config
	cfg, err := pomosync.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// db
	log.Info("opening db", "url", cfg.DatabaseURL)
	db, err := sqlite.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed database open", "err", err)
	}
	if err := sqlite.RunMigrations(db); err != nil {
		log.Fatal("failed migration", "err", err)
	}
	defer db.Close() //nolint

	tx, dbGetter := txStdLib.NewTransactor(
		db,
		txStdLib.NestedTransactionsSavepoints,
	)

	entryRepo := sqlite.NewTimeEntryRepo(dbGetter, *log.Default())
	settingsRepo := sqlite.NewTimerSettingsRepo(dbGetter, *log.Default())

	// sync hub + http server
	h := newHub(log.Default())
	srv := newServer(log.Default(), tx, entryRepo, settingsRepo, h)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("timerd running. Press CTRL-C to exit.", "addr", cfg.Addr, "version", Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "err", err)
		}
	}()

	// graceful shutdown
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	log.Info("terminating timerd")
	shutdownTimeout, shutdownTimeoutC := context.WithTimeout(context.Background(), time.Minute)
	go func() {
		// drain http before tearing down the hub so in-flight recordings land
		if err := httpServer.Shutdown(context.Background()); err != nil {
			log.Error(err)
		}
		h.shutdown()
		shutdownTimeoutC()
	}()
	<-shutdownTimeout.Done()
	if shutdownTimeout.Err() != context.Canceled {
		log.Error("failed to shut down gracefully", "err", shutdownTimeout.Err())
	}
}
