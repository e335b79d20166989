package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gtonic/resumebot/config"
	"github.com/gtonic/resumebot/pkg/connector"
	"github.com/gtonic/resumebot/pkg/otel"
	"github.com/gtonic/resumebot/server"
)

func main() {
	portFlag := flag.Int("port", 8080, "server port")
	addressFlag := flag.String("address", "", "server address")
	configFlag := flag.String("config", "config.yaml", "configuration path")

	flag.Parse()

	config.Load(".env")
	setupLogging()

	cfg, err := config.Parse(*configFlag)

	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	defer cfg.Close()

	cfg.Address = fmt.Sprintf("%s:%d", *addressFlag, *portFlag)

	s, err := server.New(cfg)

	if err != nil {
		log.WithError(err).Fatal("failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for id, c := range cfg.AllConnectors() {
		go func(id string, c connector.Provider) {
			logger := log.WithField("connector", id)
			logger.Info("starting connector")

			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("connector failed")
			}
		}(id, c)
	}

	if err := otel.Setup("resumebot", config.Version); err != nil {
		log.WithError(err).Warn("failed to set up OpenTelemetry")
	}

	go func() {
		log.WithField("address", cfg.Address).Info("server listening")

		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	stop()

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}
}

func setupLogging() {
	log.SetOutput(os.Stderr)

	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	if os.Getenv("LOG_FORMAT") == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
