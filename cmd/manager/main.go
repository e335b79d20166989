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
	"github.com/gtonic/resumebot/pkg/otel"
	"github.com/gtonic/resumebot/server"
)

func main() {
	portFlag := flag.Int("port", 8081, "server port")
	addressFlag := flag.String("address", "", "server address")
	configFlag := flag.String("config", "config.yaml", "configuration path")

	flag.Parse()

	config.Load(".env")

	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	cfg, err := config.Parse(*configFlag)

	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	defer cfg.Close()

	cfg.Address = fmt.Sprintf("%s:%d", *addressFlag, *portFlag)

	s, err := server.NewManager(cfg)

	if err != nil {
		log.WithError(err).Fatal("failed to create manager")
	}

	if err := otel.Setup("resumebot-manager", config.Version); err != nil {
		log.WithError(err).Warn("failed to set up OpenTelemetry")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("address", cfg.Address).Info("manager listening")

		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("manager failed")
		}
	}()

	<-ctx.Done()
	stop()

	// a rebuild in flight gets a while to finish before the marker would be
	// left behind the uploaded index
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("manager shutdown failed")
	}
}
