package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/roomchat/internal/logger"
	"github.com/Tyrowin/roomchat/internal/server"
)

func main() {
	config, err := server.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(config.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	server.SetConfig(config)

	logger.Log.Infow("starting roomchat server", "addr", config.Addr)

	server.StartHub()

	router := server.SetupRoutes()
	httpServer := server.CreateServer(config.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalw("server failed", "error", err)
		}
	case sig := <-stop:
		logger.Log.Infow("shutdown signal received", "signal", sig.String())
	}

	if err := server.ShutdownServer(httpServer, config.ShutdownTimeout); err != nil {
		logger.Log.Warnw("http server shutdown incomplete", "error", err)
	}
	if err := server.GetHub().Shutdown(config.ShutdownTimeout); err != nil {
		logger.Log.Warnw("hub shutdown incomplete", "error", err)
	}
}
