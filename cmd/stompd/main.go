package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/life-stream-dev/stomp-ws-broker/internal/broker"
	"github.com/life-stream-dev/stomp-ws-broker/internal/config"
	"github.com/life-stream-dev/stomp-ws-broker/internal/event"
	"github.com/life-stream-dev/stomp-ws-broker/internal/logger"
	"github.com/life-stream-dev/stomp-ws-broker/internal/transport"
	"github.com/life-stream-dev/stomp-ws-broker/internal/transport/ws"
)

func main() {
	cfg, err := config.ReadConfig()
	if err != nil {
		logger.FatalF("Error occured while reading config %v", err)
		return
	}
	log := logger.New(os.Stdout, cfg.DebugMode)
	logger.SetDefault(log)
	logger.Debug("Application initializing...")

	if cfg.Protocol != "ws" {
		logger.FatalF("Unsupported protocol %q, only ws is available", cfg.Protocol)
		return
	}

	cleaner := event.NewCleaner()

	b := broker.New(cfg, log)
	cleaner.Add(event.CallableFunc(func(ctx context.Context) error {
		b.Close()
		return nil
	}))

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, &ws.Acceptor{
		Path: cfg.Path,
		OnAccept: func(t transport.Transport) {
			b.HandleConnection(t)
		},
		Log: log,
	})

	srv := &http.Server{Addr: cfg.Server, Handler: mux}
	cleaner.Add(event.CallableFunc(srv.Shutdown))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.InfoF("STOMP broker listening on %s%s", cfg.Server, cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorF("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	for _, err := range cleaner.Run(context.Background()) {
		logger.ErrorF("Error occured while releasing resources: %v", err)
	}
}
