package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pressplayinc/connectfour-backend/internal/config"
	"github.com/pressplayinc/connectfour-backend/internal/registry"
	"github.com/pressplayinc/connectfour-backend/internal/repository"
	"github.com/pressplayinc/connectfour-backend/internal/repository/storage"
	"github.com/pressplayinc/connectfour-backend/internal/session"
	"github.com/pressplayinc/connectfour-backend/internal/usecase"
	"github.com/pressplayinc/connectfour-backend/transport/tcpserver"
	"github.com/pressplayinc/connectfour-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	matchRepo := repository.NewMatchRepository(redisStorage.Connection)
	clients := registry.NewClients()
	sessions := session.NewRegistry()
	gamePlay := usecase.NewGamePlay(logger, clients, sessions, matchRepo)

	// run TCP server
	tcpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting TCP server", "port", conf.TCPPort)
		tcpServer := tcpserver.New(logger, gamePlay)
		if tcpErr := tcpServer.Start(ctx, conf.TCPPort); tcpErr != nil {
			log.Error("TCP server error", "error", tcpErr)
			tcpErrCh <- tcpErr
		}
	}()

	// run WebSocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.HTTPPort)
		wsServer := websocket.New(logger, gamePlay)
		if wsErr := wsServer.Start(ctx, conf.HTTPPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-tcpErrCh:
		return fmt.Errorf("TCP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
