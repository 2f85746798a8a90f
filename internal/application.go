package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/memory-backend/internal/config"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
	"github.com/rocketscienceinc/memory-backend/internal/memory"
	"github.com/rocketscienceinc/memory-backend/internal/observability"
	"github.com/rocketscienceinc/memory-backend/internal/repository"
	"github.com/rocketscienceinc/memory-backend/internal/repository/storage"
	"github.com/rocketscienceinc/memory-backend/internal/service"
	"github.com/rocketscienceinc/memory-backend/internal/usecase"
	"github.com/rocketscienceinc/memory-backend/transport/rest"
	"github.com/rocketscienceinc/memory-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	palette := boardPalette(conf.Board)
	if err := memory.ValidateDimension(conf.Board.Dimension, len(palette)); err != nil {
		log.Error("invalid board configuration", "dimension", conf.Board.Dimension, "error", err)
		return fmt.Errorf("invalid board configuration: %w", err)
	}

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

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	playerRepo := repository.NewPlayerRepository(redisStorage, conf.Redis.PlayerTTL)
	gameRepo := repository.NewGameRepository(redisStorage, conf.Redis.GameTTL)

	generator := memory.NewBoardGenerator(palette, nil)
	playerService := service.NewPlayerService(playerRepo)
	gameService := service.NewGameService(gameRepo, generator)

	collector := observability.NewCollector()

	gameManager := usecase.NewGameManager(logger, playerService, gameService, memory.NewClockScheduler(), collector, usecase.Settings{
		Dimension: conf.Board.Dimension,
		Timing: memory.Timing{
			FlipBackDelay:  conf.Board.FlipBackDelay,
			WinNoticeDelay: conf.Board.WinNoticeDelay,
			TickInterval:   conf.Board.TickInterval,
			IdleTimeout:    conf.Board.IdleTimeout,
		},
	})
	defer gameManager.Close()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		router := rest.NewRouter(logger, rest.NewHandlers(logger, gameManager), collector.Handler())
		if httpErr := rest.Start(ctx, conf.HTTPPort, router); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, gameManager)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// boardPalette - the configured symbols, or the default emoji when none are set.
func boardPalette(board config.Board) []entity.Symbol {
	if len(board.Palette) == 0 {
		return memory.DefaultPalette
	}

	palette := make([]entity.Symbol, 0, len(board.Palette))
	for _, symbol := range board.Palette {
		palette = append(palette, entity.Symbol(symbol))
	}

	return palette
}
