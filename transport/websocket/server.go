package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
	"github.com/rocketscienceinc/memory-backend/internal/memory"
)

const (
	sessionCookie   = "user_session"
	sessionLifetime = 24 * time.Hour
	shutdownTimeout = 5 * time.Second
)

type gameManager interface {
	GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error)

	NewGame(ctx context.Context, playerID string, dimension int, view memory.View) (*entity.Game, error)
	Attach(ctx context.Context, playerID string, view memory.View) (*entity.Game, error)
	Detach(ctx context.Context, playerID string, view memory.View) error
	GetGame(ctx context.Context, id string) (*entity.Game, error)

	Start(ctx context.Context, playerID string) error
	Flip(ctx context.Context, playerID string, cell int) error
}

type handlerFunc func(ctx context.Context, message *Message, client *client) error

type Server struct {
	logger   *slog.Logger
	manager  gameManager
	upgrader websocket.Upgrader
	validate *validator.Validate

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, manager gameManager) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		validate: validator.New(),

		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionConnect] = server.handleConnect
	server.handlers[actionGameNew] = server.handleNewGame
	server.handlers[actionGameStart] = server.handleStartGame
	server.handlers[actionCardFlip] = server.handleFlipCard

	return server
}

// Handler - routes /ws to the upgrade handler, bound to ctx.
func (that *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	return mux
}

// Start - starts WebSocket server and shuts it down when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection to WebSocket.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	conn, err := that.upgrader.Upgrade(writer, req, that.sessionHeader(req))
	if err != nil {
		log.Error("failed to upgrade connection", "error", err, "remoteAddr", req.RemoteAddr)
		return
	}

	client := newClient(that.logger, conn)
	defer client.close()

	log.Info("WebSocket connection established", "remoteAddr", req.RemoteAddr)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go client.keepAlive(connCtx)

	if err = that.handleMessages(connCtx, client); err != nil {
		log.Debug("connection closed", "error", err)
	}

	client.close()
	that.detach(ctx, client)
}

// detach - tells the player's game that this connection is gone.
func (that *Server) detach(ctx context.Context, client *client) {
	if client.playerID == "" || ctx.Err() != nil {
		return
	}

	log := that.logger.With("method", "detach", "playerID", client.playerID)

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := that.manager.Detach(ctx, client.playerID, client)
	switch {
	case err == nil:
		log.Debug("view detached from game")
	case errors.Is(err, apperror.ErrNoActiveGame):
		log.Debug("game already stopped")
	default:
		log.Warn("failed to detach view", "error", err)
	}
}

// handleMessages - processes messages from the client until the connection is closed.
func (that *Server) handleMessages(ctx context.Context, client *client) error {
	log := that.logger.With("method", "handleMessages")

	for {
		message, err := client.read()
		if err != nil {
			return err
		}

		if message == nil {
			that.sendErrorResponse(client, "", "invalid message")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			that.sendErrorResponse(client, message.Action, "unknown action")
			continue
		}

		if err = handler(ctx, message, client); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// sessionHeader - keeps the user session cookie or issues a new one.
func (that *Server) sessionHeader(req *http.Request) http.Header {
	log := that.logger.With("method", "sessionHeader")

	if cookie, err := req.Cookie(sessionCookie); err == nil {
		log.Debug("session cookie found", "cookie", cookie.Value)
		return nil
	}

	cookie := &http.Cookie{
		Name:     sessionCookie,
		Value:    uuid.NewString(),
		Expires:  time.Now().Add(sessionLifetime),
		Path:     "/ws",
		HttpOnly: true,
	}

	log.Info("session cookie not found, new one created", "cookie", cookie.Value)

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	return header
}
