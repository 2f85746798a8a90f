package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/memory-backend/internal/entity"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// client is one browser connection. It is also the view of the game the
// player runs on it, so writes come from the handler and the game loop.
type client struct {
	logger *slog.Logger
	conn   *websocket.Conn

	// playerID is the player whose game renders here. Only the read loop touches it.
	playerID string

	writeMu sync.Mutex
	closed  atomic.Bool
}

func newClient(logger *slog.Logger, conn *websocket.Conn) *client {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &client{
		logger: logger.With("component", "websocket_client", "remoteAddr", conn.RemoteAddr().String()),
		conn:   conn,
	}
}

// read returns the next message, or nil if the frame was not a valid message.
func (that *client) read() (*Message, error) {
	messageType, data, err := that.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	if messageType != websocket.TextMessage {
		return nil, nil
	}

	var message Message
	if err = json.Unmarshal(data, &message); err != nil {
		that.logger.Debug("failed to unmarshal message", "error", err)
		return nil, nil
	}

	return &message, nil
}

func (that *client) send(action string, payload ResponsePayload) error {
	if that.closed.Load() {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	response, err := json.Marshal(Message{Action: action, Payload: body})
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err = that.conn.WriteMessage(websocket.TextMessage, response); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

// keepAlive pings the peer until ctx is done.
func (that *client) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			that.writeMu.Lock()
			err := that.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			that.writeMu.Unlock()

			if err != nil {
				that.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (that *client) close() {
	if that.closed.Swap(true) {
		return
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.conn.Close()
}

func (that *client) render(action string, payload ResponsePayload) {
	if err := that.send(action, payload); err != nil {
		that.logger.Warn("failed to render", "action", action, "error", err)
	}
}

func (that *client) RenderBoard(game *entity.Game) {
	that.render(actionBoardRender, ResponsePayload{Game: game})
}

func (that *client) RenderCell(cell int, card entity.Card) {
	that.render(actionCardRender, ResponsePayload{Cell: &Cell{
		Index:  cell,
		State:  card.State,
		Symbol: card.Symbol,
	}})
}

func (that *client) RenderCounters(moves, seconds int) {
	that.render(actionGameCounters, ResponsePayload{Counters: &Counters{Moves: moves, Seconds: seconds}})
}

func (that *client) DisableStart() {
	that.render(actionGameStart, ResponsePayload{Started: true})
}

func (that *client) ShowWin(moves, seconds int) {
	that.render(actionGameWin, ResponsePayload{Win: &Counters{Moves: moves, Seconds: seconds}})
}
