package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
	"github.com/rocketscienceinc/memory-backend/internal/memory"
)

// fakeManager answers every input by rendering on the last view it was given.
type fakeManager struct {
	mu         sync.Mutex
	view       memory.View
	gameID     string
	stored     *entity.Game
	newGameErr error
	dimension  int
	detached   []string
}

func (that *fakeManager) GetOrCreatePlayer(_ context.Context, id string) (*entity.Player, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if id == "" {
		return &entity.Player{ID: "player-1"}, nil
	}

	return &entity.Player{ID: id, GameID: that.gameID}, nil
}

func (that *fakeManager) NewGame(_ context.Context, _ string, dimension int, view memory.View) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.dimension = dimension
	if that.newGameErr != nil {
		return nil, that.newGameErr
	}

	game := entity.NewGame("game-1", entity.NewBoard(2, []entity.Symbol{"A", "A", "B", "B"})).Masked()
	that.view = view
	that.gameID = game.ID
	view.RenderBoard(game)

	return game, nil
}

func (that *fakeManager) Attach(_ context.Context, playerID string, view memory.View) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.view == nil {
		return nil, fmt.Errorf("%w: player %s", apperror.ErrNoActiveGame, playerID)
	}

	game := entity.NewGame(that.gameID, entity.NewBoard(2, []entity.Symbol{"A", "A", "B", "B"})).Masked()
	that.view = view
	view.RenderBoard(game)

	return game, nil
}

func (that *fakeManager) Detach(_ context.Context, playerID string, view memory.View) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.view == nil {
		return fmt.Errorf("%w: player %s", apperror.ErrNoActiveGame, playerID)
	}

	if that.view == view {
		that.view = nil
		that.detached = append(that.detached, playerID)
	}

	return nil
}

func (that *fakeManager) GetGame(_ context.Context, id string) (*entity.Game, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stored == nil || that.stored.ID != id {
		return nil, apperror.ErrGameNotFound
	}

	return that.stored, nil
}

func (that *fakeManager) Start(_ context.Context, playerID string) error {
	view, err := that.current(playerID)
	if err != nil {
		return err
	}

	view.DisableStart()

	return nil
}

func (that *fakeManager) Flip(_ context.Context, playerID string, cell int) error {
	view, err := that.current(playerID)
	if err != nil {
		return err
	}

	view.RenderCell(cell, entity.Card{Symbol: "A", State: entity.CardFlipped})
	view.RenderCounters(1, 0)

	if cell == 3 {
		view.ShowWin(4, 7)
	}

	return nil
}

func (that *fakeManager) detachedPlayers() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]string(nil), that.detached...)
}

func (that *fakeManager) lastDimension() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.dimension
}

func (that *fakeManager) current(playerID string) (memory.View, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.view == nil {
		return nil, fmt.Errorf("%w: player %s", apperror.ErrNoActiveGame, playerID)
	}

	return that.view, nil
}

func dial(t *testing.T, manager gameManager, header http.Header) (*websocket.Conn, *http.Response) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	server := New(slog.New(slog.NewTextHandler(io.Discard, nil)), manager)

	srv := httptest.NewServer(server.Handler(ctx))
	t.Cleanup(srv.Close)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, resp
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(Message{Action: action, Payload: body}))
}

// readUntil skips messages until one with the given action arrives.
func readUntil(t *testing.T, conn *websocket.Conn, action string) ResponsePayload {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for {
		var message Message
		require.NoError(t, conn.ReadJSON(&message))

		if message.Action != action {
			continue
		}

		var payload ResponsePayload
		require.NoError(t, json.Unmarshal(message.Payload, &payload))

		return payload
	}
}

func TestServer_Connect(t *testing.T) {
	t.Run("New player gets an id and a session cookie", func(t *testing.T) {
		// Given: a connection without a session cookie
		conn, resp := dial(t, &fakeManager{}, nil)

		// When: the client connects without a player id
		send(t, conn, actionConnect, map[string]any{"player": map[string]string{"id": ""}})

		// Then: a player is returned and the cookie was issued on upgrade
		payload := readUntil(t, conn, actionConnect)
		require.NotNil(t, payload.Player)
		assert.Equal(t, "player-1", payload.Player.ID)
		assert.Nil(t, payload.Game)
		assert.Empty(t, payload.Error)

		cookies := resp.Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookie, cookies[0].Name)
		assert.NotEmpty(t, cookies[0].Value)
	})

	t.Run("Existing session cookie is kept", func(t *testing.T) {
		// Given: a connection with a session cookie
		header := http.Header{}
		header.Add("Cookie", sessionCookie+"=abc")

		// When: the connection is upgraded
		_, resp := dial(t, &fakeManager{}, header)

		// Then: no new cookie is issued
		assert.Empty(t, resp.Cookies())
	})

	t.Run("Running game is re-attached", func(t *testing.T) {
		// Given: a player whose game is running
		manager := &fakeManager{}
		first, _ := dial(t, manager, nil)
		send(t, first, actionGameNew, map[string]any{"player": map[string]string{"id": "player-1"}})
		readUntil(t, first, actionGameNew)

		// When: the player connects again on another connection
		second, _ := dial(t, manager, nil)
		send(t, second, actionConnect, map[string]any{"player": map[string]string{"id": "player-1"}})

		// Then: the board is rendered there and the game is part of the answer
		board := readUntil(t, second, actionBoardRender)
		require.NotNil(t, board.Game)

		payload := readUntil(t, second, actionConnect)
		require.NotNil(t, payload.Game)
		assert.Equal(t, "game-1", payload.Game.ID)
	})

	t.Run("Finished game is returned from storage", func(t *testing.T) {
		// Given: a player whose game is no longer running
		stored := entity.NewGame("game-9", entity.NewBoard(2, []entity.Symbol{"A", "A", "B", "B"}))
		stored.Status = entity.StatusFinished
		manager := &fakeManager{gameID: "game-9", stored: stored}
		conn, _ := dial(t, manager, nil)

		// When: the player connects
		send(t, conn, actionConnect, map[string]any{"player": map[string]string{"id": "player-1"}})

		// Then: the stored snapshot is returned
		payload := readUntil(t, conn, actionConnect)
		require.NotNil(t, payload.Game)
		assert.Equal(t, "game-9", payload.Game.ID)
		assert.True(t, payload.Game.IsFinished())
	})
}

func TestServer_NewGame(t *testing.T) {
	t.Run("Renders the board and answers with the game", func(t *testing.T) {
		// Given: a connected client
		manager := &fakeManager{}
		conn, _ := dial(t, manager, nil)

		// When: a new game with dimension 2 is requested
		send(t, conn, actionGameNew, map[string]any{
			"player":    map[string]string{"id": "player-1"},
			"dimension": 2,
		})

		// Then: the masked board is rendered and the player is linked to the game
		board := readUntil(t, conn, actionBoardRender)
		require.NotNil(t, board.Game)
		require.Len(t, board.Game.Board.Cards, 4)
		for _, card := range board.Game.Board.Cards {
			assert.Empty(t, card.Symbol)
			assert.True(t, card.IsHidden())
		}

		payload := readUntil(t, conn, actionGameNew)
		require.NotNil(t, payload.Player)
		assert.Equal(t, "game-1", payload.Player.GameID)
		assert.Equal(t, 2, manager.lastDimension())
	})

	t.Run("Invalid dimension", func(t *testing.T) {
		// Given: a manager that rejects the dimension
		conn, _ := dial(t, &fakeManager{newGameErr: apperror.ErrInvalidConfiguration}, nil)

		// When: a new game is requested
		send(t, conn, actionGameNew, map[string]any{
			"player":    map[string]string{"id": "player-1"},
			"dimension": 3,
		})

		// Then: an error is returned
		payload := readUntil(t, conn, actionGameNew)
		assert.Equal(t, "invalid board dimension", payload.Error)
	})

	t.Run("Dimension below two is rejected before reaching the game", func(t *testing.T) {
		// Given: a connected client
		manager := &fakeManager{}
		conn, _ := dial(t, manager, nil)

		// When: a negative dimension is sent
		send(t, conn, actionGameNew, map[string]any{
			"player":    map[string]string{"id": "player-1"},
			"dimension": -2,
		})

		// Then: validation fails
		payload := readUntil(t, conn, actionGameNew)
		assert.Equal(t, "dimension is invalid", payload.Error)
		assert.Zero(t, manager.lastDimension())
	})

	t.Run("Player is required", func(t *testing.T) {
		// Given: a connected client
		conn, _ := dial(t, &fakeManager{}, nil)

		// When: a new game is requested without a player
		send(t, conn, actionGameNew, map[string]any{"dimension": 2})

		// Then: validation fails
		payload := readUntil(t, conn, actionGameNew)
		assert.Equal(t, "player is required", payload.Error)
	})
}

func TestServer_Play(t *testing.T) {
	newGame := func(t *testing.T) *websocket.Conn {
		t.Helper()

		conn, _ := dial(t, &fakeManager{}, nil)
		send(t, conn, actionGameNew, map[string]any{"player": map[string]string{"id": "player-1"}})
		readUntil(t, conn, actionGameNew)

		return conn
	}

	t.Run("Flip renders the card and the counters", func(t *testing.T) {
		// Given: a running game
		conn := newGame(t)

		// When: a card is flipped
		send(t, conn, actionCardFlip, map[string]any{"player": map[string]string{"id": "player-1"}, "cell": 0})

		// Then: the card and the counters are rendered
		cell := readUntil(t, conn, actionCardRender)
		require.NotNil(t, cell.Cell)
		assert.Equal(t, 0, cell.Cell.Index)
		assert.Equal(t, entity.CardFlipped, cell.Cell.State)
		assert.Equal(t, entity.Symbol("A"), cell.Cell.Symbol)

		counters := readUntil(t, conn, actionGameCounters)
		require.NotNil(t, counters.Counters)
		assert.Equal(t, 1, counters.Counters.Moves)
	})

	t.Run("Win notice", func(t *testing.T) {
		// Given: a running game
		conn := newGame(t)

		// When: the last card is flipped
		send(t, conn, actionCardFlip, map[string]any{"player": map[string]string{"id": "player-1"}, "cell": 3})

		// Then: the win is shown with moves and seconds
		payload := readUntil(t, conn, actionGameWin)
		require.NotNil(t, payload.Win)
		assert.Equal(t, Counters{Moves: 4, Seconds: 7}, *payload.Win)
	})

	t.Run("Start disables the start control", func(t *testing.T) {
		// Given: a running game
		conn := newGame(t)

		// When: start is pressed
		send(t, conn, actionGameStart, map[string]any{"player": map[string]string{"id": "player-1"}})

		// Then: the client is told the session started
		payload := readUntil(t, conn, actionGameStart)
		assert.True(t, payload.Started)
		assert.Empty(t, payload.Error)
	})

	t.Run("Cell is required", func(t *testing.T) {
		// Given: a running game
		conn := newGame(t)

		// When: a flip without a cell is sent
		send(t, conn, actionCardFlip, map[string]any{"player": map[string]string{"id": "player-1"}})

		// Then: validation fails
		payload := readUntil(t, conn, actionCardFlip)
		assert.Equal(t, "cell is required", payload.Error)
	})

	t.Run("Flip without a game", func(t *testing.T) {
		// Given: a client without a game
		conn, _ := dial(t, &fakeManager{}, nil)

		// When: a card is flipped
		send(t, conn, actionCardFlip, map[string]any{"player": map[string]string{"id": "player-1"}, "cell": 0})

		// Then: the client is told there is no active game
		payload := readUntil(t, conn, actionCardFlip)
		assert.Equal(t, "no active game", payload.Error)
	})
}

func TestServer_Disconnect(t *testing.T) {
	t.Run("Closing the connection detaches it from the game", func(t *testing.T) {
		// Given: a client with a running game
		manager := &fakeManager{}
		conn, _ := dial(t, manager, nil)
		send(t, conn, actionGameNew, map[string]any{"player": map[string]string{"id": "player-1"}})
		readUntil(t, conn, actionGameNew)

		// When: the client goes away
		require.NoError(t, conn.Close())

		// Then: the game no longer renders on that connection
		require.Eventually(t, func() bool {
			return assert.ObjectsAreEqual([]string{"player-1"}, manager.detachedPlayers())
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Stale connection does not detach the reconnected one", func(t *testing.T) {
		// Given: a game that moved from a first connection to a second one
		manager := &fakeManager{}
		first, _ := dial(t, manager, nil)
		send(t, first, actionGameNew, map[string]any{"player": map[string]string{"id": "player-1"}})
		readUntil(t, first, actionGameNew)

		second, _ := dial(t, manager, nil)
		send(t, second, actionConnect, map[string]any{"player": map[string]string{"id": "player-1"}})
		readUntil(t, second, actionConnect)

		// When: the first connection goes away
		require.NoError(t, first.Close())

		// Then: the second connection still receives the game
		assert.Never(t, func() bool { return len(manager.detachedPlayers()) != 0 }, 200*time.Millisecond, 10*time.Millisecond)

		send(t, second, actionCardFlip, map[string]any{"player": map[string]string{"id": "player-1"}, "cell": 0})
		cell := readUntil(t, second, actionCardRender)
		require.NotNil(t, cell.Cell)
	})

	t.Run("Connection without a player detaches nothing", func(t *testing.T) {
		// Given: a connection that never identified a player
		manager := &fakeManager{}
		conn, _ := dial(t, manager, nil)

		// When: it is closed
		require.NoError(t, conn.Close())

		// Then: the manager is not asked to detach anything
		assert.Never(t, func() bool { return len(manager.detachedPlayers()) != 0 }, 100*time.Millisecond, 10*time.Millisecond)
	})
}

func TestServer_BadMessages(t *testing.T) {
	t.Run("Unknown action", func(t *testing.T) {
		// Given: a connected client
		conn, _ := dial(t, &fakeManager{}, nil)

		// When: an unknown action is sent
		send(t, conn, "game:turn", map[string]any{})

		// Then: an error is returned for that action
		payload := readUntil(t, conn, "game:turn")
		assert.Equal(t, "unknown action", payload.Error)
	})

	t.Run("Not a message", func(t *testing.T) {
		// Given: a connected client
		conn, _ := dial(t, &fakeManager{}, nil)

		// When: a frame that is not JSON is sent
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

		// Then: an error without an action is returned
		payload := readUntil(t, conn, "")
		assert.Equal(t, "invalid message", payload.Error)
	})

	t.Run("Empty payload", func(t *testing.T) {
		// Given: a connected client
		conn, _ := dial(t, &fakeManager{}, nil)

		// When: a message without payload is sent
		require.NoError(t, conn.WriteJSON(Message{Action: actionConnect}))

		// Then: the payload is reported missing
		payload := readUntil(t, conn, actionConnect)
		assert.Equal(t, "payload is required", payload.Error)
	})
}
