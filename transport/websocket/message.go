package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/memory-backend/internal/entity"
)

const (
	actionConnect   = "connect"
	actionGameNew   = "game:new"
	actionGameStart = "game:start"
	actionCardFlip  = "card:flip"

	actionBoardRender  = "board:render"
	actionCardRender   = "card:render"
	actionGameCounters = "game:counters"
	actionGameWin      = "game:win"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type PlayerRef struct {
	ID string `json:"id" validate:"required"`
}

type ConnectRequest struct {
	Player *entity.Player `json:"player" validate:"required"`
}

type NewGameRequest struct {
	Player    *PlayerRef `json:"player" validate:"required"`
	Dimension int        `json:"dimension" validate:"omitempty,gte=2"`
}

type StartRequest struct {
	Player *PlayerRef `json:"player" validate:"required"`
}

type FlipRequest struct {
	Player *PlayerRef `json:"player" validate:"required"`
	Cell   *int       `json:"cell" validate:"required"`
}

type Cell struct {
	Index  int              `json:"index"`
	State  entity.CardState `json:"state"`
	Symbol entity.Symbol    `json:"symbol,omitempty"`
}

type Counters struct {
	Moves   int `json:"moves"`
	Seconds int `json:"seconds"`
}

type ResponsePayload struct {
	Player   *entity.Player `json:"player,omitempty"`
	Game     *entity.Game   `json:"game,omitempty"`
	Cell     *Cell          `json:"cell,omitempty"`
	Counters *Counters      `json:"counters,omitempty"`
	Started  bool           `json:"started,omitempty"`
	Win      *Counters      `json:"win,omitempty"`
	Error    string         `json:"error,omitempty"`
}
