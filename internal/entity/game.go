package entity

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
	StatusWaiting  = "waiting"
)

// maxPending is how many unmatched cards may be face up at once.
const maxPending = 2

type Session struct {
	Started        bool  `json:"started"`
	FlippedCount   int   `json:"flipped_count"`
	TotalMoves     int   `json:"total_moves"`
	ElapsedSeconds int   `json:"elapsed_seconds"`
	TimerActive    bool  `json:"timer_active"`
	Pending        []int `json:"pending,omitempty"`
}

type Game struct {
	ID      string  `json:"id"`
	Board   *Board  `json:"board"`
	Session Session `json:"session"`
	Status  string  `json:"status"`
}

// FlipResult describes what an accepted flip changed.
type FlipResult struct {
	Accepted       bool
	StartedSession bool
	PairComplete   bool
	Matched        bool
	Pair           [2]int
}

// ResolveResult describes the delayed resolution of a completed pair.
type ResolveResult struct {
	Reverted []int
	Won      bool
}

func NewGame(id string, board *Board) *Game {
	return &Game{
		ID:     id,
		Board:  board,
		Status: StatusWaiting,
	}
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

// Start begins the session. It reports false when the session already started.
func (that *Game) Start() bool {
	if that.Session.Started || that.IsFinished() {
		return false
	}

	that.Session.Started = true
	that.Session.TimerActive = true
	that.Status = StatusOngoing

	return true
}

// Flip turns a hidden card face up. Stale or invalid clicks are ignored and
// reported with Accepted false.
func (that *Game) Flip(cell int) FlipResult {
	var result FlipResult

	if that.IsFinished() || !that.Board.InRange(cell) {
		return result
	}

	if that.Session.FlippedCount >= maxPending {
		return result
	}

	if !that.Board.Cards[cell].IsHidden() {
		return result
	}

	that.Board.Cards[cell].State = CardFlipped
	that.Session.FlippedCount++
	that.Session.TotalMoves++
	that.Session.Pending = append(that.Session.Pending, cell)

	result.Accepted = true
	result.StartedSession = that.Start()

	if that.Session.FlippedCount < maxPending {
		return result
	}

	first, second := that.Session.Pending[0], that.Session.Pending[1]
	result.PairComplete = true
	result.Pair = [2]int{first, second}

	if that.Board.Cards[first].Symbol == that.Board.Cards[second].Symbol {
		that.Board.Cards[first].State = CardMatched
		that.Board.Cards[second].State = CardMatched
		result.Matched = true
	}

	return result
}

// Resolve runs after the flip-back delay. Pending cards that did not match go
// face down again; matched cards are left alone. When every card is matched the
// session ends and the timer is marked inactive.
func (that *Game) Resolve() ResolveResult {
	var result ResolveResult

	for _, cell := range that.Session.Pending {
		if that.Board.Cards[cell].IsFlipped() {
			that.Board.Cards[cell].State = CardHidden
			result.Reverted = append(result.Reverted, cell)
		}
	}

	that.Session.FlippedCount = 0
	that.Session.Pending = nil

	if !that.IsFinished() && that.Board.IsCleared() {
		that.Session.TimerActive = false
		that.Status = StatusFinished
		result.Won = true
	}

	return result
}

// Tick advances the elapsed time while the timer runs.
func (that *Game) Tick() bool {
	if !that.Session.TimerActive {
		return false
	}

	that.Session.ElapsedSeconds++

	return true
}

func (that *Game) Clone() *Game {
	clone := *that
	if that.Board != nil {
		clone.Board = that.Board.Clone()
	}

	if that.Session.Pending != nil {
		clone.Session.Pending = append([]int(nil), that.Session.Pending...)
	}

	return &clone
}

// Masked is a copy safe to send to a client: face-down symbols are removed.
func (that *Game) Masked() *Game {
	masked := that.Clone()
	if masked.Board != nil {
		masked.Board = masked.Board.Masked()
	}

	return masked
}
