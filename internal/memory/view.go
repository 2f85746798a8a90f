package memory

import "github.com/rocketscienceinc/memory-backend/internal/entity"

// View is the presentation side of a game. The controller calls it from its
// event loop only, one call at a time.
type View interface {
	// RenderBoard replaces whatever board the view showed before.
	RenderBoard(game *entity.Game)
	RenderCell(cell int, card entity.Card)
	RenderCounters(moves, seconds int)
	DisableStart()
	ShowWin(moves, seconds int)
}

type noopView struct{}

func (noopView) RenderBoard(*entity.Game)    {}
func (noopView) RenderCell(int, entity.Card) {}
func (noopView) RenderCounters(int, int)     {}
func (noopView) DisableStart()               {}
func (noopView) ShowWin(int, int)            {}

// visible hides the symbol of a face-down card.
func visible(card entity.Card) entity.Card {
	if card.IsHidden() {
		card.Symbol = ""
	}

	return card
}
