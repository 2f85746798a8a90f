package entity

// Board is a Dimension x Dimension grid of cards stored row by row.
type Board struct {
	Dimension int    `json:"dimension"`
	Cards     []Card `json:"cards"`
}

// NewBoard lays the symbols out in order, all face down.
func NewBoard(dimension int, symbols []Symbol) *Board {
	cards := make([]Card, len(symbols))
	for i, symbol := range symbols {
		cards[i] = Card{Symbol: symbol, State: CardHidden}
	}

	return &Board{
		Dimension: dimension,
		Cards:     cards,
	}
}

// Columns is the board side length, not a value derived from the card count.
func (that *Board) Columns() int {
	return that.Dimension
}

func (that *Board) Len() int {
	return len(that.Cards)
}

func (that *Board) InRange(cell int) bool {
	return cell >= 0 && cell < len(that.Cards)
}

func (that *Board) MatchedCount() int {
	matched := 0
	for _, card := range that.Cards {
		if card.IsMatched() {
			matched++
		}
	}

	return matched
}

func (that *Board) IsCleared() bool {
	return len(that.Cards) > 0 && that.MatchedCount() == len(that.Cards)
}

func (that *Board) Clone() *Board {
	cards := make([]Card, len(that.Cards))
	copy(cards, that.Cards)

	return &Board{
		Dimension: that.Dimension,
		Cards:     cards,
	}
}

// Masked returns a copy with the symbols of face-down cards removed.
func (that *Board) Masked() *Board {
	masked := that.Clone()
	for i := range masked.Cards {
		if masked.Cards[i].IsHidden() {
			masked.Cards[i].Symbol = ""
		}
	}

	return masked
}
