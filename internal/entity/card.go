package entity

// Symbol is the face of a card. Two cards on a board share each symbol.
type Symbol string

type CardState string

const (
	CardHidden  CardState = "hidden"
	CardFlipped CardState = "flipped"
	CardMatched CardState = "matched"
)

type Card struct {
	Symbol Symbol    `json:"symbol,omitempty"`
	State  CardState `json:"state"`
}

func (that Card) IsHidden() bool {
	return that.State == CardHidden
}

func (that Card) IsFlipped() bool {
	return that.State == CardFlipped
}

func (that Card) IsMatched() bool {
	return that.State == CardMatched
}
