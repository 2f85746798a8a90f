package memory

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
)

// DefaultPalette is used when the configuration does not provide one.
var DefaultPalette = []entity.Symbol{
	"👾", "🤖", "🦄", "🐵", "🐸", "🐻",
	"🐯", "🐱", "🐶", "🐼", "🐷", "🐹",
	"👹", "👺", "💀", "🎃", "👽", "🦊",
}

type BoardGenerator struct {
	palette []entity.Symbol

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBoardGenerator - creates a generator. A nil rnd is seeded from the clock.
func NewBoardGenerator(palette []entity.Symbol, rnd *rand.Rand) *BoardGenerator {
	if len(palette) == 0 {
		palette = DefaultPalette
	}

	if rnd == nil {
		seed := uint64(time.Now().UnixNano()) //nolint: gosec // game randomness
		rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	return &BoardGenerator{
		palette: palette,
		rnd:     rnd,
	}
}

// ValidateDimension - checks that a board side is even and the palette can fill it.
func ValidateDimension(dimension, paletteSize int) error {
	if dimension <= 0 || dimension%2 != 0 {
		return fmt.Errorf("%w: board dimension must be a positive even number, got %d", apperror.ErrInvalidConfiguration, dimension)
	}

	// A fillable board never has more columns than symbols; checking that
	// first keeps the square below from overflowing.
	if dimension > paletteSize {
		return fmt.Errorf("%w: board dimension %d exceeds palette size %d", apperror.ErrInvalidConfiguration, dimension, paletteSize)
	}

	if pairs := dimension * dimension / 2; pairs > paletteSize {
		return fmt.Errorf("%w: board dimension %d needs %d symbols, palette has %d", apperror.ErrInvalidConfiguration, dimension, pairs, paletteSize)
	}

	return nil
}

func (that *BoardGenerator) PaletteSize() int {
	return len(that.palette)
}

// Generate - builds a shuffled board of dimension x dimension face-down cards.
func (that *BoardGenerator) Generate(dimension int) (*entity.Board, error) {
	if err := ValidateDimension(dimension, len(that.palette)); err != nil {
		return nil, err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	picks := pickRandom(that.rnd, that.palette, dimension*dimension/2)

	symbols := make([]entity.Symbol, 0, len(picks)*2)
	symbols = append(symbols, picks...)
	symbols = append(symbols, picks...)

	return entity.NewBoard(dimension, shuffle(that.rnd, symbols)), nil
}

// pickRandom - draws n distinct symbols without replacement.
func pickRandom(rnd *rand.Rand, palette []entity.Symbol, n int) []entity.Symbol {
	remaining := make([]entity.Symbol, len(palette))
	copy(remaining, palette)

	picks := make([]entity.Symbol, 0, n)
	for range n {
		idx := rnd.IntN(len(remaining))
		picks = append(picks, remaining[idx])

		remaining[idx] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}

	return picks
}

// shuffle - Fisher-Yates over a copy: for i from the last index down to 1,
// swap i with a uniform index j <= i.
func shuffle(rnd *rand.Rand, symbols []entity.Symbol) []entity.Symbol {
	shuffled := make([]entity.Symbol, len(symbols))
	copy(shuffled, symbols)

	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled
}
