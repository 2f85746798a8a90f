package application

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/config"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
	"github.com/rocketscienceinc/memory-backend/internal/memory"
)

func TestRunApp_InvalidBoard(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Odd dimension is fatal", func(t *testing.T) {
		// Given: a configuration with an odd board dimension
		conf := &config.Config{Board: config.Board{Dimension: 5}}

		// When: the application is started
		err := RunApp(logger, conf)

		// Then: it stops before touching any storage
		require.ErrorIs(t, err, apperror.ErrInvalidConfiguration)
	})

	t.Run("Palette too small is fatal", func(t *testing.T) {
		// Given: a palette that cannot fill a four by four board
		conf := &config.Config{Board: config.Board{Dimension: 4, Palette: []string{"a", "b", "c"}}}

		// When: the application is started
		err := RunApp(logger, conf)

		// Then: the configuration is rejected
		require.ErrorIs(t, err, apperror.ErrInvalidConfiguration)
	})
}

func TestBoardPalette(t *testing.T) {
	t.Run("Default palette", func(t *testing.T) {
		// When: no palette is configured
		palette := boardPalette(config.Board{})

		// Then: the default emoji are used
		assert.Equal(t, memory.DefaultPalette, palette)
	})

	t.Run("Configured palette", func(t *testing.T) {
		// When: a palette is configured
		palette := boardPalette(config.Board{Palette: []string{"x", "y"}})

		// Then: it is used as is
		assert.Equal(t, []entity.Symbol{"x", "y"}, palette)
	})
}
