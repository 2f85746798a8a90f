package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
)

type mockPlayerRepo struct {
	mock.Mock
}

func (that *mockPlayerRepo) CreateOrUpdate(ctx context.Context, player *entity.Player) error {
	return that.Called(ctx, player).Error(0)
}

func (that *mockPlayerRepo) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	args := that.Called(ctx, id)
	player, _ := args.Get(0).(*entity.Player)

	return player, args.Error(1)
}

func TestPlayerService(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatePlayer stores a player with a new id", func(t *testing.T) {
		// Given: a repository that accepts writes
		repo := &mockPlayerRepo{}
		repo.On("CreateOrUpdate", mock.Anything, mock.AnythingOfType("*entity.Player")).Return(nil).Once()
		playerService := NewPlayerService(repo)

		// When: a player is created
		player, err := playerService.CreatePlayer(ctx)

		// Then: it has an id and no game
		require.NoError(t, err)
		assert.NotEmpty(t, player.ID)
		assert.False(t, player.InGame())
		repo.AssertExpectations(t)
	})

	t.Run("CreatePlayer passes storage errors on", func(t *testing.T) {
		// Given: a failing repository
		repo := &mockPlayerRepo{}
		repo.On("CreateOrUpdate", mock.Anything, mock.Anything).Return(errStorageIsFull).Once()
		playerService := NewPlayerService(repo)

		// When: a player is created
		player, err := playerService.CreatePlayer(ctx)

		// Then: no player is returned
		require.ErrorIs(t, err, errStorageIsFull)
		assert.Nil(t, player)
	})

	t.Run("GetPlayerByID wraps not found", func(t *testing.T) {
		// Given: an empty repository
		repo := &mockPlayerRepo{}
		repo.On("GetByID", mock.Anything, "missing").Return(nil, apperror.ErrPlayerNotFound).Once()
		playerService := NewPlayerService(repo)

		// When: a player is looked up
		player, err := playerService.GetPlayerByID(ctx, "missing")

		// Then: ErrPlayerNotFound can still be matched
		require.ErrorIs(t, err, apperror.ErrPlayerNotFound)
		assert.Nil(t, player)
	})

	t.Run("UpdatePlayer stores the player", func(t *testing.T) {
		// Given: a player linked to a game
		player := &entity.Player{ID: "player-1", GameID: "game-1"}
		repo := &mockPlayerRepo{}
		repo.On("CreateOrUpdate", mock.Anything, player).Return(nil).Once()
		playerService := NewPlayerService(repo)

		// When: the player is updated
		err := playerService.UpdatePlayer(ctx, player)

		// Then: it is written once
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}
