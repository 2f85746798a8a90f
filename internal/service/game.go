package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/memory-backend/internal/entity"
)

type GameService interface {
	CreateGame(ctx context.Context, dimension int) (*entity.Game, error)
	UpdateGame(ctx context.Context, game *entity.Game) error
	DeleteGame(ctx context.Context, gameID string) error

	GetGameByID(ctx context.Context, id string) (*entity.Game, error)
}

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
}

type boardGenerator interface {
	Generate(dimension int) (*entity.Board, error)
}

type gameService struct {
	gameRepo  gameRepo
	generator boardGenerator
}

func NewGameService(gameRepo gameRepo, generator boardGenerator) GameService {
	return &gameService{
		gameRepo:  gameRepo,
		generator: generator,
	}
}

// CreateGame - generates a fresh board and stores the new game.
func (that *gameService) CreateGame(ctx context.Context, dimension int) (*entity.Game, error) {
	board, err := that.generator.Generate(dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to generate board: %w", err)
	}

	game := entity.NewGame(uuid.NewString(), board)
	if err = that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return nil, fmt.Errorf("failed to create game in storage: %w", err)
	}

	return game, nil
}

func (that *gameService) GetGameByID(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve game from storage: %w", err)
	}

	return game, nil
}

func (that *gameService) UpdateGame(ctx context.Context, game *entity.Game) error {
	if err := that.gameRepo.CreateOrUpdate(ctx, game); err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	return nil
}

func (that *gameService) DeleteGame(ctx context.Context, gameID string) error {
	if err := that.gameRepo.DeleteByID(ctx, gameID); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}
