package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
	"github.com/rocketscienceinc/memory-backend/internal/memory"
)

type playerService interface {
	CreatePlayer(ctx context.Context) (*entity.Player, error)
	GetPlayerByID(ctx context.Context, id string) (*entity.Player, error)
	UpdatePlayer(ctx context.Context, player *entity.Player) error
}

type gameService interface {
	CreateGame(ctx context.Context, dimension int) (*entity.Game, error)
	UpdateGame(ctx context.Context, game *entity.Game) error
	DeleteGame(ctx context.Context, gameID string) error
	GetGameByID(ctx context.Context, id string) (*entity.Game, error)
}

type collector interface {
	GameCreated()
	GameStopped()
	GameStarted()
	CardFlipped()
	PairMatched()
	PairMismatched()
	GameWon(moves, seconds int)
}

type Settings struct {
	Dimension int
	Timing    memory.Timing
}

// running is a controller together with the cancel func of its loop.
type running struct {
	controller *memory.GameController
	cancel     context.CancelFunc
}

// GameManager keeps at most one running game per player.
type GameManager struct {
	logger        *slog.Logger
	playerService playerService
	gameService   gameService
	scheduler     memory.Scheduler
	collector     collector
	settings      Settings

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	games map[string]*running
}

func NewGameManager(
	logger *slog.Logger,
	playerService playerService,
	gameService gameService,
	scheduler memory.Scheduler,
	collector collector,
	settings Settings,
) *GameManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &GameManager{
		logger:        logger,
		playerService: playerService,
		gameService:   gameService,
		scheduler:     scheduler,
		collector:     collector,
		settings:      settings,

		ctx:    ctx,
		cancel: cancel,
		games:  make(map[string]*running),
	}
}

// GetOrCreatePlayer - returns the player with the given id, or a new one if
// the id is empty or has expired.
func (that *GameManager) GetOrCreatePlayer(ctx context.Context, id string) (*entity.Player, error) {
	log := that.logger.With("method", "GetOrCreatePlayer")

	if id == "" {
		return that.createPlayer(ctx)
	}

	player, err := that.playerService.GetPlayerByID(ctx, id)
	if errors.Is(err, apperror.ErrPlayerNotFound) {
		log.Info("player not found, creating a new one", "playerID", id)
		return that.createPlayer(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by id %w", err)
	}

	return player, nil
}

// NewGame - generates a board and starts a controller for it, replacing the
// player's running game. A zero dimension means the configured one.
func (that *GameManager) NewGame(ctx context.Context, playerID string, dimension int, view memory.View) (*entity.Game, error) {
	log := that.logger.With("method", "NewGame", "playerID", playerID)

	if dimension == 0 {
		dimension = that.settings.Dimension
	}

	player, err := that.playerService.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed get player by id: %w", err)
	}

	game, err := that.gameService.CreateGame(ctx, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed create game: %w", err)
	}

	previousGameID := player.GameID

	player.GameID = game.ID
	if err = that.playerService.UpdatePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("failed update player: %w", err)
	}

	controller := memory.NewGameController(
		that.logger, game.Clone(), view, that.scheduler, that.settings.Timing, that.gameService, that.collector,
	)

	runCtx, cancel := context.WithCancel(that.ctx)
	current := &running{controller: controller, cancel: cancel}

	that.mu.Lock()
	previous := that.games[playerID]
	that.games[playerID] = current
	that.mu.Unlock()

	if previous != nil {
		that.stop(ctx, previous)
	}

	if previousGameID != "" {
		that.deleteGame(ctx, previousGameID)
	}

	that.collector.GameCreated()

	that.wg.Add(1)
	go func() {
		defer that.wg.Done()
		controller.Run(runCtx)
	}()

	that.wg.Add(1)
	go func() {
		defer that.wg.Done()
		that.watch(playerID, current)
	}()

	log.Info("new game started", "gameID", game.ID, "dimension", dimension)

	return game.Masked(), nil
}

// Flip - forwards a card click to the player's running game.
func (that *GameManager) Flip(ctx context.Context, playerID string, cell int) error {
	return that.submit(ctx, playerID, memory.FlipRequest{Cell: cell})
}

// Start - starts the timer of the player's running game.
func (that *GameManager) Start(ctx context.Context, playerID string) error {
	return that.submit(ctx, playerID, memory.StartRequest{})
}

// Attach - redraws the player's running game on view and keeps rendering there.
func (that *GameManager) Attach(ctx context.Context, playerID string, view memory.View) (*entity.Game, error) {
	current, err := that.current(playerID)
	if err != nil {
		return nil, err
	}

	if err = current.controller.Submit(ctx, memory.AttachView{View: view}); err != nil {
		return nil, that.submitError(err)
	}

	game, err := current.controller.Snapshot(ctx)
	if err != nil {
		return nil, that.submitError(err)
	}

	return game.Masked(), nil
}

// Detach - stops rendering the player's running game on view. A game left
// without a view stops after the configured idle timeout.
func (that *GameManager) Detach(ctx context.Context, playerID string, view memory.View) error {
	return that.submit(ctx, playerID, memory.DetachView{View: view})
}

// GetGame - returns the stored snapshot of a game with hidden symbols blanked.
func (that *GameManager) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.gameService.GetGameByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed get game: %w", err)
	}

	return game.Masked(), nil
}

// Close - stops every running game and waits for their loops to exit.
func (that *GameManager) Close() {
	that.cancel()
	that.wg.Wait()

	that.mu.Lock()
	clear(that.games)
	that.mu.Unlock()
}

func (that *GameManager) submit(ctx context.Context, playerID string, ev memory.Event) error {
	current, err := that.current(playerID)
	if err != nil {
		return err
	}

	if err = current.controller.Submit(ctx, ev); err != nil {
		return that.submitError(err)
	}

	return nil
}

func (that *GameManager) current(playerID string) (*running, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	current, ok := that.games[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: player %s", apperror.ErrNoActiveGame, playerID)
	}

	return current, nil
}

func (that *GameManager) submitError(err error) error {
	if errors.Is(err, apperror.ErrControllerStopped) {
		return fmt.Errorf("%w: %w", apperror.ErrNoActiveGame, err)
	}

	return err
}

// watch stops a game once its win notice was shown and forgets it once its loop is gone.
func (that *GameManager) watch(playerID string, current *running) {
	select {
	case <-current.controller.Finished():
		current.cancel()
		<-current.controller.Done()
	case <-current.controller.Done():
	}

	that.collector.GameStopped()

	that.mu.Lock()
	if that.games[playerID] == current {
		delete(that.games, playerID)
	}
	that.mu.Unlock()

	that.logger.Debug("game stopped", "method", "watch", "playerID", playerID, "gameID", current.controller.GameID())
}

func (that *GameManager) stop(ctx context.Context, previous *running) {
	previous.cancel()

	select {
	case <-previous.controller.Done():
	case <-ctx.Done():
	}
}

func (that *GameManager) deleteGame(ctx context.Context, gameID string) {
	log := that.logger.With("method", "deleteGame", "gameID", gameID)

	err := that.gameService.DeleteGame(ctx, gameID)
	if err != nil && !errors.Is(err, apperror.ErrGameNotFound) {
		log.Error("failed to delete game", "error", err)
		return
	}

	log.Info("game deleted")
}

func (that *GameManager) createPlayer(ctx context.Context) (*entity.Player, error) {
	player, err := that.playerService.CreatePlayer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create new player %w", err)
	}

	return player, nil
}
