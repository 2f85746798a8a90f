package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
)

const eventBuffer = 16

type Timing struct {
	FlipBackDelay  time.Duration
	WinNoticeDelay time.Duration
	TickInterval   time.Duration
	// IdleTimeout stops a game that has had no view for this long. Zero keeps it running.
	IdleTimeout    time.Duration
}

// DefaultTiming - the browser game delays of one second and a five minute idle timeout.
func DefaultTiming() Timing {
	return Timing{
		FlipBackDelay:  time.Second,
		WinNoticeDelay: time.Second,
		TickInterval:   time.Second,
		IdleTimeout:    5 * time.Minute,
	}
}

type gameStore interface {
	UpdateGame(ctx context.Context, game *entity.Game) error
}

type recorder interface {
	GameStarted()
	CardFlipped()
	PairMatched()
	PairMismatched()
	GameWon(moves, seconds int)
}

// GameController owns one game. All state changes happen on the goroutine
// running Run; everything else talks to it through events.
type GameController struct {
	logger    *slog.Logger
	game      *entity.Game
	view      View
	scheduler Scheduler
	timing    Timing
	store     gameStore
	recorder  recorder

	events   chan Event
	post     func(Event)
	done     chan struct{}
	stopOnce sync.Once

	// stopped is set under mu once the loop no longer reads events.
	mu       sync.RWMutex
	stopped  bool
	stopping chan struct{}

	idleTask  int
	abandoned bool

	finished chan struct{}
	winShown bool

	stopTicker Cancel
	tasks      map[int]Cancel
	nextTask   int
}

// NewGameController - store and recorder may be nil.
func NewGameController(
	logger *slog.Logger,
	game *entity.Game,
	view View,
	scheduler Scheduler,
	timing Timing,
	store gameStore,
	recorder recorder,
) *GameController {
	if view == nil {
		view = noopView{}
	}

	if recorder == nil {
		recorder = noopRecorder{}
	}

	controller := &GameController{
		logger:    logger.With("component", "game_controller", "gameID", game.ID),
		game:      game,
		view:      view,
		scheduler: scheduler,
		timing:    timing,
		store:     store,
		recorder:  recorder,

		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		stopping: make(chan struct{}),
		finished: make(chan struct{}),
		tasks:    make(map[int]Cancel),
	}
	controller.post = controller.enqueue

	return controller
}

func (that *GameController) GameID() string {
	return that.game.ID
}

// Done is closed once Run has returned.
func (that *GameController) Done() <-chan struct{} {
	return that.done
}

// Finished is closed once the win notice was shown.
func (that *GameController) Finished() <-chan struct{} {
	return that.finished
}

// Run - renders the board and processes events until ctx is cancelled or the
// game stayed without a view for the idle timeout. Events accepted by Submit
// before that are still applied.
func (that *GameController) Run(ctx context.Context) {
	log := that.logger.With("method", "Run")

	defer that.shutdown()

	that.view.RenderBoard(that.game.Masked())
	that.view.RenderCounters(that.game.Session.TotalMoves, that.game.Session.ElapsedSeconds)

	log.Debug("game controller started")

	for !that.abandoned {
		select {
		case <-ctx.Done():
			log.Debug("game controller stopped", "reason", ctx.Err())
			that.drain(context.WithoutCancel(ctx))
			return
		case ev := <-that.events:
			that.Handle(ctx, ev)
		}
	}

	log.Info("game controller stopped", "reason", "no view attached", "idleTimeout", that.timing.IdleTimeout)
	that.drain(ctx)
}

// Submit - hands an input event to the controller loop. A nil error means the
// event will be applied.
func (that *GameController) Submit(ctx context.Context, ev Event) error {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.stopped {
		return apperror.ErrControllerStopped
	}

	select {
	case that.events <- ev:
		return nil
	case <-that.stopping:
		return apperror.ErrControllerStopped
	case <-ctx.Done():
		return fmt.Errorf("failed to submit event: %w", ctx.Err())
	}
}

// Snapshot - returns a copy of the game taken on the controller loop.
func (that *GameController) Snapshot(ctx context.Context) (*entity.Game, error) {
	reply := make(chan *entity.Game, 1)
	if err := that.Submit(ctx, snapshotRequest{reply: reply}); err != nil {
		return nil, err
	}

	select {
	case game := <-reply:
		return game, nil
	case <-that.done:
		return nil, apperror.ErrControllerStopped
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to get snapshot: %w", ctx.Err())
	}
}

// Handle - applies one event. Only the loop goroutine may call it.
func (that *GameController) Handle(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case FlipRequest:
		that.handleFlip(ctx, ev.Cell)
	case StartRequest:
		that.handleStart(ctx)
	case AttachView:
		that.handleAttach(ev.View)
	case DetachView:
		that.handleDetach(ev.View)
	case idleEvent:
		delete(that.tasks, ev.task)
		that.handleIdle(ev.task)
	case tickEvent:
		that.handleTick(ctx)
	case resolveEvent:
		delete(that.tasks, ev.task)
		that.handleResolve(ctx)
	case winNoticeEvent:
		delete(that.tasks, ev.task)
		that.handleWinNotice()
	case snapshotRequest:
		ev.reply <- that.game.Clone()
	}
}

func (that *GameController) handleFlip(ctx context.Context, cell int) {
	log := that.logger.With("method", "handleFlip")

	result := that.game.Flip(cell)
	if !result.Accepted {
		log.Debug("flip ignored", "cell", cell)
		return
	}

	that.recorder.CardFlipped()
	that.view.RenderCell(cell, visible(that.game.Board.Cards[cell]))

	if result.StartedSession {
		that.startSession()
	}

	that.renderCounters()

	if result.PairComplete {
		if result.Matched {
			for _, matched := range result.Pair {
				that.view.RenderCell(matched, that.game.Board.Cards[matched])
			}
			that.recorder.PairMatched()
		} else {
			that.recorder.PairMismatched()
		}

		that.schedule(that.timing.FlipBackDelay, func(task int) Event {
			return resolveEvent{task: task}
		})
	}

	that.save(ctx)
}

func (that *GameController) handleStart(ctx context.Context) {
	if !that.game.Start() {
		return
	}

	that.startSession()
	that.renderCounters()
	that.save(ctx)
}

func (that *GameController) handleAttach(view View) {
	if view == nil {
		view = noopView{}
	}

	that.cancelIdle()

	that.view = view
	that.view.RenderBoard(that.game.Masked())
	that.renderCounters()

	if that.game.Session.Started {
		that.view.DisableStart()
	}

	if that.winShown {
		that.view.ShowWin(that.game.Session.TotalMoves, that.game.Session.ElapsedSeconds)
	}
}

// handleDetach drops view if it is the current one. Other views were already replaced.
func (that *GameController) handleDetach(view View) {
	if view == nil || that.view != view {
		return
	}

	that.view = noopView{}

	if that.timing.IdleTimeout <= 0 || that.idleTask != 0 {
		return
	}

	that.idleTask = that.schedule(that.timing.IdleTimeout, func(task int) Event {
		return idleEvent{task: task}
	})
}

func (that *GameController) handleIdle(task int) {
	if task != that.idleTask {
		return
	}

	that.idleTask = 0
	that.abandoned = true
}

func (that *GameController) cancelIdle() {
	if cancel, ok := that.tasks[that.idleTask]; ok {
		cancel()
		delete(that.tasks, that.idleTask)
	}

	that.idleTask = 0
}

func (that *GameController) handleTick(ctx context.Context) {
	if !that.game.Tick() {
		return
	}

	that.renderCounters()
	that.save(ctx)
}

func (that *GameController) handleResolve(ctx context.Context) {
	log := that.logger.With("method", "handleResolve")

	result := that.game.Resolve()
	for _, cell := range result.Reverted {
		that.view.RenderCell(cell, visible(that.game.Board.Cards[cell]))
	}

	if result.Won {
		that.stopTimer()
		that.recorder.GameWon(that.game.Session.TotalMoves, that.game.Session.ElapsedSeconds)

		log.Info("game won", "moves", that.game.Session.TotalMoves, "seconds", that.game.Session.ElapsedSeconds)

		that.schedule(that.timing.WinNoticeDelay, func(task int) Event {
			return winNoticeEvent{task: task}
		})
	}

	that.save(ctx)
}

func (that *GameController) handleWinNotice() {
	if that.winShown {
		return
	}

	that.winShown = true
	that.view.ShowWin(that.game.Session.TotalMoves, that.game.Session.ElapsedSeconds)
	close(that.finished)
}

func (that *GameController) startSession() {
	that.recorder.GameStarted()
	that.view.DisableStart()

	that.stopTicker = that.scheduler.Every(that.timing.TickInterval, func() {
		that.post(tickEvent{})
	})
}

// stopTimer cancels the tick task; later calls do nothing.
func (that *GameController) stopTimer() {
	if that.stopTicker == nil {
		return
	}

	that.stopTicker()
	that.stopTicker = nil
}

func (that *GameController) schedule(delay time.Duration, event func(task int) Event) int {
	that.nextTask++
	task := that.nextTask

	that.tasks[task] = that.scheduler.After(delay, func() {
		that.post(event(task))
	})

	return task
}

func (that *GameController) renderCounters() {
	that.view.RenderCounters(that.game.Session.TotalMoves, that.game.Session.ElapsedSeconds)
}

func (that *GameController) save(ctx context.Context) {
	if that.store == nil {
		return
	}

	if err := that.store.UpdateGame(ctx, that.game.Clone()); err != nil {
		that.logger.Error("failed to save game", "method", "save", "error", err)
	}
}

// enqueue is how scheduled tasks reach the loop; it gives up once the loop is gone.
func (that *GameController) enqueue(ev Event) {
	select {
	case that.events <- ev:
	case <-that.done:
	}
}

// drain stops Submit from accepting events and applies the ones already accepted.
func (that *GameController) drain(ctx context.Context) {
	close(that.stopping)

	that.mu.Lock()
	that.stopped = true
	that.mu.Unlock()

	for {
		select {
		case ev := <-that.events:
			that.Handle(ctx, ev)
		default:
			return
		}
	}
}

func (that *GameController) shutdown() {
	that.stopOnce.Do(func() {
		that.stopTimer()

		for task, cancel := range that.tasks {
			cancel()
			delete(that.tasks, task)
		}

		close(that.done)
	})
}

type noopRecorder struct{}

func (noopRecorder) GameStarted()     {}
func (noopRecorder) CardFlipped()     {}
func (noopRecorder) PairMatched()     {}
func (noopRecorder) PairMismatched()  {}
func (noopRecorder) GameWon(int, int) {}
