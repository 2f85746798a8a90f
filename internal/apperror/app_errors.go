package apperror

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrGameNotFound         = errors.New("game not found")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrNoActiveGame         = errors.New("no active game")
	ErrControllerStopped    = errors.New("game controller is stopped")
)
