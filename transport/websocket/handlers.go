package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
)

func (that *Server) handleConnect(ctx context.Context, msg *Message, client *client) error {
	log := that.logger.With("method", "handleConnect")

	var payloadReq ConnectRequest
	if err := that.decode(msg, &payloadReq); err != nil {
		log.Debug("invalid payload", "error", err)
		that.sendErrorResponse(client, msg.Action, describe(err))
		return nil
	}

	player, err := that.manager.GetOrCreatePlayer(ctx, payloadReq.Player.ID)
	if err != nil {
		that.sendErrorResponse(client, msg.Action, "failed to create a new player")
		return fmt.Errorf("failed to create or get player: %w", err)
	}

	log = log.With("playerID", player.ID)
	client.playerID = player.ID

	payloadResp := ResponsePayload{
		Player: player,
	}

	if player.GameID != "" {
		payloadResp.Game = that.existingGame(ctx, player, client)
	}

	if err = client.send(msg.Action, payloadResp); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("successfully connected player")

	return nil
}

// existingGame - re-attaches a running game to the client, or falls back to its last snapshot.
func (that *Server) existingGame(ctx context.Context, player *entity.Player, client *client) *entity.Game {
	log := that.logger.With("method", "existingGame", "playerID", player.ID, "gameID", player.GameID)

	game, err := that.manager.Attach(ctx, player.ID, client)
	if err == nil {
		return game
	}

	if !errors.Is(err, apperror.ErrNoActiveGame) {
		log.Error("failed to attach to game", "error", err)
		return nil
	}

	game, err = that.manager.GetGame(ctx, player.GameID)
	if err != nil {
		if !errors.Is(err, apperror.ErrGameNotFound) {
			log.Error("failed to get game", "error", err)
		}

		return nil
	}

	return game
}

func (that *Server) handleNewGame(ctx context.Context, msg *Message, client *client) error {
	log := that.logger.With("method", "handleNewGame")

	var payloadReq NewGameRequest
	if err := that.decode(msg, &payloadReq); err != nil {
		log.Debug("invalid payload", "error", err)
		that.sendErrorResponse(client, msg.Action, describe(err))
		return nil
	}

	log = log.With("playerID", payloadReq.Player.ID)

	game, err := that.manager.NewGame(ctx, payloadReq.Player.ID, payloadReq.Dimension, client)
	switch {
	case errors.Is(err, apperror.ErrInvalidConfiguration):
		that.sendErrorResponse(client, msg.Action, "invalid board dimension")
		return nil
	case errors.Is(err, apperror.ErrPlayerNotFound):
		that.sendErrorResponse(client, msg.Action, "player not found")
		return nil
	case err != nil:
		that.sendErrorResponse(client, msg.Action, "failed to create a new game")
		return fmt.Errorf("failed to create game: %w", err)
	}

	client.playerID = payloadReq.Player.ID

	payloadResp := ResponsePayload{
		Player: &entity.Player{ID: payloadReq.Player.ID, GameID: game.ID},
		Game:   game,
	}

	if err = client.send(msg.Action, payloadResp); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Info("new game created", "gameID", game.ID)

	return nil
}

func (that *Server) handleStartGame(ctx context.Context, msg *Message, client *client) error {
	var payloadReq StartRequest
	if err := that.decode(msg, &payloadReq); err != nil {
		that.sendErrorResponse(client, msg.Action, describe(err))
		return nil
	}

	return that.forward(client, msg.Action, that.manager.Start(ctx, payloadReq.Player.ID))
}

func (that *Server) handleFlipCard(ctx context.Context, msg *Message, client *client) error {
	var payloadReq FlipRequest
	if err := that.decode(msg, &payloadReq); err != nil {
		that.sendErrorResponse(client, msg.Action, describe(err))
		return nil
	}

	return that.forward(client, msg.Action, that.manager.Flip(ctx, payloadReq.Player.ID, *payloadReq.Cell))
}

// forward - answers an input event. Accepted events are answered by the game itself.
func (that *Server) forward(client *client, action string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperror.ErrNoActiveGame):
		that.sendErrorResponse(client, action, "no active game")
		return nil
	default:
		that.sendErrorResponse(client, action, "failed to process "+action)
		return fmt.Errorf("failed to forward %s: %w", action, err)
	}
}

func (that *Server) decode(msg *Message, req any) error {
	if len(msg.Payload) == 0 {
		return errEmptyPayload
	}

	if err := json.Unmarshal(msg.Payload, req); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := that.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	return nil
}

var errEmptyPayload = errors.New("payload is required")

// describe turns a decoding error into a message for the client.
func describe(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		if errors.Is(err, errEmptyPayload) {
			return errEmptyPayload.Error()
		}

		return "invalid payload"
	}

	fieldErr := validationErrs[0]
	field := strings.ToLower(fieldErr.Field())

	if fieldErr.Tag() == "required" {
		return field + " is required"
	}

	return field + " is invalid"
}

func (that *Server) sendErrorResponse(client *client, action, errorMsg string) {
	if err := client.send(action, ResponsePayload{Error: errorMsg}); err != nil {
		that.logger.Warn("failed to send error response", "action", action, "error", err)
	}
}
