package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	HTTPPort   string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090" validate:"required,numeric"`
	SocketPort string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080" validate:"required,numeric"`
	Redis      Redis  `yaml:"redis"`
	Board      Board  `yaml:"board"`
}

type Redis struct {
	Host      string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost" validate:"required"`
	Port      string        `yaml:"port" env:"REDIS_PORT" env-default:"6379" validate:"required,numeric"`
	GameTTL   time.Duration `yaml:"game-ttl" env:"REDIS_GAME_TTL" env-default:"1h" validate:"gt=0"`
	PlayerTTL time.Duration `yaml:"player-ttl" env:"REDIS_PLAYER_TTL" env-default:"24h" validate:"gt=0"`
}

// Board holds the game rules. The dimension is checked for evenness when a
// board is generated, not here.
type Board struct {
	Dimension      int           `yaml:"dimension" env:"BOARD_DIMENSION" env-default:"4"`
	Palette        []string      `yaml:"palette" env:"BOARD_PALETTE" env-separator:","`
	FlipBackDelay  time.Duration `yaml:"flip-back-delay" env:"BOARD_FLIP_BACK_DELAY" env-default:"1s" validate:"gt=0"`
	WinNoticeDelay time.Duration `yaml:"win-notice-delay" env:"BOARD_WIN_NOTICE_DELAY" env-default:"1s" validate:"gte=0"`
	TickInterval   time.Duration `yaml:"tick-interval" env:"BOARD_TICK_INTERVAL" env-default:"1s" validate:"gt=0"`
	IdleTimeout    time.Duration `yaml:"idle-timeout" env:"BOARD_IDLE_TIMEOUT" env-default:"5m" validate:"gte=0"`
}

// Load - reads the config file, or only the environment when the file does not exist.
func Load(path string) (*Config, error) {
	config := &Config{}

	_, statErr := os.Stat(path)

	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load config from env: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", statErr)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
