package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the server configuration
type ServerConfig struct {
	Server ServerSettings `yaml:"server"`
	Game   GameSettings   `yaml:"game"`
	Auth   AuthSettings   `yaml:"auth"`
	Lobby  LobbySettings  `yaml:"lobby"`
	Store  StoreSettings  `yaml:"store"`
}

// ServerSettings contains server-wide settings
type ServerSettings struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// Rate limiting (using golang.org/x/time/rate)
	RateLimit      float64 `yaml:"rateLimit"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`

	MaxRequestSize int64 `yaml:"maxRequestSize"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

// GameSettings contains the room defaults applied at creation.
type GameSettings struct {
	MaxPlayersPerRoom  int  `yaml:"maxPlayersPerRoom"`
	MinPlayersPerRoom  int  `yaml:"minPlayersPerRoom"`
	TurnTimeoutSeconds int  `yaml:"turnTimeoutSeconds"`
	AllowSpectators    bool `yaml:"allowSpectators"`
	PublicByDefault    bool `yaml:"publicByDefault"`

	// How long an idle room actor stays resident before passivation.
	PassivationTimeout time.Duration `yaml:"passivationTimeout"`
	// How long a finished or abandoned room's state survives in storage.
	RoomRetention time.Duration `yaml:"roomRetention"`
}

// AuthSettings configures token verification.
type AuthSettings struct {
	JWKSURL      string `yaml:"jwksUrl"`
	Issuer       string `yaml:"issuer"`
	Audience     string `yaml:"audience"`
	KeyCacheSize int    `yaml:"keyCacheSize"`

	// Development fallback when no JWKS endpoint is configured.
	HMACSecret string `yaml:"hmacSecret"`
}

// LobbySettings configures the lobby-projection egress.
type LobbySettings struct {
	RedisAddr    string `yaml:"redisAddr"`
	RedisChannel string `yaml:"redisChannel"`
}

// StoreSettings configures room persistence.
type StoreSettings struct {
	PostgresDSN string `yaml:"postgresDsn"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Port:            "",
			Host:            "",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,

			RateLimit:      10,
			RateLimitBurst: 20,

			MaxRequestSize: 1 << 20,

			LogLevel:  "info",
			LogFormat: "text",
		},
		Game: GameSettings{
			MaxPlayersPerRoom:  4,
			MinPlayersPerRoom:  2,
			TurnTimeoutSeconds: 60,
			AllowSpectators:    true,
			PublicByDefault:    true,
			PassivationTimeout: 5 * time.Minute,
			RoomRetention:      24 * time.Hour,
		},
		Auth: AuthSettings{
			KeyCacheSize: 16,
		},
	}
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT environment variable must be set")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HOST environment variable must be set")
	}

	if c.Game.MaxPlayersPerRoom < 2 || c.Game.MaxPlayersPerRoom > 4 {
		return fmt.Errorf("maxPlayersPerRoom must be between 2 and 4")
	}
	if c.Game.MinPlayersPerRoom < 2 {
		return fmt.Errorf("minPlayersPerRoom must be at least 2")
	}
	if c.Game.MinPlayersPerRoom > c.Game.MaxPlayersPerRoom {
		return fmt.Errorf("minPlayersPerRoom cannot be greater than maxPlayersPerRoom")
	}
	if c.Game.TurnTimeoutSeconds < 10 {
		return fmt.Errorf("turnTimeoutSeconds must be at least 10")
	}
	if c.Game.PassivationTimeout <= 0 {
		return fmt.Errorf("passivationTimeout must be positive")
	}

	if c.Auth.JWKSURL == "" && c.Auth.HMACSecret == "" {
		return fmt.Errorf("either auth.jwksUrl or auth.hmacSecret must be set")
	}

	return nil
}
