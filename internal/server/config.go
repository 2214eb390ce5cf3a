package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration, loadable from an HCL
// file. Environment overrides (REDIS_URL, ADMIN_PASSWORD,
// RATE_LIMIT_ENABLED) are applied by the CLI layer on top of this.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Redis  RedisSettings  `hcl:"redis,block"`
	Games  GameSettings   `hcl:"games,block"`
}

// ServerSettings contains the HTTP listener configuration.
type ServerSettings struct {
	Address          string   `hcl:"address,optional"`
	Port             int      `hcl:"port,optional"`
	LogLevel         string   `hcl:"log_level,optional"`
	AdminPassword    string   `hcl:"admin_password,optional"`
	RateLimitEnabled bool     `hcl:"rate_limit_enabled,optional"`
	RateLimitPerMin  int      `hcl:"rate_limit_per_minute,optional"`
	AllowedOrigins   []string `hcl:"allowed_origins,optional"`
}

// RedisSettings selects the persistence backend.
type RedisSettings struct {
	URL string `hcl:"url,optional"`
}

// GameSettings bounds what clients may request at game creation.
type GameSettings struct {
	MaxPlayers       int `hcl:"max_players,optional"`
	MinStartingChips int `hcl:"min_starting_chips,optional"`
	MaxStartingChips int `hcl:"max_starting_chips,optional"`
	MaxTurnTimeout   int `hcl:"max_turn_timeout,optional"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:         "0.0.0.0",
			Port:            8000,
			LogLevel:        "info",
			RateLimitPerMin: 60,
			AllowedOrigins:  []string{"*"},
		},
		Redis: RedisSettings{
			URL: "redis://localhost:6379/0",
		},
		Games: GameSettings{
			MaxPlayers:       50,
			MinStartingChips: 100,
			MaxStartingChips: 100000,
			MaxTurnTimeout:   300,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	def := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = def.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = def.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = def.Server.LogLevel
	}
	if config.Server.RateLimitPerMin == 0 {
		config.Server.RateLimitPerMin = def.Server.RateLimitPerMin
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = def.Server.AllowedOrigins
	}
	if config.Redis.URL == "" {
		config.Redis.URL = def.Redis.URL
	}
	if config.Games.MaxPlayers == 0 {
		config.Games.MaxPlayers = def.Games.MaxPlayers
	}
	if config.Games.MinStartingChips == 0 {
		config.Games.MinStartingChips = def.Games.MinStartingChips
	}
	if config.Games.MaxStartingChips == 0 {
		config.Games.MaxStartingChips = def.Games.MaxStartingChips
	}
	if config.Games.MaxTurnTimeout == 0 {
		config.Games.MaxTurnTimeout = def.Games.MaxTurnTimeout
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for nonsense values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Games.MinStartingChips > c.Games.MaxStartingChips {
		return fmt.Errorf("min_starting_chips %d exceeds max_starting_chips %d",
			c.Games.MinStartingChips, c.Games.MaxStartingChips)
	}
	return nil
}
