package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// PayoutMode selects how the prize pool is computed.
type PayoutMode string

const (
	// PayoutModeStakePool: prize = stake * distinct players * payout factor.
	PayoutModeStakePool PayoutMode = "stake_pool"
	// PayoutModeFixedPool: prize = card_price * card_count, independent
	// of actual purchases.
	PayoutModeFixedPool PayoutMode = "fixed_pool"
)

// GameConfig holds round orchestration parameters. Amounts are in the
// smallest currency unit.
type GameConfig struct {
	StakeTiers      []int64       `mapstructure:"stake_tiers"`
	MaxCardsPerUser int           `mapstructure:"max_cards_per_user"`
	MinPlayers      int           `mapstructure:"min_players"`
	CardCount       int           `mapstructure:"card_count"` // selectable card numbers 1..CardCount
	LockCountdown   time.Duration `mapstructure:"lock_countdown"`
	DrawInterval    time.Duration `mapstructure:"draw_interval"`
	PayoutMode      PayoutMode    `mapstructure:"payout_mode"`
	PayoutFactor    string        `mapstructure:"payout_factor"` // decimal string, e.g. "0.8"
	CardPrice       int64         `mapstructure:"card_price"`    // fixed_pool mode only
	Patterns        []string      `mapstructure:"patterns"`
	MaxHistory      int           `mapstructure:"max_history"`
}

// Factor parses the configured payout factor.
func (g GameConfig) Factor() (decimal.Decimal, error) {
	f, err := decimal.NewFromString(g.PayoutFactor)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing payout factor %q: %w", g.PayoutFactor, err)
	}
	if f.IsNegative() || f.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("payout factor %s out of range [0, 1]", f)
	}
	return f, nil
}

// ValidStake reports whether stake is a configured tier.
func (g GameConfig) ValidStake(stake int64) bool {
	for _, t := range g.StakeTiers {
		if t == stake {
			return true
		}
	}
	return false
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: LBE_ (Live Bingo
// Engine). Nested keys use underscore: LBE_DATABASE_HOST, LBE_JWT_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "bingo_engine")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "live-bingo-engine")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("game.stake_tiers", []int64{1000, 2000, 3000, 5000, 10000})
	v.SetDefault("game.max_cards_per_user", 2)
	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.card_count", 100)
	v.SetDefault("game.lock_countdown", "30s")
	v.SetDefault("game.draw_interval", "5s")
	v.SetDefault("game.payout_mode", string(PayoutModeStakePool))
	v.SetDefault("game.payout_factor", "0.8")
	v.SetDefault("game.card_price", 1000)
	v.SetDefault("game.patterns", []string{"row", "column", "diagonal", "corners", "full_card"})
	v.SetDefault("game.max_history", 100)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: LBE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("LBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Missing config file is fine, env vars can carry everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validateGame(cfg.Game); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateGame(g GameConfig) error {
	if len(g.StakeTiers) == 0 {
		return fmt.Errorf("game.stake_tiers must not be empty")
	}
	if g.MaxCardsPerUser < 1 {
		return fmt.Errorf("game.max_cards_per_user must be >= 1")
	}
	if g.MinPlayers < 2 {
		return fmt.Errorf("game.min_players must be >= 2")
	}
	if g.CardCount < g.MinPlayers {
		return fmt.Errorf("game.card_count must be >= game.min_players")
	}
	if g.PayoutMode != PayoutModeStakePool && g.PayoutMode != PayoutModeFixedPool {
		return fmt.Errorf("game.payout_mode must be %q or %q", PayoutModeStakePool, PayoutModeFixedPool)
	}
	if _, err := g.Factor(); err != nil {
		return err
	}
	return nil
}
