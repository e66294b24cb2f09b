// Package config loads the platform's configuration from defaults, an
// optional YAML file, and environment variable overrides, in that order of
// precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ExecutorConfig controls the seven-phase cross-chain swap executor.
type ExecutorConfig struct {
	GlobalTimeout      time.Duration `json:"global_timeout" env:"EXECUTOR_GLOBAL_TIMEOUT"`
	MaxConcurrent      int           `json:"max_concurrent" env:"EXECUTOR_MAX_CONCURRENT"`
	MEVDelayMin        time.Duration `json:"mev_delay_min" env:"EXECUTOR_MEV_DELAY_MIN"`
	MEVDelayMax        time.Duration `json:"mev_delay_max" env:"EXECUTOR_MEV_DELAY_MAX"`
	DestinationPollInt time.Duration `json:"destination_poll_interval" env:"EXECUTOR_POLL_INTERVAL"`
	DestinationPollMax int           `json:"destination_poll_max" env:"EXECUTOR_POLL_MAX"`
	// RetryBaseDelay is the base unit for each retrying phase's exponential
	// backoff (spec §4.5's "2^n s" / "3^n s" columns use this as n=1's
	// delay). Defaults to 1 second.
	RetryBaseDelay time.Duration `json:"retry_base_delay" env:"EXECUTOR_RETRY_BASE_DELAY"`
}

// PoolConfig controls the Orbital AMM engine's defaults.
type PoolConfig struct {
	ToleranceBp  int   `json:"tolerance_bp" env:"POOL_TOLERANCE_BP"`
	MinFeeBp     int   `json:"min_fee_bp" env:"POOL_MIN_FEE_BP"`
	MaxFeeBp     int   `json:"max_fee_bp" env:"POOL_MAX_FEE_BP"`
	BaseFeeBp    int   `json:"base_fee_bp" env:"POOL_BASE_FEE_BP"`
	TWAPWindowS  int64 `json:"twap_window_s" env:"POOL_TWAP_WINDOW_S"`
	FeeWindowS   int64 `json:"fee_window_s" env:"POOL_FEE_WINDOW_S"`
	MaxNewtonIts int   `json:"max_newton_iterations" env:"POOL_MAX_NEWTON_ITERATIONS"`
}

// MatcherConfig controls solver eligibility and reputation scoring.
type MatcherConfig struct {
	MinStake       string `json:"min_stake" env:"MATCHER_MIN_STAKE"`
	SlashAmount    string `json:"slash_amount" env:"MATCHER_SLASH_AMOUNT"`
	ProbationDays  int    `json:"probation_days" env:"MATCHER_PROBATION_DAYS"`
	MinExecutions  int    `json:"min_executions" env:"MATCHER_MIN_EXECUTIONS"`
	MinSuccessRate int    `json:"min_success_rate_bp" env:"MATCHER_MIN_SUCCESS_RATE_BP"`
}

// ProtectorConfig controls the MEV protection subsystem.
type ProtectorConfig struct {
	CommitMinDelayBlocks uint64        `json:"commit_min_delay_blocks" env:"MEV_COMMIT_MIN_DELAY_BLOCKS"`
	CommitExpiryBlocks   uint64        `json:"commit_expiry_blocks" env:"MEV_COMMIT_EXPIRY_BLOCKS"`
	MaxDeviationBp       int           `json:"max_deviation_bp" env:"MEV_MAX_DEVIATION_BP"`
	SandwichWindowBlocks uint64        `json:"sandwich_window_blocks" env:"MEV_SANDWICH_WINDOW_BLOCKS"`
	CooldownBlocks       uint64        `json:"cooldown_blocks" env:"MEV_COOLDOWN_BLOCKS"`
	BatchWindow          time.Duration `json:"batch_window" env:"MEV_BATCH_WINDOW"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL"`
	Format string `json:"format" env:"LOG_FORMAT"`
	Output string `json:"output" env:"LOG_OUTPUT"`
}

// DatabaseConfig controls the reference Postgres repositories.
type DatabaseConfig struct {
	DSN             string `json:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns    int    `json:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `json:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifeSecs int    `json:"conn_max_lifetime_s" env:"DATABASE_CONN_MAX_LIFETIME_S"`
}

// RedisConfig controls the optional Redis-backed commitment/TWAP store.
type RedisConfig struct {
	Addr     string `json:"addr" env:"REDIS_ADDR"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
}

// Config is the top-level configuration structure.
type Config struct {
	Executor  ExecutorConfig  `json:"executor"`
	Pool      PoolConfig      `json:"pool"`
	Matcher   MatcherConfig   `json:"matcher"`
	Protector ProtectorConfig `json:"protector"`
	Logging   LoggingConfig   `json:"logging"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
}

// New returns a configuration populated with the defaults named in spec §4.
func New() *Config {
	return &Config{
		Executor: ExecutorConfig{
			GlobalTimeout:      5 * time.Minute,
			MaxConcurrent:      10,
			MEVDelayMin:        2 * time.Second,
			MEVDelayMax:        8 * time.Second,
			DestinationPollInt: 10 * time.Second,
			DestinationPollMax: 30,
			RetryBaseDelay:     1 * time.Second,
		},
		Pool: PoolConfig{
			ToleranceBp:  10,
			MinFeeBp:     5,
			MaxFeeBp:     100,
			BaseFeeBp:    30,
			TWAPWindowS:  1800,
			FeeWindowS:   300,
			MaxNewtonIts: 64,
		},
		Matcher: MatcherConfig{
			MinStake:       "0",
			SlashAmount:    "0",
			ProbationDays:  7,
			MinExecutions:  10,
			MinSuccessRate: 9000,
		},
		Protector: ProtectorConfig{
			CommitMinDelayBlocks: 2,
			CommitExpiryBlocks:   20,
			MaxDeviationBp:       50,
			SandwichWindowBlocks: 3,
			CooldownBlocks:       10,
			BatchWindow:          12 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifeSecs: 300,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// Load loads configuration from an optional YAML file and environment
// variables, in that precedence order: defaults, file, then env overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		_ = loadFromFile("configs/config.yaml", cfg)
	}

	if err := envdecode.Decode(cfg); err != nil {
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, fmt.Errorf("decode env: %w", err)
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		cfg.Database.DSN = dsn
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	expanded, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	// The config structs carry json tags only, so the YAML document is
	// decoded generically and re-read through encoding/json: file keys are
	// the snake_case json names, and durations are integers in nanoseconds.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, cfg)
}
