package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Solana     Solana     `mapstructure:"solana"`
	Simulation Simulation `mapstructure:"simulation"`
	Sniper     Sniper     `mapstructure:"sniper"`
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
}

// Solana holds the chain-query endpoints for the balance oracle. The backup
// endpoint is tried once whenever the primary fails.
type Solana struct {
	Endpoint       string  `mapstructure:"endpoint"`
	BackupEndpoint string  `mapstructure:"backup_endpoint"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Simulation holds the tuning knobs of the paper-trading engine. The defaults
// reproduce the behaviour users of the dashboard are used to; none of them is
// derived from a real process.
type Simulation struct {
	StartDelayMs       int     `mapstructure:"start_delay_ms"`
	ResolveDelayMs     int     `mapstructure:"resolve_delay_ms"`
	SuccessProbability float64 `mapstructure:"success_probability"`
	WatchMinIntervalMs int     `mapstructure:"watch_min_interval_ms"`
	WatchMaxIntervalMs int     `mapstructure:"watch_max_interval_ms"`
	DriftMinPct        float64 `mapstructure:"drift_min_pct"`
	DriftMaxPct        float64 `mapstructure:"drift_max_pct"`
	Seed               int64   `mapstructure:"seed"` // 0 seeds from the clock
}

// StartDelay is the pause between recording a pending snipe order and
// executing the buy.
func (s *Simulation) StartDelay() time.Duration {
	return time.Duration(s.StartDelayMs) * time.Millisecond
}

// ResolveDelay is the simulated settlement time of a buy or sell.
func (s *Simulation) ResolveDelay() time.Duration {
	return time.Duration(s.ResolveDelayMs) * time.Millisecond
}

// WatchMinInterval is the lower bound of the auto-sell polling period.
func (s *Simulation) WatchMinInterval() time.Duration {
	return time.Duration(s.WatchMinIntervalMs) * time.Millisecond
}

// WatchMaxInterval is the upper bound of the auto-sell polling period.
func (s *Simulation) WatchMaxInterval() time.Duration {
	return time.Duration(s.WatchMaxIntervalMs) * time.Millisecond
}

// Sniper holds policy switches for the sniper subsystem.
type Sniper struct {
	// PersistConfigs enables durable storage for the config registry. The
	// ledger is always durable; configs historically were not, so this is a
	// separate switch.
	PersistConfigs bool `mapstructure:"persist_configs"`
}

// Server holds the configuration for the HTTP API.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("solana.endpoint", "https://api.mainnet-beta.solana.com")
	viper.SetDefault("solana.backup_endpoint", "https://solana-api.projectserum.com")
	viper.SetDefault("solana.rate_limit", 10) // requests per second
	viper.SetDefault("solana.rate_limit_burst", 5)

	viper.SetDefault("simulation.start_delay_ms", 1000)
	viper.SetDefault("simulation.resolve_delay_ms", 3000)
	viper.SetDefault("simulation.success_probability", 0.8)
	viper.SetDefault("simulation.watch_min_interval_ms", 5000)
	viper.SetDefault("simulation.watch_max_interval_ms", 10000)
	viper.SetDefault("simulation.drift_min_pct", -10)
	viper.SetDefault("simulation.drift_max_pct", 15)
	viper.SetDefault("simulation.seed", 0)

	viper.SetDefault("sniper.persist_configs", false)

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "sniper.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
