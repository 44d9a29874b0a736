package config

import "time"

// Config is the tsi / tsid configuration file.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	MonteCarlo MonteCarloConfig `yaml:"monte_carlo"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Callback   CallbackConfig   `yaml:"callback"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | text
}

// ServerConfig configures the daemon listeners.
type ServerConfig struct {
	HTTPAddr        string  `yaml:"http_addr"`
	GRPCAddr        string  `yaml:"grpc_addr"`
	RunsPerSecond   float64 `yaml:"runs_per_second"` // run creation rate limit
	RunBurst        int     `yaml:"run_burst"`
	ReadTimeoutMs   int     `yaml:"read_timeout_ms"`
	WriteTimeoutMs  int     `yaml:"write_timeout_ms"`
	ShutdownGraceMs int     `yaml:"shutdown_grace_ms"`
}

// OptimizerConfig holds the default strategy and search grid.
type OptimizerConfig struct {
	Strategy           string  `yaml:"strategy"` // auto | analytical | brute-force
	PropellantSteps    int     `yaml:"propellant_steps"`
	MinPropellantKg    float64 `yaml:"min_propellant_kg"`
	MaxPropellantKg    float64 `yaml:"max_propellant_kg"`
	TopK               int     `yaml:"top_k"`
	RefineSteps        int     `yaml:"refine_steps"`
	RefineWindow       float64 `yaml:"refine_window"`
	RefineAlternatives int     `yaml:"refine_alternatives"`
	Workers            int     `yaml:"workers"` // 0 = GOMAXPROCS
}

// MonteCarloConfig holds defaults for uncertainty runs.
type MonteCarloConfig struct {
	Iterations  int    `yaml:"iterations"`
	Uncertainty string `yaml:"uncertainty"` // none | low | default | high
	Seed        int64  `yaml:"seed"`        // 0 = random
	Workers     int    `yaml:"workers"`
}

// CatalogConfig points at an optional engine catalog replacing the
// built-in one.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// CallbackConfig controls run completion callbacks.
type CallbackConfig struct {
	TimeoutMs  int    `yaml:"timeout_ms"`
	MaxRetries int    `yaml:"max_retries"`
	Backoff    string `yaml:"backoff"` // exponential, exponential-nojitter, constant
	BaseMs     int    `yaml:"base_ms"`
	MaxMs      int    `yaml:"max_ms"`
}

// ReadTimeout returns the HTTP read timeout.
func (s ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the HTTP write timeout.
func (s ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeoutMs) * time.Millisecond
}

// ShutdownGrace returns how long shutdown waits for in-flight work.
func (s ServerConfig) ShutdownGrace() time.Duration {
	return time.Duration(s.ShutdownGraceMs) * time.Millisecond
}

// Timeout returns the per-attempt callback timeout.
func (c CallbackConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
