package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvLogLevel       = "TSI_LOG_LEVEL"
	EnvLogFormat      = "TSI_LOG_FORMAT"
	EnvHTTPAddr       = "TSI_HTTP_ADDR"
	EnvGRPCAddr       = "TSI_GRPC_ADDR"
	EnvEngineCatalog  = "TSI_ENGINE_CATALOG"
	EnvStrategy       = "TSI_OPTIMIZER_STRATEGY"
	EnvWorkers        = "TSI_WORKERS"
	EnvMonteCarloSeed = "TSI_MONTE_CARLO_SEED"
	EnvRunsPerSecond  = "TSI_RUNS_PER_SECOND"
)

const (
	defaultHTTPAddr      = ":8080"
	defaultGRPCAddr      = ":50051"
	defaultRunsPerSecond = 5
)

// LoadConfig reads, defaults and validates a configuration file. It does
// not consult the environment.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the effective configuration: the YAML file at path (optional,
// "" means defaults only), then a .env file in the working directory if
// present, then TSI_* environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	setDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv(EnvGRPCAddr); v != "" {
		cfg.Server.GRPCAddr = v
	}
	if v := os.Getenv(EnvEngineCatalog); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv(EnvStrategy); v != "" {
		cfg.Optimizer.Strategy = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWorkers, err)
		}
		cfg.Optimizer.Workers = n
		cfg.MonteCarlo.Workers = n
	}
	if v := os.Getenv(EnvMonteCarloSeed); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMonteCarloSeed, err)
		}
		cfg.MonteCarlo.Seed = n
	}
	if v := os.Getenv(EnvRunsPerSecond); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRunsPerSecond, err)
		}
		cfg.Server.RunsPerSecond = f
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	s := &cfg.Server
	if s.HTTPAddr == "" {
		s.HTTPAddr = defaultHTTPAddr
	}
	if s.GRPCAddr == "" {
		s.GRPCAddr = defaultGRPCAddr
	}
	if s.RunsPerSecond == 0 {
		s.RunsPerSecond = defaultRunsPerSecond
	}
	if s.RunBurst == 0 {
		s.RunBurst = 10
	}
	if s.ReadTimeoutMs == 0 {
		s.ReadTimeoutMs = 15_000
	}
	if s.WriteTimeoutMs == 0 {
		s.WriteTimeoutMs = 120_000
	}
	if s.ShutdownGraceMs == 0 {
		s.ShutdownGraceMs = 10_000
	}

	o := &cfg.Optimizer
	if o.Strategy == "" {
		o.Strategy = "auto"
	}
	if o.PropellantSteps == 0 {
		o.PropellantSteps = 20
	}
	if o.MinPropellantKg == 0 {
		o.MinPropellantKg = 10_000
	}
	if o.MaxPropellantKg == 0 {
		o.MaxPropellantKg = 5_000_000
	}
	if o.TopK == 0 {
		o.TopK = 3
	}
	if o.RefineSteps == 0 {
		o.RefineSteps = 9
	}
	if o.RefineWindow == 0 {
		o.RefineWindow = 0.3
	}
	if o.RefineAlternatives == 0 {
		o.RefineAlternatives = 2
	}

	mc := &cfg.MonteCarlo
	if mc.Iterations == 0 {
		mc.Iterations = 1000
	}
	if mc.Uncertainty == "" {
		mc.Uncertainty = "default"
	}

	cb := &cfg.Callback
	if cb.TimeoutMs == 0 {
		cb.TimeoutMs = 5_000
	}
	if cb.MaxRetries == 0 {
		cb.MaxRetries = 3
	}
	if cb.Backoff == "" {
		cb.Backoff = "exponential"
	}
	if cb.BaseMs == 0 {
		cb.BaseMs = 200
	}
	if cb.MaxMs == 0 {
		cb.MaxMs = 5_000
	}
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log.format: %s (must be json or text)", cfg.Log.Format)
	}

	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validateOptimizer(&cfg.Optimizer); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := validateMonteCarlo(&cfg.MonteCarlo); err != nil {
		return fmt.Errorf("monte_carlo: %w", err)
	}
	if err := validateCallback(&cfg.Callback); err != nil {
		return fmt.Errorf("callback: %w", err)
	}
	return nil
}

func validateServer(s *ServerConfig) error {
	if s.RunsPerSecond < 0 {
		return fmt.Errorf("runs_per_second cannot be negative")
	}
	if s.RunBurst < 1 {
		return fmt.Errorf("run_burst must be positive")
	}
	if s.ReadTimeoutMs < 0 || s.WriteTimeoutMs < 0 || s.ShutdownGraceMs < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}

func validateOptimizer(o *OptimizerConfig) error {
	switch strings.ToLower(o.Strategy) {
	case "auto", "analytical", "brute-force", "bruteforce", "brute_force":
	default:
		return fmt.Errorf("invalid strategy: %s (must be auto, analytical, or brute-force)", o.Strategy)
	}
	if o.PropellantSteps < 2 {
		return fmt.Errorf("propellant_steps must be at least 2")
	}
	if o.MinPropellantKg <= 0 || o.MaxPropellantKg <= o.MinPropellantKg {
		return fmt.Errorf("propellant bounds must satisfy 0 < min_propellant_kg < max_propellant_kg")
	}
	if o.TopK < 1 {
		return fmt.Errorf("top_k must be positive")
	}
	if o.RefineSteps == 1 {
		return fmt.Errorf("refine_steps must be at least 2, or negative to disable refinement")
	}
	if o.RefineAlternatives < 0 {
		return fmt.Errorf("refine_alternatives cannot be negative")
	}
	if o.RefineWindow < 0 || o.RefineWindow >= 1 {
		return fmt.Errorf("refine_window must be in [0, 1)")
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	return nil
}

func validateMonteCarlo(mc *MonteCarloConfig) error {
	if mc.Iterations < 1 {
		return fmt.Errorf("iterations must be positive")
	}
	switch strings.ToLower(mc.Uncertainty) {
	case "none", "low", "default", "high":
	default:
		return fmt.Errorf("invalid uncertainty: %s (must be none, low, default, or high)", mc.Uncertainty)
	}
	if mc.Workers < 0 {
		return fmt.Errorf("workers cannot be negative")
	}
	return nil
}

func validateCallback(cb *CallbackConfig) error {
	switch cb.Backoff {
	case "exponential", "exponential-nojitter", "constant":
	default:
		return fmt.Errorf("invalid backoff: %s (must be exponential, exponential-nojitter, or constant)", cb.Backoff)
	}
	if cb.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	if cb.BaseMs < 0 || cb.MaxMs < 0 || cb.TimeoutMs < 0 {
		return fmt.Errorf("durations cannot be negative")
	}
	return nil
}
