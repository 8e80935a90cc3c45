package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/quantfuse/quantfuse/internal/market"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Consensus  ConsensusConfig  `mapstructure:"consensus"`
	Weights    WeightsConfig    `mapstructure:"weights"`
	Risk       RiskConfig       `mapstructure:"risk"`
	KillSwitch KillSwitchConfig `mapstructure:"kill_switch"`
	Narrative  NarrativeConfig  `mapstructure:"narrative"`
	API        APIConfig        `mapstructure:"api"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // json, console
}

// ConsensusConfig tunes the fusion engine.
type ConsensusConfig struct {
	AgentTimeoutMS     int     `mapstructure:"agent_timeout_ms"`
	StrongSellFraction float64 `mapstructure:"strong_sell_fraction"`
	SellFraction       float64 `mapstructure:"sell_fraction"`
}

// WeightsConfig seeds and tunes the adaptive agent weights.
type WeightsConfig struct {
	Base map[string]float64 `mapstructure:"base"`
}

// RiskConfig tunes the risk gate policy chain.
type RiskConfig struct {
	MaxDrawdownLimit    float64 `mapstructure:"max_drawdown_limit"`
	DrawdownRejectRatio float64 `mapstructure:"drawdown_reject_ratio"`
	MaxPositionSize     float64 `mapstructure:"max_position_size"`
	VolatilityThreshold float64 `mapstructure:"volatility_threshold"`
	VolatilityThrottle  float64 `mapstructure:"volatility_throttle"`
	TakeProfitRatio     float64 `mapstructure:"take_profit_ratio"`
}

// KillSwitchConfig tunes the portfolio-level circuit breaker.
type KillSwitchConfig struct {
	VaRBudget          float64 `mapstructure:"var_budget"`
	TriggerThreshold   float64 `mapstructure:"trigger_threshold"`
	CriticalThreshold  float64 `mapstructure:"critical_threshold"`
	EmergencyThreshold float64 `mapstructure:"emergency_threshold"`
	HorizonDays        float64 `mapstructure:"horizon_days"`
}

// NarrativeConfig contains LLM gateway settings for decision narration.
type NarrativeConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Endpoint      string  `mapstructure:"endpoint"`
	APIKey        string  `mapstructure:"api_key"`
	Model         string  `mapstructure:"model"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	TimeoutMS     int     `mapstructure:"timeout_ms"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// APIConfig contains HTTP API settings.
type APIConfig struct {
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	ReadTimeout  int      `mapstructure:"read_timeout_ms"`
	WriteTimeout int      `mapstructure:"write_timeout_ms"`
}

// MonitoringConfig contains Prometheus metrics settings.
type MonitoringConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// Load reads configuration from file (optional), environment, and
// defaults, in that order of precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("QUANTFUSE")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file; defaults and environment only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "QuantFuse")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Consensus defaults
	v.SetDefault("consensus.agent_timeout_ms", 2000)
	v.SetDefault("consensus.strong_sell_fraction", 1.0)
	v.SetDefault("consensus.sell_fraction", 0.5)

	// Base agent weights
	v.SetDefault("weights.base.technical", 0.65)
	v.SetDefault("weights.base.fundamental", 0.60)
	v.SetDefault("weights.base.sentiment", 0.55)
	v.SetDefault("weights.base.regime", 0.58)
	v.SetDefault("weights.base.execution", 0.50)
	v.SetDefault("weights.base.onchain", 0.57)
	v.SetDefault("weights.base.narrative", 0.52)
	v.SetDefault("weights.base.carry", 0.56)
	v.SetDefault("weights.base.inventory", 0.55)

	// Risk gate defaults
	v.SetDefault("risk.max_drawdown_limit", 0.20)
	v.SetDefault("risk.drawdown_reject_ratio", 0.8)
	v.SetDefault("risk.max_position_size", 0.10)
	v.SetDefault("risk.volatility_threshold", 0.05)
	v.SetDefault("risk.volatility_throttle", 0.7)
	v.SetDefault("risk.take_profit_ratio", 2.0)

	// Kill switch defaults
	v.SetDefault("kill_switch.var_budget", 0.15)
	v.SetDefault("kill_switch.trigger_threshold", 0.7)
	v.SetDefault("kill_switch.critical_threshold", 0.6)
	v.SetDefault("kill_switch.emergency_threshold", 0.8)
	v.SetDefault("kill_switch.horizon_days", 1)

	// Narrative defaults
	v.SetDefault("narrative.enabled", false)
	v.SetDefault("narrative.endpoint", "http://localhost:8080/v1/chat/completions")
	v.SetDefault("narrative.model", "claude-sonnet-4-20250514")
	v.SetDefault("narrative.temperature", 0.4)
	v.SetDefault("narrative.max_tokens", 300)
	v.SetDefault("narrative.timeout_ms", 10000)
	v.SetDefault("narrative.rate_per_second", 2)
	v.SetDefault("narrative.burst", 4)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8090)
	v.SetDefault("api.cors_origins", []string{"*"})
	v.SetDefault("api.read_timeout_ms", 10000)
	v.SetDefault("api.write_timeout_ms", 10000)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_port", 9091)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Consensus.AgentTimeoutMS <= 0 {
		return fmt.Errorf("consensus.agent_timeout_ms must be positive, got %d", c.Consensus.AgentTimeoutMS)
	}
	if c.Consensus.SellFraction <= 0 || c.Consensus.SellFraction > 1 {
		return fmt.Errorf("consensus.sell_fraction must be in (0, 1], got %f", c.Consensus.SellFraction)
	}
	if c.Consensus.StrongSellFraction <= 0 || c.Consensus.StrongSellFraction > 1 {
		return fmt.Errorf("consensus.strong_sell_fraction must be in (0, 1], got %f", c.Consensus.StrongSellFraction)
	}
	for name, w := range c.Weights.Base {
		if w < 0 || w > 1 {
			return fmt.Errorf("weights.base.%s must be in [0, 1], got %f", name, w)
		}
	}
	if c.Risk.MaxDrawdownLimit <= 0 || c.Risk.MaxDrawdownLimit >= 1 {
		return fmt.Errorf("risk.max_drawdown_limit must be in (0, 1), got %f", c.Risk.MaxDrawdownLimit)
	}
	if c.Risk.MaxPositionSize <= 0 || c.Risk.MaxPositionSize > 1 {
		return fmt.Errorf("risk.max_position_size must be in (0, 1], got %f", c.Risk.MaxPositionSize)
	}
	if c.Risk.VolatilityThrottle <= 0 || c.Risk.VolatilityThrottle > 1 {
		return fmt.Errorf("risk.volatility_throttle must be in (0, 1], got %f", c.Risk.VolatilityThrottle)
	}
	if c.KillSwitch.TriggerThreshold <= 0 || c.KillSwitch.TriggerThreshold > 1 {
		return fmt.Errorf("kill_switch.trigger_threshold must be in (0, 1], got %f", c.KillSwitch.TriggerThreshold)
	}
	if c.KillSwitch.EmergencyThreshold < c.KillSwitch.CriticalThreshold {
		return fmt.Errorf("kill_switch.emergency_threshold (%f) must not be below critical_threshold (%f)",
			c.KillSwitch.EmergencyThreshold, c.KillSwitch.CriticalThreshold)
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be in [1, 65535], got %d", c.API.Port)
	}
	if c.Monitoring.Enabled && (c.Monitoring.MetricsPort < 1 || c.Monitoring.MetricsPort > 65535) {
		return fmt.Errorf("monitoring.metrics_port must be in [1, 65535], got %d", c.Monitoring.MetricsPort)
	}
	return nil
}

// AgentTimeout returns the per-agent analysis deadline.
func (c *ConsensusConfig) AgentTimeout() time.Duration {
	return time.Duration(c.AgentTimeoutMS) * time.Millisecond
}

// NarrativeTimeout returns the gateway call deadline.
func (c *NarrativeConfig) NarrativeTimeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// BaseWeights converts the configured weight map to typed market-facing
// seeds. Unknown keys are passed through; the weight store ignores types
// it never sees.
func (c *WeightsConfig) BaseWeights() map[string]float64 {
	out := make(map[string]float64, len(c.Base))
	for k, v := range c.Base {
		out[k] = v
	}
	return out
}

// RiskTolerance parses a tolerance string, defaulting to moderate.
func RiskTolerance(s string) market.RiskTolerance {
	rt := market.RiskTolerance(s)
	if !rt.Valid() {
		return market.RiskModerate
	}
	return rt
}
