// Package config loads service settings from an optional YAML file, a .env
// file and environment variables.
//
// The legacy variables PORT, DATABASE_URL, ENABLE_DB and GIN_MODE are still
// honoured; every other key is read from PCR_<SECTION>_<FIELD>, e.g.
// PCR_RISK_SEED or PCR_GATE_MIN_CATEGORIES.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Skufu/postcovid-risk/internal/patient"
	"github.com/Skufu/postcovid-risk/internal/risk"
)

const envPrefix = "PCR"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Registry RegistryConfig `mapstructure:"registry"`
	Gate     GateConfig     `mapstructure:"gate"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	GinMode      string   `mapstructure:"gin_mode"`
	MaxBodyBytes int64    `mapstructure:"max_body_bytes"`
	RateLimit    float64  `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst    int      `mapstructure:"rate_burst"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RiskConfig struct {
	JitterMin             float64   `mapstructure:"jitter_min"`
	JitterMax             float64   `mapstructure:"jitter_max"`
	Floor                 float64   `mapstructure:"floor"`
	Ceiling               float64   `mapstructure:"ceiling"`
	LevelThresholds       []float64 `mapstructure:"level_thresholds"`
	Seed                  int64     `mapstructure:"seed"`
	SynthesizeMissing     bool      `mapstructure:"synthesize_missing"`
	TopN                  int       `mapstructure:"top_n"`
	SignificantPercentage float64   `mapstructure:"significant_percentage"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

type GateConfig struct {
	MinCategories int      `mapstructure:"min_categories"`
	Categories    []string `mapstructure:"categories"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("database.url", "")
	v.SetDefault("database.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	d := risk.DefaultConfig()
	v.SetDefault("risk.jitter_min", d.JitterMin)
	v.SetDefault("risk.jitter_max", d.JitterMax)
	v.SetDefault("risk.floor", d.Floor)
	v.SetDefault("risk.ceiling", d.Ceiling)
	v.SetDefault("risk.level_thresholds", d.Thresholds[:])
	v.SetDefault("risk.seed", 0)
	v.SetDefault("risk.synthesize_missing", true)
	v.SetDefault("risk.top_n", 3)
	v.SetDefault("risk.significant_percentage", 15.0)
	v.SetDefault("registry.path", "")

	cats := make([]string, 0, 6)
	for _, c := range patient.AllCategories() {
		cats = append(cats, string(c))
	}
	v.SetDefault("gate.min_categories", 2)
	v.SetDefault("gate.categories", cats)

	_ = v.BindEnv("server.port", "PCR_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.gin_mode", "PCR_SERVER_GIN_MODE", "GIN_MODE")
	_ = v.BindEnv("database.url", "PCR_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.enabled", "PCR_DATABASE_ENABLED", "ENABLE_DB")
	return v
}

// Load reads .env (if present), the YAML file at path (if non-empty) and
// the environment, then validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Risk.TopN <= 0 {
		return fmt.Errorf("risk.top_n must be positive, got %d", c.Risk.TopN)
	}
	if _, err := c.CalculatorConfig(); err != nil {
		return err
	}
	if _, err := c.GateConfig(); err != nil {
		return err
	}
	return nil
}

// CalculatorConfig converts the risk section into calculator bounds.
func (c *Config) CalculatorConfig() (risk.Config, error) {
	if len(c.Risk.LevelThresholds) != 3 {
		return risk.Config{}, fmt.Errorf("risk.level_thresholds needs exactly 3 values, got %d", len(c.Risk.LevelThresholds))
	}
	rc := risk.Config{
		JitterMin: c.Risk.JitterMin,
		JitterMax: c.Risk.JitterMax,
		Floor:     c.Risk.Floor,
		Ceiling:   c.Risk.Ceiling,
	}
	copy(rc.Thresholds[:], c.Risk.LevelThresholds)
	if err := rc.Validate(); err != nil {
		return risk.Config{}, err
	}
	return rc, nil
}

func (c *Config) GateConfig() (risk.Gate, error) {
	g := risk.Gate{Min: c.Gate.MinCategories}
	for _, name := range c.Gate.Categories {
		cat, err := patient.ParseCategory(strings.TrimSpace(name))
		if err != nil {
			return risk.Gate{}, err
		}
		g.Categories = append(g.Categories, cat)
	}
	if err := g.Validate(); err != nil {
		return risk.Gate{}, err
	}
	return g, nil
}

// LoadRegistry returns the embedded registry unless an external file is
// configured.
func (c *Config) LoadRegistry() (*risk.Registry, error) {
	if c.Registry.Path == "" {
		return risk.DefaultRegistry()
	}
	return risk.LoadRegistryFile(c.Registry.Path)
}
