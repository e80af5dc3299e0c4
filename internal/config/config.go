package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/taskplan/internal/oracle"
	"github.com/sandeepkv93/taskplan/internal/scheduler"
)

// DefaultModels is the oracle candidate list, tried in this order.
var DefaultModels = []string{"gemini-flash-latest", "gemini-2.5-flash", "gemini-flash-lite-latest"}

type OracleConfig struct {
	Disabled       bool     `yaml:"disabled"`
	Provider       string   `yaml:"provider"`
	Models         []string `yaml:"models"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	OpenAIBaseURL  string   `yaml:"openai_base_url,omitempty"`

	// keys are read from the environment only
	GeminiAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`
}

type Config struct {
	DBPath               string       `yaml:"db_path"`
	Owner                string       `yaml:"owner"`
	DefaultTaskMinutes   int          `yaml:"default_task_minutes"`
	MaxContinuousMinutes int          `yaml:"max_continuous_minutes"`
	BreakMinutes         int          `yaml:"break_minutes"`
	SlotMinutes          int          `yaml:"slot_minutes"`
	Timezone             string       `yaml:"timezone"`
	LogLevel             string       `yaml:"log_level"`
	Oracle               OracleConfig `yaml:"oracle"`
}

func Default() Config {
	return Config{
		DBPath:               "taskplan.db",
		Owner:                "default",
		DefaultTaskMinutes:   60,
		MaxContinuousMinutes: 90,
		BreakMinutes:         10,
		SlotMinutes:          15,
		Timezone:             "UTC",
		LogLevel:             "info",
		Oracle: OracleConfig{
			Provider:       oracle.ProviderGemini,
			Models:         append([]string(nil), DefaultModels...),
			TimeoutSeconds: 60,
		},
	}
}

// Load applies the YAML file at path (if any) and then the environment on
// top of the defaults.
func Load(path string) (Config, error) {
	cfg, err := LoadFile(Default(), path)
	if err != nil {
		return Config{}, err
	}
	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto base. An empty path or a
// missing file leaves base untouched.
func LoadFile(base Config, path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func FromEnv(base Config) Config {
	cfg := base
	if v := getEnvString("TASKPLAN_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getEnvString("TASKPLAN_OWNER"); v != "" {
		cfg.Owner = v
	}
	if v, ok := getEnvInt("TASKPLAN_DEFAULT_TASK_MINUTES"); ok && v > 0 {
		cfg.DefaultTaskMinutes = v
	}
	if v, ok := getEnvInt("TASKPLAN_MAX_CONTINUOUS_MINUTES"); ok && v > 0 {
		cfg.MaxContinuousMinutes = v
	}
	if v, ok := getEnvInt("TASKPLAN_BREAK_MINUTES"); ok && v >= 0 {
		cfg.BreakMinutes = v
	}
	if v, ok := getEnvInt("TASKPLAN_SLOT_MINUTES"); ok && v > 0 {
		cfg.SlotMinutes = v
	}
	if v := getEnvString("TASKPLAN_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := getEnvString("TASKPLAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnvString("TASKPLAN_ORACLE_PROVIDER"); v != "" {
		cfg.Oracle.Provider = strings.ToLower(v)
	}
	if v := getEnvString("TASKPLAN_ORACLE_MODELS"); v != "" {
		cfg.Oracle.Models = splitList(v)
	}
	if v, ok := getEnvInt("TASKPLAN_ORACLE_TIMEOUT_SECONDS"); ok && v > 0 {
		cfg.Oracle.TimeoutSeconds = v
	}
	if v, ok := getEnvBool("TASKPLAN_ORACLE_DISABLED"); ok {
		cfg.Oracle.Disabled = v
	}
	if v := getEnvString("GEMINI_API_KEY"); v != "" {
		cfg.Oracle.GeminiAPIKey = v
	}
	if v := getEnvString("OPENAI_API_KEY"); v != "" {
		cfg.Oracle.OpenAIAPIKey = v
	}
	if v := getEnvString("OPENAI_BASE_URL"); v != "" {
		cfg.Oracle.OpenAIBaseURL = v
	}
	return cfg
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return errors.New("config: db_path is required")
	}
	if strings.TrimSpace(c.Owner) == "" {
		return errors.New("config: owner is required")
	}
	if c.DefaultTaskMinutes <= 0 || c.MaxContinuousMinutes <= 0 || c.SlotMinutes <= 0 || c.BreakMinutes < 0 {
		return fmt.Errorf("config: durations must be positive: task=%d max=%d slot=%d break=%d",
			c.DefaultTaskMinutes, c.MaxContinuousMinutes, c.SlotMinutes, c.BreakMinutes)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	switch c.Oracle.Provider {
	case oracle.ProviderGemini, oracle.ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown oracle provider %q", c.Oracle.Provider)
	}
	return nil
}

func (c Config) Rules() scheduler.Rules {
	return scheduler.Rules{
		DefaultDuration: time.Duration(c.DefaultTaskMinutes) * time.Minute,
		MaxContinuous:   time.Duration(c.MaxContinuousMinutes) * time.Minute,
		Break:           time.Duration(c.BreakMinutes) * time.Minute,
	}
}

// OracleConfigs lists the configurations to try, or none when the oracle
// is switched off.
func (c Config) OracleConfigs() []oracle.Config {
	if c.Oracle.Disabled {
		return nil
	}
	out := make([]oracle.Config, 0, len(c.Oracle.Models))
	for _, m := range c.Oracle.Models {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, oracle.Config{Provider: c.Oracle.Provider, Model: m})
		}
	}
	return out
}

func (c Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvString(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
