package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application agent.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Profile   ProfileConfig   `mapstructure:"profile"`
	Search    SearchConfig    `mapstructure:"search"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// LLMConfig selects and configures the language-inference provider.
// Type "ollama" targets a locally hosted model; "openai" targets the
// hosted API. An empty type disables inference and every call site falls
// back to heuristics.
type LLMConfig struct {
	Type        string        `mapstructure:"type"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// BrowserConfig contains browser session settings. UserDataDir points at a
// long-lived profile directory so login state survives restarts.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	UserDataDir       string        `mapstructure:"user_data_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
}

// ProfileConfig is the candidate answer profile: static hints read by the
// flow drivers and the field intent classifier. Immutable after load.
type ProfileConfig struct {
	FullName          string `mapstructure:"full_name"`
	Email             string `mapstructure:"email"`
	Phone             string `mapstructure:"phone"`
	Location          string `mapstructure:"location"`
	LinkedInURL       string `mapstructure:"linkedin_url"`
	PortfolioURL      string `mapstructure:"portfolio_url"`
	VisaStatus        string `mapstructure:"visa_status"`
	NeedsSponsorship  bool   `mapstructure:"needs_sponsorship"`
	WillingToRelocate bool   `mapstructure:"willing_to_relocate"`
	YearsExperience   string `mapstructure:"years_experience"`
	NoticePeriod      string `mapstructure:"notice_period"`
	ResumePath        string `mapstructure:"resume_path"`
}

// SearchConfig drives one search-and-apply session.
type SearchConfig struct {
	Terms           []string `mapstructure:"terms"`
	Location        string   `mapstructure:"location"`
	BoardURL        string   `mapstructure:"board_url"`
	Board           string   `mapstructure:"board"`
	MaxApplications int      `mapstructure:"max_applications"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("jobagent_config")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("JOBAGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Config file is optional; defaults plus env cover a bare run.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	overrideFromEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("general.debug", false)
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")

	viper.SetDefault("llm.type", "ollama")
	viper.SetDefault("llm.base_url", "http://localhost:11434")
	viper.SetDefault("llm.model", "llama3.1")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 512)
	viper.SetDefault("llm.timeout", "60s")

	viper.SetDefault("browser.headless", false)
	viper.SetDefault("browser.user_data_dir", "./data/browser-profile")
	viper.SetDefault("browser.navigation_timeout", "30s")
	viper.SetDefault("browser.action_timeout", "8s")
	viper.SetDefault("browser.settle_delay", "2s")

	viper.SetDefault("search.board", "generic")
	viper.SetDefault("search.max_applications", 5)

	viper.SetDefault("storage.sqlite_path", "./data/jobagent.db")

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.metrics_port", 9090)
}

// overrideFromEnv overrides configuration with environment variables for
// sensitive or deploy-specific values.
func overrideFromEnv() {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		viper.Set("llm.api_key", apiKey)
	}
	if base := os.Getenv("OLLAMA_HOST"); base != "" {
		viper.Set("llm.base_url", base)
	}
	if model := os.Getenv("JOBAGENT_MODEL"); model != "" {
		viper.Set("llm.model", model)
	}
	if resume := os.Getenv("RESUME_FILE_PATH"); resume != "" {
		viper.Set("profile.resume_path", resume)
	}
	if dir := os.Getenv("BROWSER_PROFILE_DIR"); dir != "" {
		viper.Set("browser.user_data_dir", dir)
	}
	if max := os.Getenv("MAX_APPLICATIONS"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			viper.Set("search.max_applications", n)
		}
	}
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	switch config.LLM.Type {
	case "", "ollama", "openai":
	default:
		return fmt.Errorf("unsupported llm type %q", config.LLM.Type)
	}
	if config.LLM.Type == "openai" && config.LLM.APIKey == "" {
		return fmt.Errorf("llm type openai requires an api key")
	}
	if config.Search.MaxApplications <= 0 {
		return fmt.Errorf("search.max_applications must be positive")
	}
	return nil
}
