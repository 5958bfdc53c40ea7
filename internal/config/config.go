package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	baseApiUrl = "https://gigachat.devices.sberbank.ru/api/v1"
	authApiUrl = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
)

const (
	BackendGigaChat = "gigachat"
	BackendGemini   = "gemini"
)

const (
	defaultModel             = "GigaChat"
	defaultGeminiModel       = "gemini-2.5-flash"
	defaultScope             = "GIGACHAT_API_PERS"
	defaultReadyPollInterval = 100 * time.Millisecond
	defaultRotateInterval    = 20 * time.Minute
	defaultLogLevel          = "info"
	defaultLogFile           = "gigachatui.log"
)

type Config struct {
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`

	BaseURL      string        `yaml:"base_url"`
	AuthURL      string        `yaml:"auth_url"`
	Scope        string        `yaml:"scope"`
	ClientID     string        `yaml:"-"`
	ClientSecret string        `yaml:"-"`
	RotateEvery  time.Duration `yaml:"rotate_every"`

	GeminiAPIKey string `yaml:"-"`
	GeminiModel  string `yaml:"gemini_model"`

	ReadyPollInterval time.Duration `yaml:"ready_poll_interval"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

func NewConfig(clientID, clientSecret string) *Config {
	return &Config{
		Backend:           BackendGigaChat,
		Model:             defaultModel,
		BaseURL:           baseApiUrl,
		AuthURL:           authApiUrl,
		Scope:             defaultScope,
		ClientID:          clientID,
		ClientSecret:      clientSecret,
		RotateEvery:       defaultRotateInterval,
		GeminiModel:       defaultGeminiModel,
		ReadyPollInterval: defaultReadyPollInterval,
		LogLevel:          defaultLogLevel,
		LogFile:           defaultLogFile,
	}
}

// Load builds a Config from defaults, an optional YAML file and the
// environment, in that order. Variables from envFile are loaded into the
// environment first; a missing envFile is not an error. The result is not
// validated so callers can apply overrides first.
func Load(envFile, yamlFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg := NewConfig(os.Getenv("CLIENT_ID"), os.Getenv("CLIENT_SECRET"))

	if yamlFile != "" {
		data, err := os.ReadFile(yamlFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", yamlFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", yamlFile, err)
		}
	}

	cfg.Backend = getEnv("CHAT_BACKEND", cfg.Backend)
	cfg.Model = getEnv("GIGACHAT_MODEL", cfg.Model)
	cfg.BaseURL = getEnv("GIGACHAT_BASE_URL", cfg.BaseURL)
	cfg.AuthURL = getEnv("GIGACHAT_AUTH_URL", cfg.AuthURL)
	cfg.Scope = getEnv("GIGACHAT_SCOPE", cfg.Scope)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	return cfg, nil
}

// Validate checks that the selected backend has its credentials
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendGigaChat:
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("CLIENT_ID and CLIENT_SECRET must be set for the %s backend", BackendGigaChat)
		}
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY must be set for the %s backend", BackendGemini)
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
