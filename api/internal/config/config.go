package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LLMConfig struct {
	Default       string `mapstructure:"default"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	GeminiModel   string `mapstructure:"gemini_model"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Retention       time.Duration `mapstructure:"retention"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
}

type TelegramConfig struct {
	Token      string `mapstructure:"token"`
	WebhookURL string `mapstructure:"webhook_url"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// env-переменные из прежнего деплоя (PORT, GEMINI_API_KEY, ...) продолжают работать
var envBindings = map[string][]string{
	"server.port":          {"PORT"},
	"server.mode":          {"GIN_MODE", "SERVER_MODE"},
	"llm.default":          {"LLM_DEFAULT"},
	"llm.gemini_api_key":   {"GEMINI_API_KEY"},
	"llm.gemini_model":     {"GEMINI_MODEL"},
	"llm.openai_api_key":   {"OPENAI_API_KEY"},
	"llm.openai_model":     {"OPENAI_MODEL"},
	"llm.openai_base_url":  {"OPENAI_BASE_URL"},
	"database.url":         {"DATABASE_URL"},
	"redis.addr":           {"REDIS_ADDR"},
	"redis.password":       {"REDIS_PASSWORD"},
	"mqtt.broker":          {"MQTT_BROKER"},
	"mqtt.username":        {"MQTT_USERNAME"},
	"mqtt.password":        {"MQTT_PASSWORD"},
	"mqtt.topic":           {"MQTT_TOPIC"},
	"telegram.token":       {"TELEGRAM_BOT_TOKEN"},
	"telegram.webhook_url": {"WEBHOOK_URL"},
	"catalog.path":         {"CATALOG_PATH"},
}

// Load читает YAML (если файл есть) и переменные окружения поверх него.
// Пустой path означает «только окружение и значения по умолчанию».
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.Port = normalizePort(cfg.Server.Port)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.GeminiAPIKey) == "" && strings.TrimSpace(c.LLM.OpenAIAPIKey) == "" {
		return errors.New("missing required env GEMINI_API_KEY or OPENAI_API_KEY")
	}
	switch strings.ToLower(c.LLM.Default) {
	case "", "gemini", "gpt", "openai":
	default:
		return fmt.Errorf("llm.default %q: use gemini or gpt", c.LLM.Default)
	}
	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be > 0")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 200*time.Second)
	v.SetDefault("server.request_timeout", 180*time.Second)

	v.SetDefault("llm.default", "gemini")
	v.SetDefault("llm.gemini_model", "gemini-2.5-flash")
	v.SetDefault("llm.openai_model", "gpt-4o-mini")
	v.SetDefault("llm.openai_base_url", "https://api.openai.com/v1")

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp", "image/gif"})

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.retention", 30*24*time.Hour)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("mqtt.client_id", "rock-id")
	v.SetDefault("mqtt.topic", "rock-id/identifications")
}

// normalizePort принимает "8080", ":8080" и "0.0.0.0:8080".
func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ":8000"
	}
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}
