package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`

	// Database Configuration
	DatabaseDSN     string `mapstructure:"DATABASE_DSN" validate:"required"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES"`
	MigrateOnStart  bool   `mapstructure:"MIGRATE_ON_START"`

	// Worker pool
	Workers                  int `mapstructure:"WORKERS" validate:"min=1,max=64"`
	RecoverStuckAfterMinutes int `mapstructure:"RECOVER_STUCK_AFTER_MINUTES" validate:"min=1"`
	FetchMaxRetries          int `mapstructure:"FETCH_MAX_RETRIES" validate:"min=0"`
	TranscribeMaxRetries     int `mapstructure:"TRANSCRIBE_MAX_RETRIES" validate:"min=0"`
	ExtractMaxRetries        int `mapstructure:"EXTRACT_MAX_RETRIES" validate:"min=0"`

	// Media cache and external tools
	StorageDir   string `mapstructure:"STORAGE_DIR" validate:"required"`
	YtdlpPath    string `mapstructure:"YTDLP_PATH"`
	YtdlpArgs    string `mapstructure:"YTDLP_ARGS"`
	YtdlpCookies string `mapstructure:"YTDLP_COOKIES"`
	FFmpegPath   string `mapstructure:"FFMPEG_PATH"`

	// Speech-to-text service
	WhisperURL       string `mapstructure:"WHISPER_URL" validate:"required,url"`
	WhisperKey       string `mapstructure:"WHISPER_KEY"`
	WhisperModel     string `mapstructure:"WHISPER_MODEL" validate:"required"`
	WhisperLanguage  string `mapstructure:"WHISPER_LANGUAGE" validate:"required,bcp47_language_tag"`
	WhisperMaxUpload string `mapstructure:"WHISPER_MAX_UPLOAD"`

	// Completion service
	CompletionProtocol    string `mapstructure:"COMPLETION_PROTOCOL" validate:"oneof=chat generate chat-tools generate-tools"`
	CompletionURL         string `mapstructure:"COMPLETION_URL" validate:"omitempty,url"`
	CompletionKey         string `mapstructure:"COMPLETION_KEY"`
	CompletionModel       string `mapstructure:"COMPLETION_MODEL" validate:"required"`
	PromptTemplatePath    string `mapstructure:"PROMPT_TEMPLATE_PATH"`
	ExtractReplaceRecipes bool   `mapstructure:"EXTRACT_REPLACE_RECIPES"`

	HTTPTimeoutSeconds int `mapstructure:"HTTP_TIMEOUT_SECONDS" validate:"min=1"`
}

// HTTPTimeout is the per-request timeout shared by the outbound HTTP clients.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// WhisperMaxUploadBytes parses WHISPER_MAX_UPLOAD ("25MB", "512 KiB").
// Zero means no limit.
func (c Config) WhisperMaxUploadBytes() (int64, error) {
	v := strings.TrimSpace(c.WhisperMaxUpload)
	if v == "" || v == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, fmt.Errorf("parse WHISPER_MAX_UPLOAD: %w", err)
	}
	return int64(n), nil
}

// YtdlpExtraArgs splits YTDLP_ARGS on whitespace.
func (c Config) YtdlpExtraArgs() []string {
	return strings.Fields(c.YtdlpArgs)
}

// LogValue keeps bearer keys and the DSN out of the logs.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("webserver_port", c.WebServerPort),
		slog.Int("database_retries", c.DatabaseRetries),
		slog.Bool("migrate_on_start", c.MigrateOnStart),
		slog.Int("workers", c.Workers),
		slog.String("storage_dir", c.StorageDir),
		slog.String("ytdlp_path", c.YtdlpPath),
		slog.String("ffmpeg_path", c.FFmpegPath),
		slog.String("whisper_url", c.WhisperURL),
		slog.String("whisper_model", c.WhisperModel),
		slog.String("whisper_language", c.WhisperLanguage),
		slog.String("completion_protocol", c.CompletionProtocol),
		slog.String("completion_url", c.CompletionURL),
		slog.String("completion_model", c.CompletionModel),
		slog.Int("fetch_max_retries", c.FetchMaxRetries),
		slog.Int("transcribe_max_retries", c.TranscribeMaxRetries),
		slog.Int("extract_max_retries", c.ExtractMaxRetries),
		slog.Bool("extract_replace_recipes", c.ExtractReplaceRecipes),
	)
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	typ := reflect.TypeOf(c)
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("mapstructure"); tag != "" {
			_ = viper.BindEnv(tag)
		}
	}
}

func setDefaults() {
	viper.SetDefault("WEBSERVER_PORT", 5005)
	viper.SetDefault("DATABASE_RETRIES", 10)
	viper.SetDefault("MIGRATE_ON_START", true)
	viper.SetDefault("WORKERS", 2)
	viper.SetDefault("RECOVER_STUCK_AFTER_MINUTES", 30)
	viper.SetDefault("FETCH_MAX_RETRIES", 3)
	viper.SetDefault("TRANSCRIBE_MAX_RETRIES", 3)
	viper.SetDefault("EXTRACT_MAX_RETRIES", 0)
	viper.SetDefault("STORAGE_DIR", "./reels")
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("FFMPEG_PATH", "ffmpeg")
	viper.SetDefault("WHISPER_URL", "http://127.0.0.1:8080/inference")
	viper.SetDefault("WHISPER_KEY", "local")
	viper.SetDefault("WHISPER_MODEL", "whisper-1")
	viper.SetDefault("WHISPER_LANGUAGE", "en")
	viper.SetDefault("WHISPER_MAX_UPLOAD", "25MB")
	viper.SetDefault("COMPLETION_PROTOCOL", "chat")
	viper.SetDefault("COMPLETION_KEY", "ollama")
	viper.SetDefault("COMPLETION_MODEL", "llama2")
	viper.SetDefault("EXTRACT_REPLACE_RECIPES", true)
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 300)
}

func LoadConfig(ctx context.Context) (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded .env file")
	}

	bindEnv(Config{})
	viper.AutomaticEnv()
	setDefaults()

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if _, err := cfg.WhisperMaxUploadBytes(); err != nil {
		return nil, err
	}

	slog.Info("Loaded configuration", "config", cfg)
	return &cfg, nil
}
