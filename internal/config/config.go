// Package config loads server settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "AUTOCHORD"

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Analysis  AnalysisConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port        string `validate:"required,numeric"`
	LogLevel    string `validate:"oneof=debug info warn warning error fatal"`
	CORSOrigins string
	MaxUploadMB int `validate:"min=1"`
}

type AuthConfig struct {
	APIKey    string
	JWTSecret string
}

// RedisConfig enables background jobs and rate limiting when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int `validate:"min=0"`
}

type RateLimitConfig struct {
	AnalysisPerMin int `validate:"min=0"` // 0 disables limiting
}

type AnalysisConfig struct {
	DBPath            string `validate:"required"`
	TempDir           string `validate:"required"`
	SampleRate        int    `validate:"min=8000,max=96000"`
	FFmpegPath        string `validate:"required"`
	RecognizerCommand string
	RecognizerArgs    []string
	Style             string
	Notes             string
}

type WorkerConfig struct {
	Concurrency int `validate:"min=1"`
}

func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// Load reads configuration. An explicit path must exist; otherwise
// config.yaml is looked up in "." and "./config" and may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names kept from the original deployment.
	_ = v.BindEnv("auth.api_key", "AUTOCHORD_API_KEY")
	_ = v.BindEnv("server.log_level", "AUTOCHORD_SERVER_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("server.port", "AUTOCHORD_SERVER_PORT", "PORT")
	_ = v.BindEnv("redis.addr", "AUTOCHORD_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "AUTOCHORD_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("auth.jwt_secret", "AUTOCHORD_AUTH_JWT_SECRET", "JWT_SECRET")
	_ = v.BindEnv("analysis.db_path", "AUTOCHORD_ANALYSIS_DB_PATH", "AUTOCHORD_DB_PATH")

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.max_upload_mb", 50)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.analysis_per_min", 30)
	v.SetDefault("analysis.db_path", "autochord.sqlite3")
	v.SetDefault("analysis.temp_dir", "/tmp")
	v.SetDefault("analysis.sample_rate", 22050)
	v.SetDefault("analysis.ffmpeg_path", "ffmpeg")
	v.SetDefault("analysis.recognizer_command", "")
	v.SetDefault("analysis.recognizer_args", []string{})
	v.SetDefault("analysis.style", "Pop")
	v.SetDefault("analysis.notes", "Analysis from live AutoChord service.")
	v.SetDefault("worker.concurrency", 2)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("server.port"),
			LogLevel:    strings.ToLower(v.GetString("server.log_level")),
			CORSOrigins: v.GetString("server.cors_origins"),
			MaxUploadMB: v.GetInt("server.max_upload_mb"),
		},
		Auth: AuthConfig{
			APIKey:    v.GetString("auth.api_key"),
			JWTSecret: v.GetString("auth.jwt_secret"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			AnalysisPerMin: v.GetInt("ratelimit.analysis_per_min"),
		},
		Analysis: AnalysisConfig{
			DBPath:            v.GetString("analysis.db_path"),
			TempDir:           v.GetString("analysis.temp_dir"),
			SampleRate:        v.GetInt("analysis.sample_rate"),
			FFmpegPath:        v.GetString("analysis.ffmpeg_path"),
			RecognizerCommand: v.GetString("analysis.recognizer_command"),
			RecognizerArgs:    v.GetStringSlice("analysis.recognizer_args"),
			Style:             v.GetString("analysis.style"),
			Notes:             v.GetString("analysis.notes"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("worker.concurrency"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
