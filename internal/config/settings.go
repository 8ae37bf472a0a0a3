package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DBConfig struct {
	// "sqlite" (default) or "mysql"
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"` // sqlite file
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (d DBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Name)
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	Pass string `mapstructure:"pass"`
	// cached history entries expire after this many minutes
	HistoryTTLMins int64 `mapstructure:"history_ttl_mins"`
}

type OllamaConfig struct {
	Host string `mapstructure:"host"`
	// how often the model registry re-reads /api/tags
	RefreshMins int64 `mapstructure:"refresh_mins"`
	// upper bound on one streaming chat call
	StreamTimeoutSecs int64 `mapstructure:"stream_timeout_secs"`
}

func (o OllamaConfig) StreamTimeout() time.Duration {
	if o.StreamTimeoutSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(o.StreamTimeoutSecs) * time.Second
}

func (o OllamaConfig) RefreshInterval() time.Duration {
	if o.RefreshMins <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(o.RefreshMins) * time.Minute
}

type SpeechConfig struct {
	WhisperURL string `mapstructure:"whisper_url"`
	TTSURL     string `mapstructure:"tts_url"`
	// language hint passed to the recognizer
	Language string `mapstructure:"language"`
	// upper bound on one synthesis call
	TTSTimeoutSecs int64 `mapstructure:"tts_timeout_secs"`
	// transcode uploads to 16k mono wav before recognition
	FfmpegPath string `mapstructure:"ffmpeg_path"`
}

func (s SpeechConfig) TTSTimeout() time.Duration {
	if s.TTSTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TTSTimeoutSecs) * time.Second
}

type ChatConfig struct {
	MaxHistoryTurns   int `mapstructure:"max_history_turns"`
	MaxContextChars   int `mapstructure:"max_context_chars"`
	ChannelTitleChars int `mapstructure:"channel_title_chars"`
}

type Settings struct {
	Server    ServerConfig `mapstructure:"server"`
	DB        DBConfig     `mapstructure:"database"`
	Redis     RedisConfig  `mapstructure:"redis"`
	Ollama    OllamaConfig `mapstructure:"ollama"`
	Speech    SpeechConfig `mapstructure:"speech"`
	Chat      ChatConfig   `mapstructure:"chat"`
	StaticDir string       `mapstructure:"static_dir"`
	Env       string       `mapstructure:"env"`
	Debug     bool         `mapstructure:"debug" default:"false"`
}

func Load() (*Settings, error) {
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "databases/chat_storage.db")
	viper.SetDefault("ollama.host", "http://localhost:11434")
	viper.SetDefault("chat.max_history_turns", 10000)
	viper.SetDefault("chat.max_context_chars", 3000)
	viper.SetDefault("chat.channel_title_chars", 60)
	viper.SetDefault("static_dir", "static")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &settings, nil
}

func genEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
