package app

import (
	"path/filepath"
	"time"

	"github.com/go-redis/redis"
	"github.com/seslichat/sesli/internal/config"
	"github.com/seslichat/sesli/internal/domains/chat"
	"github.com/seslichat/sesli/internal/domains/history"
	"github.com/seslichat/sesli/internal/models"
	historyrepo "github.com/seslichat/sesli/internal/repository/history"
	"github.com/seslichat/sesli/internal/server"
	"github.com/seslichat/sesli/pkg/Logger"
	llm "github.com/seslichat/sesli/pkg/llm/ollama"
	"github.com/seslichat/sesli/pkg/speech/langid"
	"github.com/seslichat/sesli/pkg/speech/stt"
	"github.com/seslichat/sesli/pkg/speech/tts"
	"gorm.io/gorm"
)

// App holds the wired application.
type App struct {
	Config *config.Settings
	Logger *Logger.Logger
	DB     *gorm.DB
	RC     *redis.Client

	Registry       *models.Registry
	HistoryRepo    history.Repository
	HistoryService history.Service
	ChatService    chat.Service
	ServerDeps     server.Dependencies
}

// NewApp creates the application with all dependencies properly wired.
func NewApp(cfg *config.Settings, logger *Logger.Logger, db *gorm.DB, rc *redis.Client) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		RC:     rc,
	}
	if err := a.setupDependencies(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) setupDependencies() error {
	registry, err := models.NewRegistry(a.Config.Ollama.Host, a.Logger.Named("models"))
	if err != nil {
		return err
	}
	a.Registry = registry

	cacheTTL := time.Duration(a.Config.Redis.HistoryTTLMins) * time.Minute
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	a.HistoryRepo = historyrepo.NewGormHistoryRepo(a.DB)
	a.HistoryService = history.New(a.HistoryRepo, a.RC, a.Config.Chat, cacheTTL, a.Logger.Named("history"))

	llmClient := llm.New(a.Config.Ollama.Host, a.Config.Ollama.StreamTimeout(), a.Logger.Named("llm"))
	ttsClient := tts.New(
		a.Config.Speech.TTSURL,
		filepath.Join(a.Config.StaticDir, "audio"),
		"/static/audio",
		a.Config.Speech.TTSTimeout(),
		a.Logger.Named("tts"),
	)
	sttClient := stt.New(
		a.Config.Speech.WhisperURL,
		a.Config.Speech.Language,
		a.Config.Speech.FfmpegPath,
		a.Logger.Named("stt"),
	)

	a.ChatService = chat.New(
		llmClient,
		ttsClient,
		langid.Detect,
		a.HistoryService,
		a.Logger.Named("chat"),
	)

	a.ServerDeps = server.NewServerDependencies(
		a.ChatService,
		a.HistoryService,
		chat.NewInputResolver(sttClient, a.Logger.Named("resolver")),
		a.Registry,
		a.Logger,
		a.Config,
	)
	return nil
}

// GetServerDependencies returns the server dependencies.
func (a *App) GetServerDependencies() server.Dependencies {
	return a.ServerDeps
}
