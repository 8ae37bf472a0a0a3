package server

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/seslichat/sesli/internal/config"
	"github.com/seslichat/sesli/internal/domains/chat"
	"github.com/seslichat/sesli/internal/domains/history"
	"github.com/seslichat/sesli/internal/handlers"
	"github.com/seslichat/sesli/internal/models"
	"github.com/seslichat/sesli/pkg/Logger"
)

type Dependencies struct {
	ChatService    chat.Service
	HistoryService history.Service
	Resolver       *chat.InputResolver
	Registry       *models.Registry
	Logger         *Logger.Logger
	Configs        *config.Settings
}

func NewServerDependencies(
	chatService chat.Service,
	historyService history.Service,
	resolver *chat.InputResolver,
	registry *models.Registry,
	logger *Logger.Logger,
	configs *config.Settings,
) Dependencies {
	return Dependencies{
		ChatService:    chatService,
		HistoryService: historyService,
		Resolver:       resolver,
		Registry:       registry,
		Logger:         logger,
		Configs:        configs,
	}
}

func InitializeRoutes(r *gin.Engine, dep Dependencies) {
	r.Use(handlers.ErrorHandlerMiddleware(dep.Logger))
	r.Use(handlers.RequestLoggerMiddleware(dep.Logger))
	r.Use(handlers.CORSMiddleware())
	r.Use(handlers.SessionMiddleware())

	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"status": "ok"}) })

	chatHandler := handlers.NewChatHandler(
		dep.ChatService, dep.HistoryService, dep.Resolver, dep.Registry, dep.Logger,
	)
	historyHandler := handlers.NewHistoryHandler(dep.HistoryService, dep.Registry, dep.Logger)

	api := r.Group("/api")
	{
		api.POST("/chat", chatHandler.HandleChat)
		api.GET("/history/:channelID", historyHandler.GetHistory)
		api.DELETE("/history/delete-all", historyHandler.DeleteAllHistory)
		api.DELETE("/history/:channelID", historyHandler.DeleteHistory)
		api.GET("/data", historyHandler.GetInitData)
	}

	staticDir := dep.Configs.StaticDir
	r.Static("/static", staticDir)
	index := func(c *gin.Context) {
		c.File(filepath.Join(staticDir, "index.html"))
	}
	r.GET("/", index)
	r.GET("/c/:id", index)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.File(filepath.Join(staticDir, "favicon.ico"))
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}
