package handler

import (
	"time"

	"github.com/apex-career/backend/docs"
	"github.com/apex-career/backend/internal/config"
	"github.com/apex-career/backend/internal/metrics"
	"github.com/apex-career/backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps wires the HTTP surface. OIDC and DB may be nil.
type RouterDeps struct {
	App      config.AppConfig
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Auth     *service.AuthService
	Chat     *service.ChatService
	Analysis *service.AnalysisService
	OIDC     OIDCProvider
	DB       Pinger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	docs.SwaggerInfo.Title = deps.App.ProjectName
	docs.SwaggerInfo.Version = deps.App.Version

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	if len(deps.App.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.App.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	health := NewHealthHandler(deps.App, deps.DB)
	r.GET("/", health.Root)
	r.GET("/health", health.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := r.Group(deps.App.APIPrefix)
	api.GET("/openapi.json", OpenAPIDoc)

	authHandler := NewAuthHandler(deps.Auth, deps.OIDC)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/token", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/oidc/login", authHandler.OIDCLogin)
	authGroup.GET("/oidc/callback", authHandler.OIDCCallback)

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.Auth))
	protected.GET("/users/me", authHandler.Me)

	chatHandler := NewChatHandler(deps.Chat)
	protected.POST("/chat/chat", chatHandler.Chat)
	protected.GET("/chat/chats", chatHandler.ListChats)
	protected.GET("/chat/chats/:chat_id", chatHandler.GetChat)
	protected.DELETE("/chat/chats/:chat_id", chatHandler.DeleteChat)
	protected.GET("/chat/chat-history", chatHandler.History)

	analysisHandler := NewAnalysisHandler(deps.Analysis)
	protected.POST("/analysis/analyze-resume", analysisHandler.AnalyzeResume)
	protected.POST("/analysis/skill-gap-analysis", analysisHandler.SkillGap)
	protected.POST("/analysis/roi-calculation", analysisHandler.ROI)

	return r
}
