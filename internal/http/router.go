package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fitcoach-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fitcoach-backend/internal/http/middleware"
	"github.com/yungbote/fitcoach-backend/internal/observability"
	"github.com/yungbote/fitcoach-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	UserHandler       *httpH.UserHandler
	OnboardingHandler *httpH.OnboardingHandler
	ProfileHandler    *httpH.ProfileHandler
	ChatHandler       *httpH.ChatHandler
	VoiceHandler      *httpH.VoiceHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.AllowedOrigins...))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(func(w http.ResponseWriter, req *http.Request) {
			cfg.Metrics.WriteHTTP(w, req)
		}))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// User (Me)
	if cfg.UserHandler != nil {
		api.GET("/me", cfg.UserHandler.GetMe)
		api.PATCH("/me/name", cfg.UserHandler.ChangeName)
		api.DELETE("/me", cfg.UserHandler.Delete)
	}

	// Onboarding
	if h := cfg.OnboardingHandler; h != nil {
		api.POST("/onboarding/start", h.Start)
		api.GET("/onboarding/state", h.GetState)
		api.POST("/onboarding/step", h.SaveStep)
		api.GET("/onboarding/progress", h.GetProgress)
		api.POST("/onboarding/complete", h.Complete)
		api.POST("/onboarding/regress", h.Regress)
		api.PUT("/onboarding/agent-context/:agent", h.SaveAgentContext)
		api.GET("/onboarding/verify", h.Verify)
	}

	// Profile
	if h := cfg.ProfileHandler; h != nil {
		api.GET("/profile", h.Get)
		api.PATCH("/profile", h.Update)
		api.POST("/profile/lock", h.Lock)
		api.POST("/profile/unlock", h.Unlock)
		api.GET("/profile/versions", h.ListVersions)
		api.GET("/profile/versions/:number", h.GetVersion)
	}

	// Chat
	if h := cfg.ChatHandler; h != nil {
		api.POST("/chat", h.Query)
		api.POST("/chat/stream", h.Stream)
	}

	// Voice
	if h := cfg.VoiceHandler; h != nil {
		api.POST("/voice/sessions", h.Open)
		api.POST("/voice/sessions/:id/query", h.Query)
		api.POST("/voice/sessions/:id/stream", h.Stream)
		api.DELETE("/voice/sessions/:id", h.Close)
	}

	return r
}
