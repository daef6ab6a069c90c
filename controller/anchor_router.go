package controller

import (
	"net/http"

	"meta-anchor/controller/handler"
	"meta-anchor/controller/respond"
	anchorDocs "meta-anchor/docs/anchor"
	"meta-anchor/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Services dependencies of the HTTP surface
type Services struct {
	Anchor handler.AnchorService
	Users  handler.UserService
	Tokens handler.TokenService
	Health handler.HealthChecker
}

// RouterConfig HTTP surface settings
type RouterConfig struct {
	SwaggerHost    string
	CorsOrigins    []string
	RateLimit      int // requests per minute per client, 0 = unlimited
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler // nil = no /metrics route
}

// SetupAnchorRouter setup anchor service router
func SetupAnchorRouter(svc Services, cfg RouterConfig) *gin.Engine {
	// Set Swagger host from config
	if cfg.SwaggerHost != "" {
		anchorDocs.SwaggerInfoanchor.Host = cfg.SwaggerHost
	}

	// Create Gin engine
	r := gin.Default()

	origins := cfg.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Content-Encoding", "Accept-Encoding", "Authorization", "Accept", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * 3600, // 12 hours
	}))

	// Add timing and metrics middleware
	r.Use(respond.TimingMiddleware())
	r.Use(respond.MetricsMiddleware(cfg.Metrics))

	anchorHandler := handler.NewAnchorHandler(svc.Anchor)
	tokenHandler := handler.NewTokenHandler(svc.Users, svc.Tokens)
	healthHandler := handler.NewHealthHandler(svc.Health)

	limiter := respond.NewRateLimiter(cfg.RateLimit)
	register := func(g *gin.RouterGroup) {
		g.POST("/submit", limiter.Middleware(), anchorHandler.Submit)
		g.GET("/retrieve/:hash", anchorHandler.Retrieve)
		g.GET("/verify/:hash", anchorHandler.Verify)

		g.POST("/register", limiter.Middleware(), tokenHandler.Register)
		g.GET("/balance/:wallet", tokenHandler.GetBalance)
		g.GET("/total-supply", tokenHandler.GetTotalSupply)
		g.GET("/transactions/:wallet", tokenHandler.GetTransactions)
		g.POST("/burn", limiter.Middleware(), tokenHandler.Burn)

		g.GET("/health", healthHandler.Health)
	}

	// API v1 route group
	register(r.Group("/api/v1"))

	// Legacy root paths, kept for existing clients
	register(r.Group(""))

	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.InstanceName("anchor")))

	return r
}
