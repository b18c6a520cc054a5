package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/simatecve/contact-pulse-engine-sub000/internal/api/handler"
	"github.com/simatecve/contact-pulse-engine-sub000/internal/api/middleware"
)

type Options struct {
	Env               string
	AuthSecret        string
	ConnectionHandler *handler.ConnectionHandler
	ProxyHandler      *handler.ProxyHandler
	EndpointHandler   *handler.EndpointHandler
	EventHandler      *handler.EventHandler
	AuthHandler       *handler.AuthHandler
	HealthHandler     *handler.HealthHandler
	RateLimit         middleware.RateLimitOption
	IPRateLimit       middleware.IPRateLimitOption
}

func NewRouter(opts Options) *gin.Engine {
	if opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}))

	api := router.Group("/api")

	opts.HealthHandler.Register(api)

	// rutas públicas con límite por IP (login y registro)
	public := api.Group("")
	public.Use(middleware.IPRateLimit(opts.IPRateLimit))
	opts.AuthHandler.Register(public)

	protected := api.Group("")
	protected.Use(middleware.RateLimit(opts.RateLimit))
	protected.Use(middleware.Auth(opts.AuthSecret))

	opts.ConnectionHandler.Register(protected)
	opts.ProxyHandler.Register(protected)
	if opts.EventHandler != nil {
		opts.EventHandler.Register(protected)
	}

	admin := protected.Group("")
	admin.Use(middleware.RequireAdmin())
	opts.EndpointHandler.Register(admin)

	return router
}
