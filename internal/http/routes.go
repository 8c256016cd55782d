package http

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/agorhour/agorhour/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, env *Env) {

	// --- Middleware ---
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*" // Default to allow all for local dev
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "x-agorhour-secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// --- Rate Limiter Setup ---
	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			limiter.mu.Lock()
			for ip, v := range limiter.visitors {
				// A full token bucket means the visitor has been idle long
				// enough to forget about.
				if v.Tokens() >= float64(limiter.burst) {
					delete(limiter.visitors, ip)
				}
			}
			limiter.mu.Unlock()
		}
	}()

	// --- API Routes ---
	api := router.Group("/api")
	{
		api.POST("/session", env.CreateSession)
		api.GET("/hour/current", env.CurrentHour)
		api.POST("/hour/answer", RateLimitMiddleware(limiter), env.PostAnswer)
		api.GET("/hour/top", env.TopAnswer)
		api.POST("/answer/react", env.React)
		api.POST("/cron/hourly", CronAuthMiddleware(), env.CronHourly)
	}

	// --- WebSocket Route ---
	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(env.Hub, c.Writer, c.Request)
	})

	// --- Serve Frontend ---
	// This MUST come AFTER the API routes.
	router.StaticFile("/", "./public/index.html")
	router.StaticFile("/sw.js", "./public/sw.js")
	router.StaticFile("/manifest.webmanifest", "./public/manifest.webmanifest")
}
