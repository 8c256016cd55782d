package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/agorhour/agorhour/internal/db"
	"github.com/agorhour/agorhour/internal/hour"
	routes "github.com/agorhour/agorhour/internal/http"
	"github.com/agorhour/agorhour/internal/models"
	"github.com/agorhour/agorhour/internal/question"
	"github.com/agorhour/agorhour/internal/store"
	"github.com/agorhour/agorhour/internal/ws"
)

func main() {
	// Load .env first so everything below sees the same environment,
	// whether it came from a file or was set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	// 1. Database
	database, err := db.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 2. Migrations
	log.Println("Running database migrations...")
	if err := database.AutoMigrate(
		&models.HourQuestion{},
		&models.AnonSession{},
		&models.Answer{},
		&models.Reaction{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete.")

	// 3. WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// 4. Question generator and hour lifecycle. The generator degrades to
	// the static table when OPENAI_API_KEY is unset.
	clock := clockwork.NewRealClock()
	gen := question.New(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_MODEL"))
	hours := hour.NewManager(database, gen, clock, hub)

	lifecycleCtx, stopLifecycle := context.WithCancel(context.Background())
	go hours.Run(lifecycleCtx)

	// 5. Display timezone for the countdown (hour buckets stay UTC).
	loc := time.UTC
	if tz := os.Getenv("TZ"); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			log.Printf("Invalid TZ %q, falling back to UTC", tz)
		}
	}

	// 6. Router
	router := gin.New()
	routes.SetupRoutes(router, &routes.Env{
		Store: store.New(database),
		Hours: hours,
		Hub:   hub,
		Clock: clock,
		Loc:   loc,
	})

	// 7. Start server with graceful shutdown
	host := os.Getenv("HOST")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    host + ":" + port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("AgorHour listening on %s:%s", host, port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")
	stopLifecycle()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
