/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the attendance and payroll server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load configuration (YAML file, .env, ATTENDANCE_* variables, flags)
  3. Initialize SQLite store
  4. Create the first admin account if there are no users
  5. Create API handler and router
  6. Start the payroll scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (default: config/config.yaml, optional)
  -env     .env file (default: .env, optional)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/attendance.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Production
  ATTENDANCE_DEV=false ATTENDANCE_JWT_SECRET=... ./server -config=/etc/attendance.yaml

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", config.DefaultPath, "YAML config file")
	envFile := flag.String("env", config.DefaultEnvFile, ".env file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if err := bootstrapAdmin(context.Background(), store, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}

	// Initialize handler
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	handler := api.NewHandler(store, tokens, cfg.Reports.WorkingDays)
	router := api.NewRouter(handler, cfg.CORS.AllowedOrigins)

	scheduler := api.NewPayrollScheduler(store, handler.Payroll)
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[Server] Starting on http://localhost%s", cfg.Addr())
		log.Printf("[Server] API available at http://localhost%s/api", cfg.Addr())
		if cfg.Server.Dev {
			log.Println("[Server] Development mode: do not expose this instance")
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] Shutting down...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("[Server] Stopped")
}

// bootstrapAdmin creates the configured admin account on an empty users
// table so a fresh install can log in.
func bootstrapAdmin(ctx context.Context, store *sqlite.Store, username, password string) error {
	n, err := store.CountUsers(ctx)
	if err != nil || n > 0 {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := store.SaveUser(ctx, auth.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}); err != nil {
		return err
	}

	log.Printf("[Server] Created admin account %q", username)
	return nil
}
