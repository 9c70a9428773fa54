// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"

	"github.com/traksense/hub/api"
	"github.com/traksense/hub/internal/config"
	"github.com/traksense/hub/internal/dashservice"
	"github.com/traksense/hub/internal/database"
	"github.com/traksense/hub/internal/layoutstore"
	"github.com/traksense/hub/internal/monitoring"
	"github.com/traksense/hub/internal/refresh"
	"github.com/traksense/hub/internal/telemetry"
)

// Server represents our HTTP server
type Server struct {
	config      *config.Config
	srv         *http.Server
	dashservice *dashservice.DashService
	coordinator *refresh.Coordinator
	monitoring  *monitoring.Service
	db          database.DB
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config: cfg,
		srv:    srv,
	}
}

// Start begins listening for requests
func (s *Server) Start() error {
	ctx := context.Background()

	// Initialize services
	store := layoutstore.New(ctx, s.initPersistence(ctx))
	s.coordinator = refresh.NewCoordinator(s.buildPolicies(), clock.New())
	s.dashservice = dashservice.New(store, s.initTelemetrySource(), s.coordinator)
	if err := s.dashservice.Validate(); err != nil {
		return err
	}
	s.monitoring = monitoring.NewService()

	// Wire store events into monitoring
	s.setupStoreEventHandlers(store)

	// Setup routes and middleware
	router := api.NewRouter(s.dashservice)
	router.SetHealthCheck(s.handleHealth())
	s.srv.Handler = handlers.RecoveryHandler()(
		handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		)(router))

	// Start background polling
	s.coordinator.Start()

	// Start server
	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.coordinator.Stop()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			nuts.L.Errorf("[Server] Error closing database: %v", err)
		}
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

// initPersistence creates the layout persistence backend. A failed Redis
// connection degrades to in-memory persistence instead of refusing to start:
// the dashboard still works, layouts just do not survive a restart.
func (s *Server) initPersistence(ctx context.Context) layoutstore.Persistence {
	if s.config.Persistence.Backend == "memory" {
		nuts.L.Infof("[Server] Using in-memory layout persistence")
		return layoutstore.NewMemoryPersistence()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", s.config.Redis.Host, s.config.Redis.Port),
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})
	persist, err := layoutstore.NewRedisPersistence(ctx, client)
	if err != nil {
		nuts.L.Warnf("[Server] Redis unavailable, falling back to in-memory layout persistence: %v", err)
		return layoutstore.NewMemoryPersistence()
	}
	nuts.L.Infof("[Server] Using Redis layout persistence at %s:%d", s.config.Redis.Host, s.config.Redis.Port)
	return persist
}

// initTelemetrySource builds the telemetry source selected by the config
func (s *Server) initTelemetrySource() telemetry.Source {
	if s.config.Telemetry.Mode == "timescale" {
		s.db = initTimescaleDB(s.config.Database.TimescaleDB)
		source, err := telemetry.NewTimescaleSource(s.db)
		if err != nil {
			nuts.L.Fatalf("[Server] Failed to initialize Timescale telemetry source: %v", err)
		}
		return source
	}
	return telemetry.NewAPIClient(
		s.config.Telemetry.BaseURL,
		s.config.Telemetry.APIKey,
		s.config.Telemetry.Timeout,
	)
}

// buildPolicies overlays config overrides on the built-in refresh policy table
func (s *Server) buildPolicies() map[refresh.Class]refresh.Policy {
	policies := refresh.DefaultPolicies()
	for name, override := range s.config.Refresh.Policies {
		class := refresh.Class(name)
		policy, ok := policies[class]
		if !ok {
			nuts.L.Warnf("[Server] Ignoring refresh policy override for unknown class %q", name)
			continue
		}
		if override.StaleTTL > 0 {
			policy.StaleTTL = override.StaleTTL
		}
		if override.PollInterval > 0 {
			policy.PollInterval = override.PollInterval
		}
		policies[class] = policy
	}
	return policies
}

func initTimescaleDB(cfg config.PostgresConfig) database.DB {
	wrappedDB, err := database.NewTimescaleDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to TimescaleDB: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping TimescaleDB: %v", err)
	}
	return wrappedDB
}

// handleHealth returns a simple health check handler
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","version":"` + nuts.GetVersion() + `"}`))
	}
}

func (s *Server) setupStoreEventHandlers(store *layoutstore.Store) {
	store.OnEvent(layoutstore.EventLayoutCreated, func(id string) {
		s.monitoring.RecordEvent("layout_created", map[string]string{
			"layout_id": id,
		})
	})

	store.OnEvent(layoutstore.EventLayoutDeleted, func(id string) {
		nuts.L.Infof("[Server] Layout %s deleted", id)
		s.monitoring.RecordEvent("layout_deleted", map[string]string{
			"layout_id": id,
		})
	})

	store.OnEvent(layoutstore.EventWidgetAdded, func(id string) {
		s.monitoring.RecordEvent("widget_added", map[string]string{
			"widget_id": id,
		})
	})

	store.OnEvent(layoutstore.EventWidgetRemoved, func(id string) {
		s.monitoring.RecordEvent("widget_removed", map[string]string{
			"widget_id": id,
		})
	})

	store.OnEvent(layoutstore.EventLayoutsReset, func(id string) {
		nuts.L.Infof("[Server] Layouts reset to default set")
		s.monitoring.RecordEvent("layouts_reset", nil)
	})

	store.OnEvent(layoutstore.EventPersistenceFailed, func(detail string) {
		s.monitoring.RecordEvent("persistence_failure", map[string]string{
			"error": detail,
		})
	})
}
