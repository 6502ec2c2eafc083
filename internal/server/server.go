package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"Mansoor88-6/process-tracker/internal/auth"
	"Mansoor88-6/process-tracker/internal/config"
	"Mansoor88-6/process-tracker/internal/database"
	"Mansoor88-6/process-tracker/internal/handler"
	"Mansoor88-6/process-tracker/internal/repository"
	"Mansoor88-6/process-tracker/internal/router"
	"Mansoor88-6/process-tracker/internal/service"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server is the backend HTTP API with its database and background cache.
type Server struct {
	http   *http.Server
	db     *database.DB
	cache  *service.ProcessCache
	logger *zap.Logger
}

// New opens the server database and assembles repositories, services and routes.
func New(cfg config.ServerConfig, logger *zap.Logger) (*Server, error) {
	db, err := database.New(cfg.DatabasePath, database.ServerSchema, logger)
	if err != nil {
		return nil, err
	}

	h, cache := NewHandler(db.DB, cfg, logger)
	return &Server{
		http: &http.Server{
			Addr:         cfg.Address,
			Handler:      h,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		db:     db,
		cache:  cache,
		logger: logger,
	}, nil
}

// NewHandler wires the HTTP API on top of an open server database. The returned cache
// must be stopped by the caller.
func NewHandler(db *sql.DB, cfg config.ServerConfig, logger *zap.Logger) (http.Handler, *service.ProcessCache) {
	users := repository.NewUserRepository(db)
	processes := repository.NewProcessRepository(db)
	objects := repository.NewObjectRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	records := repository.NewRecordRepository(db)
	timings := repository.NewStepTimingRepository(db)
	photos := repository.NewPhotoRepository(db)
	analytics := repository.NewAnalyticsRepository(db)

	issuer := auth.NewIssuer(auth.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    time.Duration(cfg.TokenTTL) * time.Second,
	})
	cache := service.NewProcessCache(time.Duration(cfg.ProcessCacheTTL)*time.Second, logger)

	authService := service.NewAuthService(users, issuer, logger)
	processService := service.NewProcessService(processes, cache)
	recordService := service.NewRecordService(records, timings, photos, processes, cfg.MaxPhotoBytes, logger)
	syncService := service.NewSyncService(records, cfg.MaxPhotoBytes, logger)
	adminService := service.NewAdminService(users, processes, objects, assignments, cache, logger)
	analyticsService := service.NewAnalyticsService(analytics)

	h := router.New(router.Handlers{
		Auth:      handler.NewAuthHandler(authService, logger),
		Processes: handler.NewProcessHandler(processService, logger),
		Records:   handler.NewRecordHandler(recordService, syncService, cfg.MaxPhotoBytes, logger),
		Admin:     handler.NewAdminHandler(adminService, analyticsService, logger),
	}, issuer, router.Options{AllowedOrigin: cfg.AllowedOrigin}, logger)
	return h, cache
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("address", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.close()
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	s.close()
	return err
}

func (s *Server) close() {
	s.cache.Stop()
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err))
	}
}
