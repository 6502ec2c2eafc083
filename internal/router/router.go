package router

import (
	"encoding/json"
	"net/http"
	"time"

	"Mansoor88-6/process-tracker/internal/auth"
	"Mansoor88-6/process-tracker/internal/handler"
	"Mansoor88-6/process-tracker/internal/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Processes *handler.ProcessHandler
	Records   *handler.RecordHandler
	Admin     *handler.AdminHandler
}

type Options struct {
	AllowedOrigin string
}

// public routes are reachable without a bearer token.
var public = map[string]bool{
	"/health":            true,
	"/metrics":           true,
	"/api/auth/login":    true,
	"/api/auth/register": true,
}

func New(h Handlers, issuer *auth.Issuer, opts Options, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("GET /api/auth/me", h.Auth.Me)

	mux.HandleFunc("GET /api/processes", h.Processes.List)
	mux.HandleFunc("POST /api/sync/records", h.Records.Sync)

	mux.HandleFunc("GET /api/records", h.Records.History)
	mux.HandleFunc("POST /api/records/start", h.Records.Start)
	mux.HandleFunc("POST /api/records/{id}/stop", h.Records.Stop)
	mux.HandleFunc("POST /api/records/{recordId}/steps/{stepId}/start", h.Records.StartStep)
	mux.HandleFunc("POST /api/step-timings/{id}/stop", h.Records.StopStep)
	mux.HandleFunc("POST /api/records/{recordId}/photos", h.Records.UploadPhoto)

	admin := http.NewServeMux()
	admin.HandleFunc("GET /api/admin/users", h.Admin.ListUsers)
	admin.HandleFunc("PATCH /api/admin/users/{id}", h.Admin.SetUserStatus)
	admin.HandleFunc("GET /api/admin/processes", h.Admin.ListProcesses)
	admin.HandleFunc("POST /api/admin/processes", h.Admin.CreateProcess)
	admin.HandleFunc("GET /api/admin/processes/{id}", h.Admin.GetProcess)
	admin.HandleFunc("PUT /api/admin/processes/{id}", h.Admin.UpdateProcess)
	admin.HandleFunc("DELETE /api/admin/processes/{id}", h.Admin.DeactivateProcess)
	admin.HandleFunc("GET /api/admin/objects", h.Admin.ListObjects)
	admin.HandleFunc("POST /api/admin/objects", h.Admin.CreateObject)
	admin.HandleFunc("PUT /api/admin/objects/{id}", h.Admin.UpdateObject)
	admin.HandleFunc("DELETE /api/admin/objects/{id}", h.Admin.DeleteObject)
	admin.HandleFunc("GET /api/admin/assignments", h.Admin.ListAssignments)
	admin.HandleFunc("POST /api/admin/assignments", h.Admin.CreateAssignment)
	admin.HandleFunc("DELETE /api/admin/assignments/{id}", h.Admin.DeleteAssignment)
	admin.HandleFunc("GET /api/admin/analytics", h.Admin.Analytics)
	mux.Handle("/api/admin/", auth.RequireAdmin(admin))

	authn := auth.NewMiddleware(issuer, func(r *http.Request) bool {
		return r.Method == http.MethodOptions || public[r.URL.Path]
	})

	return withLogging(withCORS(authn.Wrap(h.Auth.RequireApproved(mux)), opts.AllowedOrigin), mux, admin, logger)
}

// withCORS lets browser clients call the API with bearer tokens.
func withCORS(next http.Handler, origin string) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Device-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withLogging logs every request and feeds the HTTP metrics, labeled by route pattern.
func withLogging(next http.Handler, mux, admin *http.ServeMux, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := routeOf(r, mux, admin)
		elapsed := time.Since(start)
		observability.ObserveRequest(route, rec.status, elapsed)
		logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
			zap.String("remote_addr", r.RemoteAddr),
		)
	})
}

func routeOf(r *http.Request, mux, admin *http.ServeMux) string {
	_, pattern := mux.Handler(r)
	if pattern == "/api/admin/" {
		_, pattern = admin.Handler(r)
	}
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}
