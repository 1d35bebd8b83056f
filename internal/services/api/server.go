package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/NordCoder/Sitewatch/internal/obs"
	"github.com/NordCoder/Sitewatch/internal/services/monitor"
)

type Server struct {
	Log     *zap.Logger
	Engine  *monitor.Engine
	Origins []string
	Health  obs.HealthFunc

	// CheckAllTimeout is the write deadline for the check-all response,
	// replacing the server-wide one. Zero means no deadline.
	CheckAllTimeout time.Duration
}

func NewServer(l *zap.Logger, engine *monitor.Engine, origins []string, health obs.HealthFunc) *Server {
	return &Server{Log: l.With(zap.String("component", "api")), Engine: engine, Origins: origins, Health: health}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.corsHandler())
	r.Use(s.accessLog)

	r.Get("/healthz", obs.HealthHandler(s.Health))

	r.Route("/v1/users/{userID}", func(r chi.Router) {
		r.Put("/", s.handleAddUser)

		r.Get("/sites", s.handleListSites)
		r.Post("/sites", s.handleAddSite)
		r.Post("/sites/confirm", s.handleAddSiteAnyway)
		r.Get("/sites/{siteID}", s.handleGetSite)
		r.Delete("/sites/{siteID}", s.handleDeleteSite)
		r.Post("/sites/{siteID}/check", s.handleCheckOne)
		r.Get("/sites/{siteID}/stats", s.handleStats)
		r.Get("/sites/{siteID}/history", s.handleHistory)
		r.Post("/sites/{siteID}/errors/resolve", s.handleResolveSiteErrors)

		r.Post("/check", s.handleCheckAll)

		r.Get("/errors", s.handleListErrors)
		r.Post("/errors/{errorID}/resolve", s.handleResolveError)
	})

	return obs.HTTPHandler(r, "sitewatch.api")
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	if len(s.Origins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: s.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		obs.WithTrace(r.Context(), s.Log).Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, monitor.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, monitor.ErrDuplicateSite):
		code = http.StatusConflict
	case errors.Is(err, monitor.ErrInvalidURL), errors.Is(err, errBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, monitor.ErrStoreFailure):
		code = http.StatusServiceUnavailable
	}
	if code >= http.StatusInternalServerError {
		obs.WithTrace(r.Context(), s.Log).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func pathID(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, badRequest(name + " must be a positive integer")
	}
	return v, nil
}

func queryInt(r *http.Request, name string) (int64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, false, badRequest(name + " must be a non-negative integer")
	}
	return v, true, nil
}

func badRequest(msg string) error {
	return &requestError{msg: msg}
}

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Unwrap() error { return errBadRequest }
