// Package server exposes an Execution Gateway over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhath/ezspanner/internal/gateway"
)

// Route is the single endpoint served.
const Route = "/api/spanner"

// Request types accepted by Route.
const (
	TypeInstances = "instances"
	TypeDatabases = "databases"
	TypeQuery     = "query"
)

// Request is the body of a POST to Route.
type Request struct {
	Type       string `json:"type"`
	ProjectID  string `json:"projectId"`
	InstanceID string `json:"instanceId,omitempty"`
	DatabaseID string `json:"databaseId,omitempty"`
	Query      string `json:"query,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error messages returned to clients.
const (
	ErrMsgInvalidType    = "Invalid request type"
	ErrMsgInvalidBody    = "Invalid request body"
	ErrMsgFetchInstances = "Failed to fetch instances"
	ErrMsgFetchDatabases = "Failed to fetch databases"
	ErrMsgExecuteQuery   = "Failed to execute query"
)

// Server serves a Gateway.
type Server struct {
	gw     gateway.Gateway
	logger *zap.Logger
	addr   string
}

// Config holds configuration for the server.
type Config struct {
	Gateway gateway.Gateway
	Addr    string
	Logger  *zap.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{gw: cfg.Gateway, logger: logger.Named("server"), addr: cfg.Addr}
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		s.logRequests,
		middleware.Recoverer,
	)
	r.Post(Route, s.handleSpanner)
	return r
}

// Serve listens on the configured address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.logger.Info("listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Debug("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handleSpanner(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidBody})
		return
	}

	ctx := r.Context()
	switch req.Type {
	case TypeInstances:
		ids, err := s.gw.ListInstances(ctx, req.ProjectID)
		if err != nil {
			s.fail(w, r, ErrMsgFetchInstances, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(ids))
	case TypeDatabases:
		ids, err := s.gw.ListDatabases(ctx, req.ProjectID, req.InstanceID)
		if err != nil {
			s.fail(w, r, ErrMsgFetchDatabases, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(ids))
	case TypeQuery:
		c := gateway.Coordinates{Project: req.ProjectID, Instance: req.InstanceID, Database: req.DatabaseID}
		res, err := s.gw.ExecuteQuery(ctx, c, req.Query)
		if err != nil {
			s.fail(w, r, ErrMsgExecuteQuery, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidType})
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Warn(msg,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: msg})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
