// Package server provides the HTTP API for remote capture operations.
//
// Endpoints:
//
//	POST /captures        enqueue a new capture; returns operation ID immediately
//	GET  /captures/{id}   poll operation status and retrieve the photo URL
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tomasbasham/photo-capture/internal/camera"
	"github.com/tomasbasham/photo-capture/internal/logging"
	"github.com/tomasbasham/photo-capture/internal/operation"
	"github.com/tomasbasham/photo-capture/internal/session"
)

// Options holds the dependencies shared across HTTP handlers.
type Options struct {
	Store     operation.Store
	OutputDir string
	Pipeline  camera.Pipeline
	Uploader  session.Uploader
	Logger    logging.Logger

	// Clock names photos; defaults to time.Now.
	Clock func() time.Time
}

// Server serves the remote capture API.
type Server struct {
	opts Options
	log  logging.Logger
	mux  *http.ServeMux

	// base outlives individual requests; workers run under it.
	base    context.Context
	workers sync.WaitGroup
}

// New creates a Server wired to the given store, pipeline and uploader.
// Workers started by the server run under ctx rather than the request
// context.
func New(ctx context.Context, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		opts: opts,
		log:  log,
		base: ctx,
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /captures", s.handleCreateCapture)
	s.mux.HandleFunc("GET /captures/{id}", s.handleGetCapture)

	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address and shuts it
// down gracefully once ctx is done. In-flight capture workers are waited for
// before it returns.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info(ctx, "remote shutter listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.Wait()
	return nil
}

// Wait blocks until every capture worker started by the server has
// finished.
func (s *Server) Wait() {
	s.workers.Wait()
}

// createCaptureResponse is returned immediately from POST /captures.
type createCaptureResponse struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
}

func (s *Server) handleCreateCapture(w http.ResponseWriter, r *http.Request) {
	op, err := s.opts.Store.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create operation: "+err.Error())
		return
	}
	s.log.Info(r.Context(), "capture requested", "operation", op.ID)

	// The capture must not be cancelled when the HTTP connection closes.
	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		operation.Run(s.base, operation.WorkerOptions{
			OperationID: op.ID,
			Store:       s.opts.Store,
			OutputDir:   s.opts.OutputDir,
			Pipeline:    s.opts.Pipeline,
			Uploader:    s.opts.Uploader,
			Logger:      s.log,
			Clock:       s.opts.Clock,
		})
	}()

	writeJSON(w, http.StatusAccepted, createCaptureResponse{
		OperationID: op.ID,
		Status:      string(operation.StatusPending),
	})
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "operation id is required")
		return
	}

	op, err := s.opts.Store.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("operation %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, op)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
