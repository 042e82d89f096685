package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/internal/pipeline"
)

var servePort int

// estimateService is the part of the pipeline the HTTP layer needs.
type estimateService interface {
	Estimate(ctx context.Context, address string) (*model.Report, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the estimation API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := pipeline.NewFromConfig(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(p, cfg.Imagery.Dir, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(svc estimateService, imagesDir string, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/estimate", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Address string `json:"address"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Address == "" {
			writeError(w, http.StatusBadRequest, "address is required")
			return
		}

		report, err := svc.Estimate(req.Context(), body.Address)
		if err != nil {
			kind := model.Kind(err)
			zap.L().Error("estimate request failed",
				zap.String("address", body.Address),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			writeEstimateError(w, kind)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Get("/api/images/{filename}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "filename")
		// Reject anything that is not a bare filename.
		if name == "" || name != filepath.Base(name) || name[0] == '.' {
			writeError(w, http.StatusBadRequest, "invalid filename")
			return
		}
		path := filepath.Join(imagesDir, name)
		if _, err := os.Stat(path); err != nil {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		http.ServeFile(w, req, path)
	})

	return r
}

// estimateStatus maps pipeline error kinds to HTTP status codes.
var estimateStatus = map[model.ErrorKind]int{
	model.KindAddressNotFound:    http.StatusNotFound,
	model.KindImageryUnavailable: http.StatusServiceUnavailable,
	model.KindGeometry:           http.StatusUnprocessableEntity,
	model.KindInternal:           http.StatusInternalServerError,
}

// estimateMessage carries the caller-facing description per error kind.
var estimateMessage = map[model.ErrorKind]string{
	model.KindAddressNotFound:    "address could not be resolved to a building",
	model.KindImageryUnavailable: "satellite imagery is not available for this location",
	model.KindGeometry:           "building geometry could not be processed",
	model.KindInternal:           "internal error",
}

func writeEstimateError(w http.ResponseWriter, kind model.ErrorKind) {
	status, ok := estimateStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
		kind = model.KindInternal
	}
	writeJSON(w, status, map[string]any{
		"success": false,
		"kind":    string(kind),
		"error":   estimateMessage[kind],
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
