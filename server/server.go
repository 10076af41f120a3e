package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/anuragpy07/Sausico/config"
	"github.com/anuragpy07/Sausico/logger"
)

// NewRouter wires every endpoint onto a gorilla mux router.
func NewRouter(h *APIHandler, hub *StateHub) *mux.Router {
	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Playback transport
	router.HandleFunc("/api/player/state", h.PlayerStateHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/player/play", h.PlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/pause", h.PauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/resume", h.ResumeHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/toggle", h.TogglePlayPauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", h.NextHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/previous", h.PreviousHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", h.SeekHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/stop", h.StopHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/repeat", h.RepeatModeHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/player/queue", h.QueueAddHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/player/restore", h.RestoreHandler).Methods(http.MethodPost)

	// Quality preference
	router.HandleFunc("/api/quality", h.QualityHandler).Methods(http.MethodGet, http.MethodPut)

	// Downloads
	router.HandleFunc("/api/downloads", h.StartDownloadHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/downloads", h.ListDownloadsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/downloads", h.DeleteAllDownloadsHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/downloads/cleanup", h.CleanupDownloadsHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/downloads/export", h.ExportDownloadsHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/downloads/stats", h.DownloadStatsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/downloads/{id}", h.DownloadInfoHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/downloads/{id}", h.DeleteDownloadHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/downloads/{id}/progress", h.DownloadProgressHandler).Methods(http.MethodGet)

	// Push-style playback state
	router.HandleFunc("/ws/player", hub.Handler)

	return router
}

// Start runs the HTTP server until an interrupt signal arrives, then shuts
// down gracefully.
func Start(cfg *config.Config, h *APIHandler, hub *StateHub) error {
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewRouter(h, hub),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
