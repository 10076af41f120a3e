package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/anuragpy07/Sausico/download"
	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/model"
)

// downloadTimeout bounds a single background transfer.
const downloadTimeout = 10 * time.Minute

type downloadRequest struct {
	Track   *model.Track `json:"track,omitempty"`
	TrackID string       `json:"trackId,omitempty"`
}

// StartDownloadHandler kicks off a background download and returns 202.
// Progress is available from the progress endpoint or the state socket.
func (h *APIHandler) StartDownloadHandler(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	track := req.Track
	if track == nil || track.ID == "" {
		if req.TrackID == "" {
			respondError(w, http.StatusBadRequest, "track or trackId is required")
			return
		}
		full, err := h.catalog.GetTrackByID(r.Context(), req.TrackID)
		if err != nil {
			respondError(w, http.StatusNotFound, "track not found")
			return
		}
		track = full
	}

	if h.manager.IsDownloaded(r.Context(), track.ID) {
		respondError(w, http.StatusConflict, "track already downloaded")
		return
	}
	if h.manager.GetProgress(track.ID) != nil {
		respondError(w, http.StatusConflict, "download already in progress")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
		defer cancel()

		_, err := h.manager.DownloadTrack(ctx, track, nil)
		if err != nil && !errors.Is(err, download.ErrDownloadInProgress) &&
			!errors.Is(err, download.ErrAlreadyDownloaded) {
			logger.Error("background download failed",
				logger.String("trackId", track.ID), logger.ErrorField(err))
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{
		"id":     track.ID,
		"status": string(model.DownloadPending),
	})
}

func (h *APIHandler) ListDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := h.manager.Records(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read download records")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *APIHandler) DownloadInfoHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := h.manager.GetDownloadInfo(r.Context(), id)
	if err != nil {
		if errors.Is(err, download.ErrNotFound) {
			respondError(w, http.StatusNotFound, "download not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to read download record")
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "download not found")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// DownloadProgressHandler reports in-flight progress. Completed downloads
// that already left the tracking window report completed from the index.
func (h *APIHandler) DownloadProgressHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if progress := h.manager.GetProgress(id); progress != nil {
		respondJSON(w, http.StatusOK, progress)
		return
	}
	if h.manager.IsDownloaded(r.Context(), id) {
		respondJSON(w, http.StatusOK, &model.DownloadProgress{
			ID:       id,
			Status:   model.DownloadCompleted,
			Progress: 100,
		})
		return
	}
	respondError(w, http.StatusNotFound, "no download in progress")
}

func (h *APIHandler) DeleteDownloadHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.manager.DeleteDownload(r.Context(), id); err != nil {
		if errors.Is(err, download.ErrNotFound) {
			respondError(w, http.StatusNotFound, "download not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete download")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (h *APIHandler) DeleteAllDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.DeleteAllDownloads(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete downloads")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *APIHandler) CleanupDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.CleanupOrphans(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "cleanup failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleaned"})
}

// ExportDownloadsHandler copies the named downloads into the export
// directory as plain media files.
func (h *APIHandler) ExportDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids is required")
		return
	}
	if err := h.manager.ExportTracks(r.Context(), req.IDs); err != nil {
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "exported",
		"exported": len(req.IDs),
	})
}

func (h *APIHandler) DownloadStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.manager.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
