package server

import (
	"net/http"

	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/model"
	"github.com/anuragpy07/Sausico/player"
)

type playRequest struct {
	Track *model.Track  `json:"track"`
	Queue []model.Track `json:"queue,omitempty"`
}

// PlayHandler starts playback of a track. When the body carries an explicit
// queue it is played as-is, otherwise the queue is filled from suggestions.
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Track == nil || req.Track.ID == "" {
		respondError(w, http.StatusBadRequest, "track is required")
		return
	}

	h.controller.Play(r.Context(), req.Track, req.Queue)
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Pause()
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Resume()
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) TogglePlayPauseHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.TogglePlayPause()
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Next(r.Context())
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) PreviousHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Previous(r.Context())
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PositionMs int64 `json:"positionMs"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PositionMs < 0 {
		respondError(w, http.StatusBadRequest, "positionMs must be non-negative")
		return
	}
	h.controller.SeekTo(req.PositionMs)
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Stop()
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) RepeatModeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	h.controller.SetRepeatMode(model.ParseRepeatMode(req.Mode))
	respondJSON(w, http.StatusOK, h.controller.State())
}

type queueAddRequest struct {
	Track model.Track `json:"track"`
	Next  bool        `json:"next,omitempty"`
}

// QueueAddHandler appends a track to the queue, or inserts it right after
// the current track when next is set.
func (h *APIHandler) QueueAddHandler(w http.ResponseWriter, r *http.Request) {
	var req queueAddRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Track.ID == "" {
		respondError(w, http.StatusBadRequest, "track is required")
		return
	}
	if req.Next {
		h.controller.AddNextInQueue(req.Track)
	} else {
		h.controller.AddToQueue(req.Track)
	}
	respondJSON(w, http.StatusOK, h.controller.State())
}

func (h *APIHandler) PlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.State())
}

// RestoreHandler reloads the last played track paused at its saved
// position.
func (h *APIHandler) RestoreHandler(w http.ResponseWriter, r *http.Request) {
	last, err := player.LoadLastPlayed(r.Context(), h.settings)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read last played snapshot")
		return
	}
	if last == nil {
		respondError(w, http.StatusNotFound, "no last played track")
		return
	}

	track, err := h.catalog.GetTrackByID(r.Context(), last.TrackID)
	if err != nil {
		logger.Warn("last played track no longer resolvable",
			logger.String("trackId", last.TrackID), logger.ErrorField(err))
		respondError(w, http.StatusNotFound, "last played track not found")
		return
	}

	h.controller.RestoreLastPlayedTrack(r.Context(), track, last.PositionMs)
	respondJSON(w, http.StatusOK, h.controller.State())
}

// QualityHandler reads or updates the preferred streaming quality tier.
func (h *APIHandler) QualityHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, map[string]string{
			"quality": string(h.resolver.ActiveQuality(r.Context())),
		})
	case http.MethodPut:
		var req struct {
			Quality string `json:"quality"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		tier := model.ParseQualityTier(req.Quality)
		if err := h.resolver.SetActiveQuality(r.Context(), tier); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to persist quality setting")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"quality": string(tier)})
	}
}
