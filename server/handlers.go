package server

import (
	"encoding/json"
	"net/http"

	"github.com/anuragpy07/Sausico/cache"
	"github.com/anuragpy07/Sausico/catalog"
	"github.com/anuragpy07/Sausico/config"
	"github.com/anuragpy07/Sausico/download"
	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/player"
	"github.com/anuragpy07/Sausico/stream"
)

// APIHandler carries the wired services behind the HTTP surface.
type APIHandler struct {
	controller *player.Controller
	manager    *download.Manager
	resolver   *stream.Resolver
	catalog    *catalog.Client
	settings   cache.Store
	cfg        *config.Config
}

// NewAPIHandler creates the handler set for the router.
func NewAPIHandler(
	controller *player.Controller,
	manager *download.Manager,
	resolver *stream.Resolver,
	cat *catalog.Client,
	settings cache.Store,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		controller: controller,
		manager:    manager,
		resolver:   resolver,
		catalog:    cat,
		settings:   settings,
		cfg:        cfg,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
