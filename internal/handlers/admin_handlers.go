package handlers

import (
	"context"
	"log"
	"net/http"

	"ms-discovery/internal/services"
)

// CatalogSyncer replaces the catalog with the backend's listing.
type CatalogSyncer interface {
	SyncFromBackend(ctx context.Context, source services.EventSource) (int, error)
}

// TrendingRecalculator recomputes and stores the trending snapshot.
type TrendingRecalculator interface {
	Recalculate(ctx context.Context) (services.TrendingSnapshot, error)
}

type AdminHandler struct {
	catalog  CatalogSyncer
	source   services.EventSource
	trending TrendingRecalculator
}

// NewAdminHandler creates the admin handler. trending may be nil.
func NewAdminHandler(catalog CatalogSyncer, source services.EventSource, trending TrendingRecalculator) *AdminHandler {
	return &AdminHandler{
		catalog:  catalog,
		source:   source,
		trending: trending,
	}
}

// SyncResponse reports the outcome of a catalog sync.
type SyncResponse struct {
	Synced   int `json:"synced"`
	Trending int `json:"trending"`
}

// Sync handles POST /api/discovery/admin/v1/sync
func (h *AdminHandler) Sync(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalog.SyncFromBackend(r.Context(), h.source)
	if err != nil {
		log.Printf("Error syncing catalog: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to sync catalog")
		return
	}

	response := SyncResponse{Synced: n}
	if h.trending != nil {
		snapshot, err := h.trending.Recalculate(r.Context())
		if err != nil {
			log.Printf("Error recalculating trending after sync: %v", err)
			writeError(w, http.StatusInternalServerError, "Catalog synced but trending recalculation failed")
			return
		}
		response.Trending = len(snapshot.EventIDs)
	}

	log.Printf("Admin sync completed: %d events", n)
	writeJSON(w, http.StatusOK, response)
}
