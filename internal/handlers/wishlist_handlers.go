package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"ms-discovery/internal/auth"
	"ms-discovery/internal/classifier"
	"ms-discovery/internal/models"
)

// WishlistStore persists the events a user has saved.
type WishlistStore interface {
	Toggle(ctx context.Context, userID, eventID string) (bool, error)
	Remove(ctx context.Context, userID, eventID string) error
	Contains(ctx context.Context, userID, eventID string) (bool, error)
	ListEventIDs(ctx context.Context, userID string) ([]string, error)
}

type WishlistHandler struct {
	wishlist WishlistStore
	events   *EventsHandler
}

func NewWishlistHandler(wishlist WishlistStore, events *EventsHandler) *WishlistHandler {
	return &WishlistHandler{
		wishlist: wishlist,
		events:   events,
	}
}

// Toggle handles POST /wishlist/v1/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromContext(r.Context())
	if err != nil {
		log.Printf("Error getting user ID from context: %v", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.WishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Error decoding request body: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.EventID == "" {
		writeError(w, http.StatusBadRequest, "EventID is required")
		return
	}

	wishlisted, err := h.wishlist.Toggle(r.Context(), userID, req.EventID)
	if err != nil {
		log.Printf("Error toggling wishlist for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}

	message := "Removed from wishlist"
	if wishlisted {
		message = "Added to wishlist"
	}
	writeJSON(w, http.StatusOK, models.WishlistState{EventID: req.EventID, Wishlisted: wishlisted, Message: message})
}

// Remove handles DELETE /wishlist/v1/{eventId}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromContext(r.Context())
	if err != nil {
		log.Printf("Error getting user ID from context: %v", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	eventID := mux.Vars(r)["eventId"]
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "EventID is required")
		return
	}

	if err := h.wishlist.Remove(r.Context(), userID, eventID); err != nil {
		log.Printf("Error removing wishlist item: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}
	writeJSON(w, http.StatusOK, models.WishlistState{EventID: eventID, Wishlisted: false, Message: "Removed from wishlist"})
}

// IsWishlisted handles GET /wishlist/v1/is-wishlisted/{eventId}
func (h *WishlistHandler) IsWishlisted(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromContext(r.Context())
	if err != nil {
		log.Printf("Error getting user ID from context: %v", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	eventID := mux.Vars(r)["eventId"]
	if eventID == "" {
		writeError(w, http.StatusBadRequest, "EventID is required")
		return
	}

	wishlisted, err := h.wishlist.Contains(r.Context(), userID, eventID)
	if err != nil {
		log.Printf("Error checking wishlist: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to check wishlist")
		return
	}
	writeJSON(w, http.StatusOK, models.WishlistState{EventID: eventID, Wishlisted: wishlisted})
}

// Items handles GET /wishlist/v1/items
func (h *WishlistHandler) Items(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserIDFromContext(r.Context())
	if err != nil {
		log.Printf("Error getting user ID from context: %v", err)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	now := h.events.clock.Now()
	ids, err := h.wishlist.ListEventIDs(r.Context(), userID)
	if err != nil {
		log.Printf("Error listing wishlist for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Failed to list wishlist")
		return
	}

	events := []classifier.Event{}
	if len(ids) > 0 {
		events, err = h.events.events.GetEventsByIDs(r.Context(), ids)
		if err != nil {
			log.Printf("Error loading wishlisted events: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list wishlist")
			return
		}
	}

	trending, err := h.events.trendingSet(r.Context())
	if err != nil {
		log.Printf("Error computing trending set: %v", err)
	}
	listed := classifier.SortForListing(events, now)
	views := h.events.views(listed, now, h.events.cfg.RecentWindowDays, trending)
	writeJSON(w, http.StatusOK, models.EventListResponse{Events: views, Count: len(views), GeneratedAt: now})
}
