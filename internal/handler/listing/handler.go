package listing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirayalabs/kiraya/backend/internal/model/listing"
)

// Handler serves the rental catalog.
type Handler struct {
	listings listing.Store
}

func New(listings listing.Store) *Handler {
	return &Handler{
		listings: listings,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/listings", h.handleListListings)
}

func (h *Handler) handleListListings(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.listings.List())
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
