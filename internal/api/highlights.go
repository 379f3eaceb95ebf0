package api

import (
	"database/sql"
	"net/http"

	"github.com/reclaimhq/reclaim/internal/model"
	"github.com/reclaimhq/reclaim/internal/store"
)

// HighlightsHandler serves the landing-page banner slides.
type HighlightsHandler struct {
	DB *sql.DB
}

type createHighlightRequest struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	ImageURL string `json:"imageURL"`
	LinkURL  string `json:"linkURL"`
	Position int    `json:"position"`
}

// List handles GET /highlights.
func (h *HighlightsHandler) List(w http.ResponseWriter, r *http.Request) {
	highlights, err := store.ListHighlights(r.Context(), h.DB)
	if err != nil {
		writeError(w, err)
		return
	}
	if highlights == nil {
		highlights = []model.Highlight{}
	}
	jsonResponse(w, http.StatusOK, highlights)
}

// Create handles POST /highlights (admin only).
func (h *HighlightsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	if !principal.Admin {
		jsonError(w, http.StatusForbidden, "admin only")
		return
	}

	var req createHighlightRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" || req.ImageURL == "" {
		jsonError(w, http.StatusBadRequest, "title and imageURL required")
		return
	}

	created, err := store.CreateHighlight(r.Context(), h.DB, &model.Highlight{
		Title:    req.Title,
		Subtitle: req.Subtitle,
		ImageURL: req.ImageURL,
		LinkURL:  req.LinkURL,
		Position: req.Position,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, created)
}
