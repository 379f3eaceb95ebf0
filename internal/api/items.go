package api

import (
	"database/sql"
	"net/http"

	"github.com/reclaimhq/reclaim/internal/authz"
	"github.com/reclaimhq/reclaim/internal/imaging"
	"github.com/reclaimhq/reclaim/internal/model"
	"github.com/reclaimhq/reclaim/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB    *sql.DB
	Guard *authz.Guard
}

type createItemRequest struct {
	PostType    string `json:"postType"`
	Thumbnail   string `json:"thumbnail"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	Date        string `json:"date"`
}

// Create handles POST /inventory. The contact identity always comes from the
// principal, never from the client.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !model.ValidPostType(req.PostType) {
		jsonError(w, http.StatusBadRequest, "postType must be lost or found")
		return
	}
	if req.Thumbnail == "" || req.Title == "" || req.Category == "" || req.Location == "" {
		jsonError(w, http.StatusBadRequest, "thumbnail, title, category, and location required")
		return
	}
	date, err := model.NormalizeDate(req.Date)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "date must be a valid calendar date")
		return
	}

	principal := GetPrincipal(r.Context())
	item := &model.Item{
		PostType:     req.PostType,
		Thumbnail:    req.Thumbnail,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Location:     req.Location,
		Date:         date,
		ContactName:  principal.Name,
		ContactEmail: principal.Email,
		OwnerID:      &principal.ID,
	}

	created, err := store.CreateItem(r.Context(), h.DB, item)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /inventory/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref := model.ParseItemRef(r.PathValue("id"))
	item, err := store.GetItem(r.Context(), h.DB, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// List handles GET /inventory with optional query filters.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ItemFilter{
		PostType: q.Get("type"),
		Category: q.Get("category"),
		Location: q.Get("location"),
		Search:   q.Get("search"),
	}
	switch q.Get("status") {
	case "active":
		filter.Status = model.StatusNotRecovered
	case "recovered":
		filter.Status = model.StatusRecovered
	}

	items, err := store.ListItems(r.Context(), h.DB, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Update handles PATCH /inventory/{id}. Only allowlisted fields are applied;
// anything else in the body is silently ignored.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := make(map[string]string)
	for name := range store.ItemUpdateAllowlist {
		value, ok := body[name]
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok {
			jsonError(w, http.StatusBadRequest, name+" must be a string")
			return
		}
		fields[name] = s
	}
	if pt, ok := fields["postType"]; ok && !model.ValidPostType(pt) {
		jsonError(w, http.StatusBadRequest, "postType must be lost or found")
		return
	}
	if d, ok := fields["date"]; ok {
		date, err := model.NormalizeDate(d)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "date must be a valid calendar date")
			return
		}
		fields["date"] = date
	}

	ref := model.ParseItemRef(r.PathValue("id"))
	item, err := store.GetItem(r.Context(), h.DB, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	principal := GetPrincipal(r.Context())
	if err := h.Guard.AuthorizeItem(principal, item, authz.ActionUpdate); err != nil {
		writeError(w, err)
		return
	}

	modified, err := store.UpdateItemFields(r.Context(), h.DB, ref, fields)
	if err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]int64{"modifiedCount": modified})
}

// MyItems handles GET /my-items. The email comes from the query, uncrossed
// with the principal, matching the public contract.
func (h *ItemsHandler) MyItems(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		jsonError(w, http.StatusBadRequest, "email query parameter required")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{Email: email})
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// UploadThumbnail handles PUT /inventory/{id}/thumbnail. The upload is
// re-encoded and downscaled before storage, and the item's thumbnail field
// is pointed at the serving path.
func (h *ItemsHandler) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	ref := model.ParseItemRef(r.PathValue("id"))
	item, err := store.GetItem(r.Context(), h.DB, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	principal := GetPrincipal(r.Context())
	if err := h.Guard.AuthorizeItem(principal, item, authz.ActionUpdate); err != nil {
		writeError(w, err)
		return
	}

	data, mime, err := imaging.Thumbnail(r.Body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	path := "/inventory/" + item.ID + "/thumbnail"
	if err := store.SetItemImage(r.Context(), h.DB, item.ID, data, mime, path); err != nil {
		writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"thumbnail": path})
}

// ServeThumbnail handles GET /inventory/{id}/thumbnail.
func (h *ItemsHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	ref := model.ParseItemRef(r.PathValue("id"))
	data, mime, err := store.GetItemImage(r.Context(), h.DB, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "no thumbnail")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Write(data)
}
