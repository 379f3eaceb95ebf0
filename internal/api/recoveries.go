package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/reclaimhq/reclaim/internal/authz"
	"github.com/reclaimhq/reclaim/internal/model"
	"github.com/reclaimhq/reclaim/internal/store"
)

// RecoveriesHandler handles the recovery workflow endpoints.
type RecoveriesHandler struct {
	DB    *sql.DB
	Guard *authz.Guard
}

type recoverRequest struct {
	RecoveredLocation string `json:"recoveredLocation"`
	RecoveredDate     string `json:"recoveredDate"`
	Notes             string `json:"notes"`
}

// Recover handles POST /inventory/{id}/recover.
func (h *RecoveriesHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RecoveredLocation == "" || req.RecoveredDate == "" {
		jsonError(w, http.StatusBadRequest, "recoveredLocation and recoveredDate required")
		return
	}
	date, err := model.NormalizeDate(req.RecoveredDate)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "recoveredDate must be a valid calendar date")
		return
	}

	principal := GetPrincipal(r.Context())
	ref := model.ParseItemRef(r.PathValue("id"))

	recovery, err := store.RecordRecovery(r.Context(), h.DB, ref, principal, store.RecoveryClaim{
		RecoveredLocation: req.RecoveredLocation,
		RecoveredDate:     date,
		Notes:             req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	slog.Info("recovery recorded", "item", recovery.ItemID, "claimant", principal.Email)
	jsonResponse(w, http.StatusCreated, recovery)
}

// ListMine handles GET /recoveries: recoveries where the principal is the
// claimant or the original owner.
func (h *RecoveriesHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipal(r.Context())
	recoveries, err := store.ListRecoveriesForUser(r.Context(), h.DB, principal)
	if err != nil {
		writeError(w, err)
		return
	}
	if recoveries == nil {
		recoveries = []model.Recovery{}
	}
	jsonResponse(w, http.StatusOK, recoveries)
}

// Update handles PATCH /recoveries/{id}. Only the claimant, the original
// owner, or an admin may mutate a recovery, and only its mutable fields.
func (h *RecoveriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := make(map[string]string)
	for name := range store.RecoveryUpdateAllowlist {
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
	if len(fields) == 0 {
		jsonError(w, http.StatusBadRequest, "no updatable fields in request")
		return
	}
	if status, ok := fields["recoveryStatus"]; ok && !model.ValidRecoveryStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid recoveryStatus")
		return
	}
	if d, ok := fields["recoveredDate"]; ok {
		date, err := model.NormalizeDate(d)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "recoveredDate must be a valid calendar date")
			return
		}
		fields["recoveredDate"] = date
	}

	id := r.PathValue("id")
	recovery, err := store.GetRecovery(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if recovery == nil {
		jsonError(w, http.StatusNotFound, "recovery not found")
		return
	}

	principal := GetPrincipal(r.Context())
	if err := h.Guard.AuthorizeRecovery(principal, recovery); err != nil {
		writeError(w, err)
		return
	}

	updated, err := store.UpdateRecoveryFields(r.Context(), h.DB, id, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	if updated == nil {
		jsonError(w, http.StatusNotFound, "recovery not found")
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}

// DeleteItem handles DELETE /inventory/{id}: the item and every recovery
// referencing it go together.
func (h *RecoveriesHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Guard.AuthorizeItem(principal, item, authz.ActionDelete); err != nil {
		writeError(w, err)
		return
	}

	deleted, err := store.DeleteItemWithRecoveries(r.Context(), h.DB, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	slog.Info("item deleted", "item", item.ID, "by", principal.Email)
	jsonResponse(w, http.StatusOK, map[string]bool{"deleted": true})
}
