package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shaiso/leadmailer/internal/domain"
)

// RearmRequest — тело POST /api/v1/leads/{id}/rearm.
type RearmRequest struct {
	Value      int    `json:"value"`
	Unit       string `json:"unit"`
	TargetTime string `json:"target_time,omitempty"`
}

// QualifyLead обрабатывает POST /api/v1/leads/{id}/qualify.
func (h *Handler) QualifyLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	lead, err := h.qualifier.Qualify(r.Context(), id)
	if LeadError(w, h.logger, err) {
		return
	}
	Success(w, lead)
}

// RearmLead обрабатывает POST /api/v1/leads/{id}/rearm.
func (h *Handler) RearmLead(w http.ResponseWriter, r *http.Request) {
	id, ok := leadID(w, r)
	if !ok {
		return
	}

	var req RearmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return
	}
	unit, err := domain.ParseDelayUnit(req.Unit)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	rule := domain.DelayRule{Value: req.Value, Unit: unit, TargetTime: req.TargetTime}
	if err := rule.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	lead, err := h.qualifier.Rearm(r.Context(), id, rule)
	if LeadError(w, h.logger, err) {
		return
	}
	Success(w, lead)
}

func leadID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(w, "invalid lead id")
		return 0, false
	}
	return id, true
}
