package api

import (
	"context"
	"net/http"

	"github.com/shaiso/leadmailer/internal/domain"
)

// TriggerCycle обрабатывает POST /api/v1/cycles.
//
// Цикл выполняется синхронно и не прерывается при обрыве соединения клиента.
// Если цикл уже идёт, отвечает 409 с отчётом skipped.
func (h *Handler) TriggerCycle(w http.ResponseWriter, r *http.Request) {
	report := h.cycler.RunCycle(context.WithoutCancel(r.Context()))

	h.logger.Info("manual dispatch cycle",
		"cycle_id", report.ID,
		"status", report.Status,
		"sent", report.Sent,
		"failed", report.Failed,
	)

	JSON(w, cycleHTTPStatus(report.Status), DataResponse{Data: report})
}

// LastCycle обрабатывает GET /api/v1/cycles/last.
func (h *Handler) LastCycle(w http.ResponseWriter, _ *http.Request) {
	report := h.cycler.LastReport()
	if report == nil {
		NotFound(w, "no dispatch cycle has run yet")
		return
	}
	Success(w, report)
}

func cycleHTTPStatus(status domain.CycleStatus) int {
	switch status {
	case domain.CycleStatusSkipped:
		return http.StatusConflict
	case domain.CycleStatusFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
