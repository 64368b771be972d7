package api

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/shaiso/leadmailer/internal/repo"
)

var unsubscribePage = template.Must(template.New("unsubscribe").Parse(`<!DOCTYPE html>
<html lang="pt-BR">
<head><meta charset="utf-8"><title>{{ .ServiceName }}</title></head>
<body style="font-family: Arial, Helvetica, sans-serif; text-align: center; padding: 48px;">
  <h2>{{ .Title }}</h2>
  <p>{{ .Message }}</p>
</body>
</html>`))

type unsubscribeView struct {
	ServiceName string
	Title       string
	Message     string
}

// Unsubscribe обрабатывает GET /unsubscribe?token=... из ссылки в футере письма.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.renderUnsubscribe(w, http.StatusBadRequest, "Link inválido", "O link de cancelamento está incompleto.")
		return
	}

	leadID, err := h.unsubscriber.Unsubscribe(r.Context(), token)
	if errors.Is(err, repo.ErrNotFound) {
		h.renderUnsubscribe(w, http.StatusNotFound, "Link inválido", "Não encontramos esta inscrição.")
		return
	}
	if err != nil {
		h.logger.Error("unsubscribe failed", "error", err)
		h.renderUnsubscribe(w, http.StatusInternalServerError, "Erro", "Tente novamente mais tarde.")
		return
	}

	h.logger.Info("lead unsubscribed", "lead_id", leadID)
	h.renderUnsubscribe(w, http.StatusOK, "Inscrição cancelada", "Você não receberá mais nossos e-mails.")
}

func (h *Handler) renderUnsubscribe(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := unsubscribePage.Execute(w, unsubscribeView{
		ServiceName: h.serviceName,
		Title:       title,
		Message:     message,
	}); err != nil {
		h.logger.Warn("render unsubscribe page", "error", err)
	}
}
