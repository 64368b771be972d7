package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/leadmailer/internal/domain"
)

// Cycler — диспетчер отложенных писем.
type Cycler interface {
	RunCycle(ctx context.Context) *domain.CycleReport
	Running() bool
	LastReport() *domain.CycleReport
}

// Qualifier — квалификация лидов.
type Qualifier interface {
	Qualify(ctx context.Context, leadID int64) (*domain.Lead, error)
	Rearm(ctx context.Context, leadID int64, rule domain.DelayRule) (*domain.Lead, error)
}

// Unsubscriber — отписка по токену.
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, token string) (int64, error)
}

// Handler — главный обработчик ops API.
type Handler struct {
	cycler       Cycler
	qualifier    Qualifier
	unsubscriber Unsubscriber
	gatherer     prometheus.Gatherer
	serviceName  string
	startedAt    time.Time
	logger       *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Cycler       Cycler
	Qualifier    Qualifier    // опционально; nil — маршруты /leads не регистрируются
	Unsubscriber Unsubscriber // опционально; nil — /unsubscribe не регистрируется
	Gatherer     prometheus.Gatherer
	ServiceName  string
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Handler{
		cycler:       cfg.Cycler,
		qualifier:    cfg.Qualifier,
		unsubscriber: cfg.Unsubscriber,
		gatherer:     gatherer,
		serviceName:  cfg.ServiceName,
		startedAt:    time.Now(),
		logger:       logger,
	}
}

// Health — проверка живости сервиса.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	Success(w, map[string]any{
		"status":          "ok",
		"uptime":          time.Since(h.startedAt).Round(time.Second).String(),
		"cycle_in_flight": h.cycler != nil && h.cycler.Running(),
	})
}
