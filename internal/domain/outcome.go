package domain

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// DispatchOutcome — результат одной попытки отправки пары (lead, template).
// Не хранится в store, используется для логов, метрик и событий.
//
// Success — письмо принято транспортом. Error может быть непустым и при
// Success = true, если после отправки не удалось записать EmailSent.
type DispatchOutcome struct {
	LeadID     int64     `json:"lead_id"`
	TemplateID int64     `json:"template_id"`
	Email      string    `json:"email"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// CycleStatus — чем закончился цикл.
type CycleStatus string

const (
	// CycleStatusCompleted — цикл прошёл по всем due лидам.
	CycleStatusCompleted CycleStatus = "completed"

	// CycleStatusSkipped — предыдущий цикл ещё выполняется.
	CycleStatusSkipped CycleStatus = "skipped"

	// CycleStatusDenied — quota guard запретил отправку.
	CycleStatusDenied CycleStatus = "denied"

	// CycleStatusFailed — цикл прерван (store недоступен и т.п.).
	CycleStatusFailed CycleStatus = "failed"
)

// CycleReport — итог одного цикла диспетчера.
type CycleReport struct {
	ID        string        `json:"id"`
	Status    CycleStatus   `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	DueLeads  int `json:"due_leads"`
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`

	// LeadsWithoutTemplates — due лиды, для типа которых нет шаблонов.
	LeadsWithoutTemplates int `json:"leads_without_templates"`

	Outcomes []DispatchOutcome `json:"outcomes,omitempty"`

	errs *multierror.Error
}

// Record добавляет результат пары в отчёт.
func (r *CycleReport) Record(o DispatchOutcome) {
	r.Attempted++
	if o.Success {
		r.Sent++
	} else {
		r.Failed++
	}
	if o.Error != "" {
		r.errs = multierror.Append(r.errs,
			fmt.Errorf("lead %d template %d: %s", o.LeadID, o.TemplateID, o.Error))
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Fail помечает цикл как прерванный.
func (r *CycleReport) Fail(err error) {
	r.Status = CycleStatusFailed
	r.Reason = err.Error()
	r.errs = multierror.Append(r.errs, err)
}

// Err возвращает агрегированную ошибку цикла или nil.
func (r *CycleReport) Err() error {
	return r.errs.ErrorOrNil()
}
