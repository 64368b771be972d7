package quota

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Guard — источник решения "может ли экземпляр сейчас отправлять".
type Guard interface {
	CanSendNow(ctx context.Context) (Decision, error)
}

// Recorder учитывает успешную отправку.
type Recorder interface {
	RecordSend(ctx context.Context) error
}

// Chain разрешает отправку, только если её разрешают все guards.
// Guards опрашиваются по порядку; первый отказ или ошибка прекращает опрос.
// Остаток — наименьший из ограничений guards.
type Chain []Guard

// CanSendNow опрашивает guards по порядку.
func (c Chain) CanSendNow(ctx context.Context) (Decision, error) {
	result := Allow()
	for _, g := range c {
		d, err := g.CanSendNow(ctx)
		if err != nil {
			return Decision{}, err
		}
		if !d.Allowed {
			return d, nil
		}
		if d.Remaining > 0 && (result.Remaining == 0 || d.Remaining < result.Remaining) {
			result.Remaining = d.Remaining
		}
	}
	return result, nil
}

// RecordSend передаёт отправку всем guards, которые ведут учёт.
func (c Chain) RecordSend(ctx context.Context) error {
	var result *multierror.Error
	for _, g := range c {
		r, ok := g.(Recorder)
		if !ok {
			continue
		}
		if err := r.RecordSend(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("%T: %w", g, err))
		}
	}
	return result.ErrorOrNil()
}
