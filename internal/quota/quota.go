// Package quota решает, может ли экземпляр сервиса сейчас отправлять почту.
//
// Реализации:
//   - Static      — фиксированное решение (SENDING_ENABLED, тесты)
//   - RedisGuard  — дневной лимит отправок, общий для всех экземпляров
package quota

import (
	"context"
	"errors"
)

// ErrQuotaExceeded — дневной лимит исчерпан.
var ErrQuotaExceeded = errors.New("daily send quota exceeded")

// Decision — ответ guard-а.
//
// Remaining > 0 — сколько писем ещё можно отправить (остаток дневного
// лимита). 0 при Allowed — ограничения нет.
type Decision struct {
	Allowed   bool
	Reason    string
	Remaining int64
}

// Allow — разрешающее решение без ограничения.
func Allow() Decision {
	return Decision{Allowed: true}
}

// AllowUpTo разрешает не более n отправок. n <= 0 — то же, что Deny.
func AllowUpTo(n int64) Decision {
	if n <= 0 {
		return Deny(ErrQuotaExceeded.Error())
	}
	return Decision{Allowed: true, Remaining: n}
}

// Deny — запрещающее решение с причиной.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Static всегда возвращает одно и то же решение.
type Static struct {
	Decision Decision
}

// NewStatic создаёт Static guard. При enabled=false отправка запрещена.
func NewStatic(enabled bool) *Static {
	if !enabled {
		return &Static{Decision: Deny("sending disabled by configuration")}
	}
	return &Static{Decision: Allow()}
}

// CanSendNow возвращает зафиксированное решение.
func (s *Static) CanSendNow(_ context.Context) (Decision, error) {
	return s.Decision, nil
}
