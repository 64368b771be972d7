package domain

import (
	"fmt"
	"strings"
)

// DelayUnit — единица задержки отложенной отправки.
type DelayUnit string

const (
	// DelayUnitHours — задержка в часах, целевое время суток игнорируется.
	DelayUnitHours DelayUnit = "hours"

	// DelayUnitDays — задержка в днях по календарю зоны лида.
	DelayUnitDays DelayUnit = "days"

	// DelayUnitWeeks — задержка в неделях (×7 дней).
	DelayUnitWeeks DelayUnit = "weeks"
)

// IsValid проверяет, что единица поддерживается.
func (u DelayUnit) IsValid() bool {
	switch u {
	case DelayUnitHours, DelayUnitDays, DelayUnitWeeks:
		return true
	default:
		return false
	}
}

// ParseDelayUnit разбирает единицу задержки без учёта регистра.
func ParseDelayUnit(s string) (DelayUnit, error) {
	u := DelayUnit(strings.ToLower(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", fmt.Errorf("unknown delay unit %q", s)
	}
	return u, nil
}

// DelayRule — правило отложенной отправки: "через Value Unit в TargetTime".
type DelayRule struct {
	Value int       `json:"value"`
	Unit  DelayUnit `json:"unit"`

	// TargetTime — "HH:MM" в зоне лида. Пустая строка — "12:00".
	// Для DelayUnitHours не используется.
	TargetTime string `json:"target_time,omitempty"`
}

// Validate проверяет правило.
func (r DelayRule) Validate() error {
	if r.Value < 0 {
		return fmt.Errorf("delay value must not be negative, got %d", r.Value)
	}
	if !r.Unit.IsValid() {
		return fmt.Errorf("unknown delay unit %q", r.Unit)
	}
	return nil
}
