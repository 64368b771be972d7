package scheduler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // зоны нужны и в контейнерах без /usr/share/zoneinfo

	"github.com/shaiso/leadmailer/internal/domain"
)

// DefaultTargetTime — время суток отправки, если TargetTime не задано или некорректно.
const DefaultTargetTime = "12:00"

// SendTimeCalculator вычисляет момент отправки для нового лида.
//
// Вся арифметика — в ComputeSendInstant; калькулятор только подставляет
// текущее время и логирует fallback-ы.
type SendTimeCalculator struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewSendTimeCalculator создаёт калькулятор. now == nil — time.Now.
func NewSendTimeCalculator(now func() time.Time, logger *slog.Logger) *SendTimeCalculator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SendTimeCalculator{now: now, logger: logger}
}

// Compute возвращает момент отправки (UTC) по правилу в зоне zoneID.
// Никогда не возвращает ошибку: неисправимые входные данные дают fallback.
func (c *SendTimeCalculator) Compute(rule domain.DelayRule, zoneID string) time.Time {
	at, fault := ComputeSendInstant(c.now(), rule.Value, rule.Unit, rule.TargetTime, zoneID)
	if fault != nil {
		c.logger.Warn("send time calculated with fallback",
			"zone", zoneID,
			"delay_value", rule.Value,
			"delay_unit", rule.Unit,
			"target_time", rule.TargetTime,
			"error", fault,
		)
	}
	return at
}

// ComputeSendInstant — чистая функция расчёта момента отправки.
//
//   - hours: now + value часов, targetTime игнорируется.
//   - days/weeks: дата "сегодня" в зоне zoneID + value дней (недели ×7),
//     время суток targetTime ("HH:MM", по умолчанию 12:00) по часам этой зоны.
//
// Результат всегда валиден. Ненулевой fault означает, что был применён
// fallback (некорректное время суток или зона); его нужно только залогировать.
func ComputeSendInstant(now time.Time, value int, unit domain.DelayUnit, targetTime, zoneID string) (time.Time, error) {
	if value < 0 {
		value = 0
	}

	switch unit {
	case domain.DelayUnitHours:
		return addHours(now, value), nil
	case domain.DelayUnitDays, domain.DelayUnitWeeks:
	default:
		return addHours(now, value), fmt.Errorf("unknown delay unit %q, treated as hours", unit)
	}

	days := value
	if unit == domain.DelayUnitWeeks {
		days = value * 7
	}

	loc, err := loadZone(zoneID)
	if err != nil {
		return addHours(now, value), fmt.Errorf("zone %q: %w, treated as %d hours", zoneID, err, value)
	}

	var fault error
	hour, minute, ok := parseTimeOfDay(targetTime)
	if !ok {
		if targetTime != "" {
			fault = fmt.Errorf("malformed target time %q, using %s", targetTime, DefaultTargetTime)
		}
		hour, minute, _ = parseTimeOfDay(DefaultTargetTime)
	}

	y, m, d := now.In(loc).Date()
	return WallClockToUTC(y, m, d+days, hour, minute, loc), fault
}

// WallClockToUTC переводит время по часам зоны loc в UTC.
//
// Смещение берётся на целевую дату, а не на "сейчас", поэтому переходы
// на летнее время между now и датой отправки учитываются. Переполнение
// дня (d+days > дней в месяце) нормализуется time.Date.
func WallClockToUTC(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, loc).UTC()
}

func addHours(now time.Time, hours int) time.Time {
	return now.Add(time.Duration(hours) * time.Hour).UTC()
}

func loadZone(zoneID string) (*time.Location, error) {
	if strings.TrimSpace(zoneID) == "" {
		return nil, fmt.Errorf("empty zone id")
	}
	return time.LoadLocation(zoneID)
}

// parseTimeOfDay разбирает "HH:MM". Компоненты должны быть числами в допустимых границах.
func parseTimeOfDay(s string) (hour, minute int, ok bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
