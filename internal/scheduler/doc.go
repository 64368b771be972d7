// Package scheduler реализует отложенную отправку писем лидам.
//
// Dispatcher периодически находит лидов с наступившим next_send_at,
// подбирает шаблоны по типу лида и отправляет каждую пару
// (lead, template), пока лид не помечен email_sent.
//
// Структура:
//   - sendtime.go   — расчёт момента отправки с учётом зоны лида
//   - scheduler.go  — Dispatcher, single-flight guard, RunCycle
//   - dispatch.go   — отправка одной пары (lead, template)
//   - variation.go  — кэш вариаций шаблонов на один цикл
//   - driver.go     — запуск циклов по таймеру
//   - ports.go      — интерфейсы внешних зависимостей
//
// Использование:
//
//	d := scheduler.New(scheduler.Config{
//	    Leads:     leadRepo,
//	    Templates: templateRepo,
//	    Tokens:    unsubscribeRepo,
//	    Transport: brevo,
//	    Processor: layout,
//	    Quota:     guard,
//	    Logger:    logger,
//	})
//
//	drv := scheduler.NewDriver(d, 5*time.Minute, logger)
//	drv.Start(ctx) // первый цикл сразу, далее каждые 5 минут
//	defer drv.Stop()
//
// Несколько экземпляров:
//
// Guard защищает только от пересечения циклов внутри процесса. При
// нескольких экземплярах возможны повторные отправки (at-least-once):
// флаг email_sent и идемпотентность транспорта сглаживают дубликаты.
// repo.LeaderLock в цепочке quota оставляет отправку одному экземпляру.
package scheduler
