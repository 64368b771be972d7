// Package telemetry обеспечивает наблюдаемость сервиса.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики диспетчера
//   - tracing.go — OpenTelemetry spans для циклов и отправок
//
// Метрики экспортируются на /metrics ops-сервера.
package telemetry
