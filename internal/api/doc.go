// Package api — ops HTTP сервер leadmailer.
//
// Структура:
//   - handler.go     — Handler с DI (диспетчер, квалификатор, отписка)
//   - routes.go      — chi роутер
//   - middleware.go  — request id, logging, recovery
//   - response.go    — унифицированные JSON-ответы
//   - cycles.go      — ручной запуск цикла и статус
//   - leads.go       — квалификация и повторное вооружение лидов
//   - unsubscribe.go — страница отписки по токену из письма
//
// Endpoints:
//
//	GET  /healthz
//	GET  /metrics
//	POST /api/v1/cycles
//	GET  /api/v1/cycles/last
//	POST /api/v1/leads/{id}/qualify
//	POST /api/v1/leads/{id}/rearm
//	GET  /unsubscribe?token=...
package api
