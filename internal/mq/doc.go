// Package mq — RabbitMQ инфраструктура leadmailer.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — события доставки писем (email.sent / email.failed)
//   - consumer.go   — запросы на квалификацию лидов (lead.created)
//
// Exchanges:
//   - leadmailer.dispatch — история доставки, читают CRM и аналитика
//   - leadmailer.leads    — новые лиды от форм захвата
//   - leadmailer.dlq      — сообщения, которые не удалось обработать
package mq
