// Package cli реализует команды leadmailer.
//
// # Команды
//
// Локальные (читают конфигурацию из окружения и .env):
//   - serve: диспетчер по таймеру, ops API и consumer lead.created
//   - run-once: один цикл диспетчера, отчёт в stdout
//   - migrate: миграции схемы Postgres
//
// Удалённые (HTTP к ops API запущенного serve, адрес в --ops-url):
//   - cycle trigger, cycle last
//   - lead qualify, lead rearm
//
// # Вывод
//
// Output печатает таблицы (text/tabwriter) или JSON с флагом --json.
// Данные идут в stdout, сообщения в stderr:
//
//	leadmailer cycle last --json | jq .sent
//
// App собирает зависимости сервиса из config.Config. Необязательные
// части (Redis, RabbitMQ, leader lock) подключаются только если заданы.
package cli
