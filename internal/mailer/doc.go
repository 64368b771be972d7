// Package mailer содержит всё, что превращает шаблон в доставленное письмо.
//
// Структура:
//   - personalize.go — подстановка плейсхолдеров {{nome}}, {{email}}, ...
//   - layout.go      — стандартная обёртка письма (header, CSS, footer, отписка)
//   - variation.go   — вариации текста (passthrough)
//   - brevo.go       — транспорт через Brevo transactional API
package mailer
