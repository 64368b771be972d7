package mailer

import (
	"html"
	"regexp"
	"strings"
)

// placeholderRe — {{ key }}, пробелы внутри скобок допустимы.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Personalize подставляет значения vars вместо плейсхолдеров.
// Ключи сравниваются без учёта регистра; неизвестные плейсхолдеры остаются как есть.
// Значения вставляются как есть, поэтому для HTML тела письма нужен PersonalizeHTML.
func Personalize(text string, vars map[string]string) string {
	return substitute(text, vars, nil)
}

// PersonalizeHTML — Personalize для HTML: значения экранируются, чтобы данные
// лида (имя, телефон из формы) не попадали в письмо как разметка.
func PersonalizeHTML(text string, vars map[string]string) string {
	return substitute(text, vars, html.EscapeString)
}

func substitute(text string, vars map[string]string, escape func(string) string) string {
	if !strings.Contains(text, "{{") || len(vars) == 0 {
		return text
	}

	lower := make(map[string]string, len(vars))
	for k, v := range vars {
		if escape != nil {
			v = escape(v)
		}
		lower[strings.ToLower(k)] = v
	}

	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := lower[strings.ToLower(key)]; ok {
			return v
		}
		return m
	})
}
