package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
)

const layoutHTML = `<!DOCTYPE html>
<html lang="{{ .Lang }}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
  body { margin: 0; padding: 0; background: #f4f5f7; font-family: Arial, Helvetica, sans-serif; color: #1f2933; }
  .wrapper { max-width: 600px; margin: 0 auto; background: #ffffff; }
  .header { padding: 24px; border-bottom: 1px solid #e4e7eb; font-size: 18px; font-weight: bold; }
  .content { padding: 24px; line-height: 1.5; }
  .footer { padding: 16px 24px; font-size: 12px; color: #7b8794; text-align: center; }
  .footer a { color: #7b8794; }
</style>
</head>
<body>
<div class="wrapper">
  <div class="header">{{ .ServiceName }}</div>
  <div class="content">{{ .Body }}</div>
  <div class="footer">
    {{ .ServiceName }}{{ if .UnsubscribeURL }} · <a href="{{ .UnsubscribeURL }}">{{ .UnsubscribeText }}</a>{{ end }}
  </div>
</div>
</body>
</html>`

// Layout оборачивает HTML шаблона в стандартный макет письма.
type Layout struct {
	tmpl            *template.Template
	serviceName     string
	unsubscribeBase string
	lang            string
	unsubscribeText string
}

// LayoutConfig — конфигурация Layout.
type LayoutConfig struct {
	ServiceName        string
	UnsubscribeBaseURL string // токен добавляется как ?token=...
	Lang               string // default: "pt-BR"
	UnsubscribeText    string // default: "Cancelar inscrição"
}

// NewLayout создаёт Layout.
func NewLayout(cfg LayoutConfig) *Layout {
	lang := cfg.Lang
	if lang == "" {
		lang = "pt-BR"
	}
	text := cfg.UnsubscribeText
	if text == "" {
		text = "Cancelar inscrição"
	}
	return &Layout{
		tmpl:            template.Must(template.New("layout").Parse(layoutHTML)),
		serviceName:     cfg.ServiceName,
		unsubscribeBase: cfg.UnsubscribeBaseURL,
		lang:            lang,
		unsubscribeText: text,
	}
}

// Apply возвращает итоговый HTML. Тело шаблона считается доверенным HTML.
func (l *Layout) Apply(rawHTML, unsubscribeToken string) (string, error) {
	data := struct {
		Lang            string
		ServiceName     string
		Body            template.HTML
		UnsubscribeURL  string
		UnsubscribeText string
	}{
		Lang:            l.lang,
		ServiceName:     l.serviceName,
		Body:            template.HTML(rawHTML), //nolint:gosec // шаблоны пишут администраторы
		UnsubscribeURL:  l.unsubscribeURL(unsubscribeToken),
		UnsubscribeText: l.unsubscribeText,
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute layout: %w", err)
	}
	return buf.String(), nil
}

func (l *Layout) unsubscribeURL(token string) string {
	if token == "" || l.unsubscribeBase == "" {
		return ""
	}
	u, err := url.Parse(l.unsubscribeBase)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
