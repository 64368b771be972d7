package domain

import (
	"strconv"
	"time"
)

// Template — шаблон письма с плейсхолдерами.
//
// Для диспетчера шаблоны read-only. Кандидатами для лида являются только
// шаблоны с DelayedSend = true и совпадающим Classification.
type Template struct {
	// ID — идентификатор шаблона.
	ID int64 `json:"id"`

	// Name — отображаемое имя.
	Name string `json:"name"`

	// Subject — тема письма с плейсхолдерами ({{nome}}, ...).
	Subject string `json:"subject"`

	// HTML — тело письма с плейсхолдерами.
	HTML string `json:"html"`

	// DelayedSend — шаблон используется для отложенной отправки.
	DelayedSend bool `json:"delayed_send"`

	// Classification — тип лидов, к которым применим шаблон.
	Classification string `json:"classification"`

	// UpdatedAt — время последнего изменения, часть ключа кэша вариаций.
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheKey возвращает ключ кэша вариаций: id + время изменения.
// Редактирование шаблона даёт новый ключ.
func (t *Template) CacheKey() string {
	return strconv.FormatInt(t.ID, 10) + ":" + strconv.FormatInt(t.UpdatedAt.UnixNano(), 10)
}

// Content — тема и HTML, готовые к персонализации.
type Content struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}
