package scheduler

import (
	"context"

	"github.com/shaiso/leadmailer/internal/domain"
)

// variationCache — вариации шаблонов в рамках одного цикла.
//
// Ключ — Template.CacheKey() (id + время изменения), так что
// отредактированный шаблон при следующем промахе получит новую запись.
// Кэш создаётся пустым в начале каждого цикла; цикл однопоточный,
// блокировка не нужна.
type variationCache struct {
	entries map[string]domain.Content
}

func newVariationCache() *variationCache {
	return &variationCache{entries: make(map[string]domain.Content)}
}

// get возвращает вариацию шаблона, вычисляя её при промахе.
// Ошибка вариации не фатальна: используется исходный текст шаблона.
func (c *variationCache) get(ctx context.Context, tpl *domain.Template, compute func(context.Context, domain.Content, string) (domain.Content, error)) (domain.Content, bool, error) {
	key := tpl.CacheKey()
	if content, ok := c.entries[key]; ok {
		return content, true, nil
	}

	raw := domain.Content{Subject: tpl.Subject, HTML: tpl.HTML}
	content, err := compute(ctx, raw, key)
	if err != nil {
		content = raw
	}
	c.entries[key] = content
	return content, false, err
}

func (c *variationCache) len() int {
	return len(c.entries)
}
