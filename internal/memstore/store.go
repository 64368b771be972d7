// Package memstore — in-memory хранилище лидов, шаблонов и токенов отписки.
//
// Реализует те же контракты, что и repo (Postgres), и используется в тестах
// и при локальном запуске без БД.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/leadmailer/internal/domain"
	"github.com/shaiso/leadmailer/internal/repo"
)

// Store — потокобезопасное in-memory хранилище.
type Store struct {
	mu        sync.RWMutex
	leads     map[int64]domain.Lead
	templates map[int64]domain.Template
	tokens    map[int64]string
	nextID    int64
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		leads:     make(map[int64]domain.Lead),
		templates: make(map[int64]domain.Template),
		tokens:    make(map[int64]string),
	}
}

// SaveLead создаёт или обновляет лида. Лид с ID == 0 получает новый ID.
func (s *Store) SaveLead(_ context.Context, lead *domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lead.ID == 0 {
		s.nextID++
		lead.ID = s.nextID
	} else if lead.ID > s.nextID {
		s.nextID = lead.ID
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	s.leads[lead.ID] = cloneLead(*lead)
	return nil
}

// GetLead возвращает лида по ID.
func (s *Store) GetLead(_ context.Context, id int64) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	l := cloneLead(lead)
	return &l, nil
}

// SaveTemplate создаёт или обновляет шаблон.
func (s *Store) SaveTemplate(_ context.Context, tpl domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl.UpdatedAt.IsZero() {
		tpl.UpdatedAt = time.Now().UTC()
	}
	s.templates[tpl.ID] = tpl
	return nil
}

// SelectDue возвращает due лидов, упорядоченных по (next_send_at, id).
func (s *Store) SelectDue(_ context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []domain.Lead
	for _, lead := range s.leads {
		if lead.IsDue(now) {
			due = append(due, cloneLead(lead))
		}
	}

	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].NextSendAt, due[j].NextSendAt
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return due[i].ID < due[j].ID
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// MarkSent выставляет EmailSent = true.
func (s *Store) MarkSent(_ context.Context, leadID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[leadID]
	if !ok {
		return repo.ErrNotFound
	}
	lead.EmailSent = true
	lead.UpdatedAt = time.Now().UTC()
	s.leads[leadID] = lead
	return nil
}

// TemplatesFor возвращает шаблоны отложенной отправки для типа лида.
func (s *Store) TemplatesFor(_ context.Context, classification string) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Template
	for _, tpl := range s.templates {
		if tpl.DelayedSend && tpl.Classification == classification {
			out = append(out, tpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetOrCreateUnsubscribeToken возвращает стабильный токен лида.
func (s *Store) GetOrCreateUnsubscribeToken(_ context.Context, leadID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.tokens[leadID]; ok {
		return token, nil
	}
	token := uuid.NewString()
	s.tokens[leadID] = token
	return token, nil
}

// Unsubscribe помечает лида с токеном token отписавшимся.
func (s *Store) Unsubscribe(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for leadID, t := range s.tokens {
		if t != token {
			continue
		}
		lead, ok := s.leads[leadID]
		if !ok {
			return 0, repo.ErrNotFound
		}
		lead.Unsubscribed = true
		lead.UpdatedAt = time.Now().UTC()
		s.leads[leadID] = lead
		return leadID, nil
	}
	return 0, repo.ErrNotFound
}

func cloneLead(l domain.Lead) domain.Lead {
	if l.NextSendAt != nil {
		at := *l.NextSendAt
		l.NextSendAt = &at
	}
	return l
}
