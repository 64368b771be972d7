package domain

import (
	"time"
)

// Lead — получатель отложенной рассылки.
//
// Жизненный цикл полей отложенной отправки:
//
//	qualify → NextSendAt = calc(...), EmailSent = false, DelayedSendEligible = true
//	dispatch (успех transport) → EmailSent = true
//
// NextSendAt вычисляется один раз при квалификации и не пересчитывается диспетчером.
type Lead struct {
	// ID — идентификатор лида в store.
	ID int64 `json:"id"`

	// Name — имя лида, подставляется в шаблоны как {{nome}} / {{name}}.
	Name string `json:"name"`

	// Email — адрес получателя.
	Email string `json:"email"`

	// Phone — телефон (опционально, доступен как плейсхолдер).
	Phone string `json:"phone,omitempty"`

	// Classification — тип лида (например, "novo_cadastro").
	// Определяет, какие шаблоны применимы.
	Classification string `json:"classification"`

	// Timezone — IANA зона лида. Пустая строка — зона ещё не определена.
	Timezone string `json:"timezone,omitempty"`

	// IPAddress и CountryCode — исходные данные для Timezone Resolver.
	IPAddress   string `json:"ip_address,omitempty"`
	CountryCode string `json:"country_code,omitempty"`

	// NextSendAt — момент (UTC), начиная с которого лид становится due.
	// Nil — лид никогда не выбирается.
	NextSendAt *time.Time `json:"next_send_at,omitempty"`

	// EmailSent — письмо по отложенному правилу уже отправлено.
	EmailSent bool `json:"email_sent"`

	// DelayedSendEligible — лид прошёл квалификацию для отложенной отправки.
	DelayedSendEligible bool `json:"delayed_send_eligible"`

	// Unsubscribed — лид отписался, рассылка запрещена.
	Unsubscribed bool `json:"unsubscribed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDue проверяет, пора ли отправлять письмо лиду.
// Это та же выборка, что выполняет store в SelectDue.
func (l *Lead) IsDue(now time.Time) bool {
	if l.NextSendAt == nil {
		return false
	}
	if l.EmailSent || !l.DelayedSendEligible || l.Unsubscribed {
		return false
	}
	return !l.NextSendAt.After(now)
}

// Arm подготавливает лида к отложенной отправке.
// Сбрасывать EmailSent можно только вместе с установкой нового NextSendAt.
func (l *Lead) Arm(nextSendAt time.Time) {
	at := nextSendAt.UTC()
	l.NextSendAt = &at
	l.EmailSent = false
	l.DelayedSendEligible = true
	l.UpdatedAt = time.Now().UTC()
}

// Vars возвращает плейсхолдеры лида для персонализации шаблона.
func (l *Lead) Vars() map[string]string {
	first := FirstName(l.Name)
	return map[string]string{
		"nome":          l.Name,
		"name":          l.Name,
		"primeiro_nome": first,
		"first_name":    first,
		"email":         l.Email,
		"telefone":      l.Phone,
		"phone":         l.Phone,
	}
}

// FirstName возвращает первое слово имени.
func FirstName(name string) string {
	for i, r := range name {
		if r == ' ' || r == '\t' {
			return name[:i]
		}
	}
	return name
}
