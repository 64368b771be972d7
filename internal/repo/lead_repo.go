package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/leadmailer/internal/domain"
)

const leadColumns = `
	id, name, email, phone, classification, timezone, ip_address, country_code,
	next_send_at, email_sent, delayed_send_eligible, unsubscribed, created_at, updated_at
`

// LeadRepo — репозиторий лидов.
type LeadRepo struct {
	pool *pgxpool.Pool
}

// NewLeadRepo создаёт новый LeadRepo.
func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

// SaveLead создаёт лида (ID == 0) или обновляет существующего.
func (r *LeadRepo) SaveLead(ctx context.Context, lead *domain.Lead) error {
	now := time.Now().UTC()
	lead.UpdatedAt = now

	if lead.ID == 0 {
		lead.CreatedAt = now
		err := r.pool.QueryRow(ctx, `
			INSERT INTO leads (name, email, phone, classification, timezone, ip_address, country_code,
			                   next_send_at, email_sent, delayed_send_eligible, unsubscribed, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id
		`,
			lead.Name,
			lead.Email,
			nullString(lead.Phone),
			lead.Classification,
			nullString(lead.Timezone),
			nullString(lead.IPAddress),
			nullString(lead.CountryCode),
			lead.NextSendAt,
			lead.EmailSent,
			lead.DelayedSendEligible,
			lead.Unsubscribed,
			lead.CreatedAt,
			lead.UpdatedAt,
		).Scan(&lead.ID)
		if isDuplicateKey(err) {
			return fmt.Errorf("insert lead %s: %w", lead.Email, ErrAlreadyExists)
		}
		if err != nil {
			return fmt.Errorf("insert lead: %w", err)
		}
		return nil
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET name = $2, email = $3, phone = $4, classification = $5, timezone = $6,
		    ip_address = $7, country_code = $8, next_send_at = $9, email_sent = $10,
		    delayed_send_eligible = $11, unsubscribed = $12, updated_at = $13
		WHERE id = $1
	`,
		lead.ID,
		lead.Name,
		lead.Email,
		nullString(lead.Phone),
		lead.Classification,
		nullString(lead.Timezone),
		nullString(lead.IPAddress),
		nullString(lead.CountryCode),
		lead.NextSendAt,
		lead.EmailSent,
		lead.DelayedSendEligible,
		lead.Unsubscribed,
		lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLead возвращает лида по ID.
func (r *LeadRepo) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// SelectDue возвращает лидов, которым пора отправить письмо.
// limit <= 0 — без ограничения.
func (r *LeadRepo) SelectDue(ctx context.Context, now time.Time, limit int) ([]domain.Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE next_send_at IS NOT NULL
		  AND next_send_at <= $1
		  AND email_sent = FALSE
		  AND delayed_send_eligible = TRUE
		  AND unsubscribed = FALSE
		ORDER BY next_send_at ASC, id ASC
		LIMIT $2
	`
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}

	rows, err := r.pool.Query(ctx, query, now.UTC(), limitArg)
	if err != nil {
		return nil, fmt.Errorf("select due leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

// MarkSent выставляет email_sent = true. Повторный вызов безопасен.
func (r *LeadRepo) MarkSent(ctx context.Context, leadID int64) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE leads SET email_sent = TRUE, updated_at = NOW() WHERE id = $1
	`, leadID)
	if err != nil {
		return fmt.Errorf("mark lead sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Unsubscribe помечает лида отписавшимся по токену.
func (r *LeadRepo) Unsubscribe(ctx context.Context, token string) (int64, error) {
	var leadID int64
	err := r.pool.QueryRow(ctx, `
		UPDATE leads SET unsubscribed = TRUE, updated_at = NOW()
		WHERE id = (SELECT lead_id FROM unsubscribe_tokens WHERE token = $1)
		RETURNING id
	`, token).Scan(&leadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("unsubscribe lead: %w", err)
	}
	return leadID, nil
}

// scanLead сканирует одну строку в Lead. Подходит и для pgx.Row, и для pgx.Rows.
func scanLead(row pgx.Row) (*domain.Lead, error) {
	var lead domain.Lead
	var phone, timezone, ip, country *string

	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Email,
		&phone,
		&lead.Classification,
		&timezone,
		&ip,
		&country,
		&lead.NextSendAt,
		&lead.EmailSent,
		&lead.DelayedSendEligible,
		&lead.Unsubscribed,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan lead: %w", err)
	}

	lead.Phone = fromNull(phone)
	lead.Timezone = fromNull(timezone)
	lead.IPAddress = fromNull(ip)
	lead.CountryCode = fromNull(country)
	if lead.NextSendAt != nil {
		at := lead.NextSendAt.UTC()
		lead.NextSendAt = &at
	}
	return &lead, nil
}
