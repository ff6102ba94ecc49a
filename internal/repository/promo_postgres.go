package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"booking-system/internal/clock"
	"booking-system/internal/database"
	"booking-system/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const promoColumns = `id, code, title, description, type, scope, value, status, valid_from, valid_until,
	usage_limit, current_usage, restrictions, stacking_rules, analytics, last_used_at, paused_at,
	pause_reason, deleted_at, version, created_at, updated_at`

const usageColumns = `id, user_id, booking_id, discount_amount, original_amount, final_amount,
	used_at, ip_address, user_agent, metadata`

// PostgresPromoRepository хранит промокоды в Postgres. Mutate берёт строку
// под SELECT ... FOR UPDATE и дополнительно сверяет версию при записи.
type PostgresPromoRepository struct {
	db    *database.DB
	clock clock.Clock
}

// NewPostgresPromoRepository создаёт репозиторий промокодов.
func NewPostgresPromoRepository(db *database.DB, clk clock.Clock) *PostgresPromoRepository {
	return &PostgresPromoRepository{db: db, clock: clk}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresPromoRepository) Create(ctx context.Context, p models.PromoCode) error {
	restrictions, stacking, analytics, err := marshalPromoDocuments(p)
	if err != nil {
		return err
	}
	if p.Version == 0 {
		p.Version = 1
	}

	query := `INSERT INTO promo_codes (` + promoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Code, p.Title, p.Description, p.Type, p.Scope, p.Value, p.Status, p.ValidFrom, p.ValidUntil,
		p.UsageLimit, p.CurrentUsage, restrictions, stacking, analytics, p.LastUsedAt, p.PausedAt,
		p.PauseReason, p.DeletedAt, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapPQError(err, "failed to create promo code")
	}
	return nil
}

func (r *PostgresPromoRepository) Get(ctx context.Context, code string) (models.PromoCode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, code)
	p, err := scanPromo(row)
	if err != nil {
		return models.PromoCode{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+usageColumns+` FROM promo_usages WHERE promo_id = $1 ORDER BY used_at`, p.ID)
	if err != nil {
		return models.PromoCode{}, fmt.Errorf("failed to load promo usage history: %w", err)
	}
	p.UsageHistory, err = scanUsages(rows)
	if err != nil {
		return models.PromoCode{}, err
	}
	return p, nil
}

func (r *PostgresPromoRepository) List(ctx context.Context, limit, offset int) ([]models.PromoCode, error) {
	limit, offset = normalizePage(limit, offset)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+promoColumns+` FROM promo_codes ORDER BY created_at DESC, code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list promo codes: %w", err)
	}
	defer rows.Close()

	promos := make([]models.PromoCode, 0)
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate promo codes: %w", err)
	}
	return promos, nil
}

func (r *PostgresPromoRepository) Mutate(ctx context.Context, code, userID string, fn MutateFunc) (models.PromoCode, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PromoCode{}, mapPQError(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanPromo(tx.QueryRowContext(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE code = $1 FOR UPDATE`, code))
	if err != nil {
		return models.PromoCode{}, err
	}

	dayStart := r.clock.Now().UTC().Truncate(24 * time.Hour)
	rows, err := tx.QueryContext(ctx,
		`SELECT `+usageColumns+` FROM promo_usages
		WHERE promo_id = $1 AND (user_id = $2 OR used_at >= $3)
		ORDER BY used_at`, current.ID, userID, dayStart)
	if err != nil {
		return models.PromoCode{}, mapPQError(err, "failed to load promo usage history")
	}
	current.UsageHistory, err = scanUsages(rows)
	if err != nil {
		return models.PromoCode{}, err
	}

	next, usage, err := fn(current)
	if err != nil {
		return models.PromoCode{}, err
	}
	next.ID = current.ID
	next.Code = current.Code
	next.Version = current.Version + 1

	restrictions, stacking, analytics, err := marshalPromoDocuments(next)
	if err != nil {
		return models.PromoCode{}, err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE promo_codes
		SET title = $1, description = $2, value = $3, status = $4, valid_from = $5, valid_until = $6,
			usage_limit = $7, current_usage = $8, restrictions = $9, stacking_rules = $10, analytics = $11,
			last_used_at = $12, paused_at = $13, pause_reason = $14, deleted_at = $15, version = $16, updated_at = $17
		WHERE id = $18 AND version = $19`,
		next.Title, next.Description, next.Value, next.Status, next.ValidFrom, next.ValidUntil,
		next.UsageLimit, next.CurrentUsage, restrictions, stacking, analytics,
		next.LastUsedAt, next.PausedAt, next.PauseReason, next.DeletedAt, next.Version, next.UpdatedAt,
		current.ID, current.Version,
	)
	if err != nil {
		return models.PromoCode{}, mapPQError(err, "failed to update promo code")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.PromoCode{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return models.PromoCode{}, ErrConcurrentUpdate
	}

	if usage != nil {
		if err := insertUsage(ctx, tx, current.ID, *usage); err != nil {
			return models.PromoCode{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return models.PromoCode{}, mapPQError(err, "failed to commit promo update")
	}
	return next, nil
}

func insertUsage(ctx context.Context, tx *sql.Tx, promoID uuid.UUID, u models.UsageRecord) error {
	var metadata interface{}
	if len(u.Metadata) > 0 {
		data, err := json.Marshal(u.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal usage metadata: %w", err)
		}
		metadata = string(data)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO promo_usages (id, promo_id, user_id, booking_id, discount_amount, original_amount,
			final_amount, used_at, ip_address, user_agent, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, promoID, u.UserID, u.BookingID, u.DiscountAmount, u.OriginalAmount,
		u.FinalAmount, u.UsedAt, u.IPAddress, u.UserAgent, metadata,
	)
	if err != nil {
		return mapPQError(err, "failed to insert promo usage")
	}
	return nil
}

func scanPromo(row rowScanner) (models.PromoCode, error) {
	var (
		p                                 models.PromoCode
		restrictions, stacking, analytics []byte
	)
	err := row.Scan(
		&p.ID, &p.Code, &p.Title, &p.Description, &p.Type, &p.Scope, &p.Value, &p.Status, &p.ValidFrom, &p.ValidUntil,
		&p.UsageLimit, &p.CurrentUsage, &restrictions, &stacking, &analytics, &p.LastUsedAt, &p.PausedAt,
		&p.PauseReason, &p.DeletedAt, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PromoCode{}, ErrNotFound
		}
		return models.PromoCode{}, mapPQError(err, "failed to scan promo code")
	}

	if err := unmarshalDocument(restrictions, &p.Restrictions); err != nil {
		return models.PromoCode{}, fmt.Errorf("failed to decode restrictions of %s: %w", p.Code, err)
	}
	if err := unmarshalDocument(stacking, &p.StackingRules); err != nil {
		return models.PromoCode{}, fmt.Errorf("failed to decode stacking rules of %s: %w", p.Code, err)
	}
	if err := unmarshalDocument(analytics, &p.Analytics); err != nil {
		return models.PromoCode{}, fmt.Errorf("failed to decode analytics of %s: %w", p.Code, err)
	}
	return p, nil
}

func scanUsages(rows *sql.Rows) ([]models.UsageRecord, error) {
	defer rows.Close()

	var history []models.UsageRecord
	for rows.Next() {
		var (
			u        models.UsageRecord
			metadata []byte
		)
		if err := rows.Scan(&u.ID, &u.UserID, &u.BookingID, &u.DiscountAmount, &u.OriginalAmount,
			&u.FinalAmount, &u.UsedAt, &u.IPAddress, &u.UserAgent, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan promo usage: %w", err)
		}
		if err := unmarshalDocument(metadata, &u.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode usage metadata: %w", err)
		}
		history = append(history, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate promo usages: %w", err)
	}
	return history, nil
}

// marshalPromoDocuments кодирует JSONB-поля строками: lib/pq передаёт []byte как bytea.
func marshalPromoDocuments(p models.PromoCode) (restrictions, stacking, analytics string, err error) {
	if restrictions, err = marshalDocument(p.Restrictions); err != nil {
		return "", "", "", fmt.Errorf("failed to marshal restrictions: %w", err)
	}
	if stacking, err = marshalDocument(p.StackingRules); err != nil {
		return "", "", "", fmt.Errorf("failed to marshal stacking rules: %w", err)
	}
	if analytics, err = marshalDocument(p.Analytics); err != nil {
		return "", "", "", fmt.Errorf("failed to marshal analytics: %w", err)
	}
	return restrictions, stacking, analytics, nil
}

func marshalDocument(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalDocument(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// mapPQError переводит коды Postgres в ошибки репозитория.
func mapPQError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", msg, ErrAlreadyExists)
		case "40001", "40P01":
			return fmt.Errorf("%s: %w", msg, ErrConcurrentUpdate)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
