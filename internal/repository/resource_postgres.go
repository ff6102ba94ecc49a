package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"booking-system/internal/database"
	"booking-system/internal/models"

	"github.com/google/uuid"
)

// PostgresResourceRepository хранит ресурсы, тариф лежит в JSONB.
type PostgresResourceRepository struct {
	db *database.DB
}

// NewPostgresResourceRepository создаёт репозиторий ресурсов.
func NewPostgresResourceRepository(db *database.DB) *PostgresResourceRepository {
	return &PostgresResourceRepository{db: db}
}

func (r *PostgresResourceRepository) Create(ctx context.Context, res models.Resource) error {
	pricing, err := marshalDocument(res.Pricing)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing: %w", err)
	}

	query := `
		INSERT INTO resources (id, name, category_id, location_id, pricing, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query, res.ID, res.Name, res.CategoryID, res.LocationID, pricing, res.CreatedAt, res.UpdatedAt); err != nil {
		return mapPQError(err, "failed to create resource")
	}
	return nil
}

func (r *PostgresResourceRepository) Get(ctx context.Context, id uuid.UUID) (models.Resource, error) {
	query := `
		SELECT id, name, category_id, location_id, pricing, created_at, updated_at
		FROM resources
		WHERE id = $1
	`
	return scanResource(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresResourceRepository) List(ctx context.Context, limit, offset int) ([]models.Resource, error) {
	limit, offset = normalizePage(limit, offset)
	query := `
		SELECT id, name, category_id, location_id, pricing, created_at, updated_at
		FROM resources
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	resources := make([]models.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resources: %w", err)
	}
	return resources, nil
}

func (r *PostgresResourceRepository) Update(ctx context.Context, res models.Resource) error {
	pricing, err := marshalDocument(res.Pricing)
	if err != nil {
		return fmt.Errorf("failed to marshal pricing: %w", err)
	}

	query := `
		UPDATE resources
		SET name = $1, category_id = $2, location_id = $3, pricing = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query, res.Name, res.CategoryID, res.LocationID, pricing, res.UpdatedAt, res.ID)
	if err != nil {
		return mapPQError(err, "failed to update resource")
	}
	return requireAffected(result)
}

func (r *PostgresResourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM resources WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	return requireAffected(result)
}

func scanResource(row rowScanner) (models.Resource, error) {
	var (
		res     models.Resource
		pricing []byte
	)
	if err := row.Scan(&res.ID, &res.Name, &res.CategoryID, &res.LocationID, &pricing, &res.CreatedAt, &res.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Resource{}, ErrNotFound
		}
		return models.Resource{}, fmt.Errorf("failed to scan resource: %w", err)
	}
	if err := unmarshalDocument(pricing, &res.Pricing); err != nil {
		return models.Resource{}, fmt.Errorf("failed to decode pricing of %s: %w", res.ID, err)
	}
	return res, nil
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
