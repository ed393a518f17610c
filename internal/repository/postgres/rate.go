package postgres

import (
	"context"
	"database/sql"
	"errors"

	"freight/internal/domain"
	"freight/internal/repository"
)

// RateSettingRepository is a PostgreSQL implementation of
// repository.RateSettingRepository.
type RateSettingRepository struct {
	q Querier
}

// NewRateSettingRepository creates a new PostgreSQL rate setting repository.
func NewRateSettingRepository(db *sql.DB) *RateSettingRepository {
	return &RateSettingRepository{q: db}
}

// Lookup returns the value for a key within a category.
func (r *RateSettingRepository) Lookup(ctx context.Context, key, category string) (float64, bool, error) {
	query := `SELECT value FROM rate_settings WHERE key = $1 AND category = $2`

	var value float64
	err := r.q.QueryRowContext(ctx, query, key, category).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}

	return value, true, nil
}

// RateTemplateRepository is a PostgreSQL implementation of
// repository.RateTemplateRepository.
type RateTemplateRepository struct {
	q Querier
}

// NewRateTemplateRepository creates a new PostgreSQL rate template repository.
func NewRateTemplateRepository(db *sql.DB) *RateTemplateRepository {
	return &RateTemplateRepository{q: db}
}

// GetByID retrieves a rate template by ID.
func (r *RateTemplateRepository) GetByID(ctx context.Context, id string) (*domain.RateTemplate, error) {
	query := `
		SELECT id, name, fixed_cpm, wage_cpm, add_ons_cpm, rolling_cpm
		FROM rate_templates WHERE id = $1
	`

	var tmpl domain.RateTemplate
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&tmpl.ID,
		&tmpl.Name,
		&tmpl.FixedCPM,
		&tmpl.WageCPM,
		&tmpl.AddOnsCPM,
		&tmpl.RollingCPM,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &tmpl, nil
}

// Ensure implementations satisfy the repository interfaces.
var (
	_ repository.RateSettingRepository  = (*RateSettingRepository)(nil)
	_ repository.RateTemplateRepository = (*RateTemplateRepository)(nil)
)
