package repository

import (
	"context"

	"freight/internal/domain"
)

// RateSettingRepository reads the rate configuration table.
// Settings are never written by this engine.
type RateSettingRepository interface {
	// Lookup returns the value for a key within a category.
	// The second return is false when the key is not configured.
	Lookup(ctx context.Context, key, category string) (float64, bool, error)
}

// RateTemplateRepository reads reusable per-mile rate templates.
type RateTemplateRepository interface {
	// GetByID retrieves a rate template by ID.
	GetByID(ctx context.Context, id string) (*domain.RateTemplate, error)
}
