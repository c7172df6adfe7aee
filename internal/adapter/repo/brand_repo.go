package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"brandstudio/internal/domain"
	"brandstudio/internal/infra"
	"brandstudio/internal/sqlinline"
)

// BrandRepositoryPG implements domain.BrandProfileReader.
type BrandRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewBrandRepository creates a brand profile reader backed by PostgreSQL.
func NewBrandRepository(sql infra.SQLExecutor) *BrandRepositoryPG {
	return &BrandRepositoryPG{sql: sql}
}

// GetBrandProfile loads the brand identity of a business.
func (r *BrandRepositoryPG) GetBrandProfile(ctx context.Context, businessID string) (*domain.BrandProfile, error) {
	businessID = strings.TrimSpace(businessID)
	if _, err := uuid.Parse(businessID); err != nil {
		return nil, fmt.Errorf("%w: business id must be a uuid", domain.ErrInvalidInput)
	}
	var p domain.BrandProfile
	err := r.sql.QueryRow(ctx, sqlinline.QSelectBrandProfile, businessID).Scan(
		&p.BusinessID,
		&p.BusinessName,
		&p.Tagline,
		&p.PrimaryColor,
		&p.SecondaryColor,
		&p.AccentColor,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: get brand profile: %w", err)
	}
	return &p, nil
}

var _ domain.BrandProfileReader = (*BrandRepositoryPG)(nil)
