package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/domain/shared"
	"github.com/hera/finance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrgConfigRepository loads and stores organization finance
// configuration. It implements the application layer's ConfigSource.
type GormOrgConfigRepository struct {
	db *gorm.DB
}

// NewGormOrgConfigRepository creates a new GormOrgConfigRepository
func NewGormOrgConfigRepository(db *gorm.DB) *GormOrgConfigRepository {
	return &GormOrgConfigRepository{db: db}
}

// ConfigFor returns the finance configuration for an organization.
// Returns shared.ErrNotFound for organizations never provisioned.
func (r *GormOrgConfigRepository) ConfigFor(ctx context.Context, orgID uuid.UUID) (posting.OrgFinanceConfig, error) {
	var model models.OrgFinanceConfigModel
	if err := r.db.WithContext(ctx).
		First(&model, "organization_id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return posting.OrgFinanceConfig{}, shared.ErrNotFound
		}
		return posting.OrgFinanceConfig{}, err
	}
	return model.ToDomain(), nil
}

// Save upserts the configuration for an organization
func (r *GormOrgConfigRepository) Save(ctx context.Context, config posting.OrgFinanceConfig) error {
	var existing models.OrgFinanceConfigModel
	err := r.db.WithContext(ctx).
		First(&existing, "organization_id = ?", config.OrganizationID).Error
	switch {
	case err == nil:
		existing.FromDomain(config)
		return r.db.WithContext(ctx).Save(&existing).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		model := &models.OrgFinanceConfigModel{}
		model.FromDomain(config)
		model.ID = uuid.New()
		return r.db.WithContext(ctx).Create(model).Error
	default:
		return err
	}
}
