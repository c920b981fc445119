package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMasterDataRepository assembles the account derivation context from
// an organization's master data attributes. It implements the engine's
// MasterDataLookup port.
type GormMasterDataRepository struct {
	db *gorm.DB
}

// NewGormMasterDataRepository creates a new GormMasterDataRepository
func NewGormMasterDataRepository(db *gorm.DB) *GormMasterDataRepository {
	return &GormMasterDataRepository{db: db}
}

// ContextFor loads every finance attribute of the organization into a
// derivation context. Attributes are dotted-path rows; missing paths stay
// missing so derivation fails loudly rather than defaulting.
func (r *GormMasterDataRepository) ContextFor(ctx context.Context, event *posting.UniversalFinanceEvent) (posting.Context, error) {
	var attrs []models.MasterDataAttributeModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", event.OrganizationID).
		Find(&attrs).Error; err != nil {
		return nil, err
	}

	derivation := posting.Context{}
	for _, attr := range attrs {
		derivation.Set(posting.DottedPath(attr.Path), attr.Value)
	}
	return derivation, nil
}

// SetAttribute upserts one dotted-path attribute for an organization
func (r *GormMasterDataRepository) SetAttribute(ctx context.Context, orgID uuid.UUID, path, value string) error {
	var existing models.MasterDataAttributeModel
	err := r.db.WithContext(ctx).
		First(&existing, "organization_id = ? AND path = ?", orgID, path).Error
	if err == nil {
		return r.db.WithContext(ctx).Model(&existing).Update("value", value).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	model := &models.MasterDataAttributeModel{
		OrganizationID: orgID,
		Path:           path,
		Value:          value,
	}
	model.ID = uuid.New()
	return r.db.WithContext(ctx).Create(model).Error
}
