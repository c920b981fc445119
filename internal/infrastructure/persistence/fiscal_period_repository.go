package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/infrastructure/fiscal"
	"github.com/hera/finance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFiscalPeriodRepository implements fiscal.PeriodRepository over the
// fiscal period table
type GormFiscalPeriodRepository struct {
	db *gorm.DB
}

// NewGormFiscalPeriodRepository creates a new GormFiscalPeriodRepository
func NewGormFiscalPeriodRepository(db *gorm.DB) *GormFiscalPeriodRepository {
	return &GormFiscalPeriodRepository{db: db}
}

// PeriodForDate returns the period covering the date, or nil when the
// fiscal calendar has no period there
func (r *GormFiscalPeriodRepository) PeriodForDate(ctx context.Context, orgID uuid.UUID, date time.Time) (*fiscal.Period, error) {
	var model models.FiscalPeriodModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND start_date <= ? AND end_date > ?", orgID, date, date).
		Order("start_date DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fiscal.Period{
		Code:      model.PeriodCode,
		StartDate: model.StartDate,
		EndDate:   model.EndDate,
		Status:    model.Status,
	}, nil
}

// UpsertPeriod creates or updates one fiscal period
func (r *GormFiscalPeriodRepository) UpsertPeriod(ctx context.Context, orgID uuid.UUID, period fiscal.Period) error {
	var existing models.FiscalPeriodModel
	err := r.db.WithContext(ctx).
		First(&existing, "organization_id = ? AND period_code = ?", orgID, period.Code).Error
	switch {
	case err == nil:
		return r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
			"start_date": period.StartDate,
			"end_date":   period.EndDate,
			"status":     period.Status,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		model := &models.FiscalPeriodModel{
			OrganizationID: orgID,
			PeriodCode:     period.Code,
			StartDate:      period.StartDate,
			EndDate:        period.EndDate,
			Status:         period.Status,
		}
		model.ID = uuid.New()
		return r.db.WithContext(ctx).Create(model).Error
	default:
		return err
	}
}
