package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRuleRepository loads and stores per-organization posting rule
// overrides. It implements the application layer's RuleSource.
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// RulesFor returns the enabled rule overrides for an organization
func (r *GormRuleRepository) RulesFor(ctx context.Context, orgID uuid.UUID) ([]posting.PostingRule, error) {
	var ruleModels []models.PostingRuleModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND enabled = ?", orgID, true).
		Order("smart_code ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}

	rules := make([]posting.PostingRule, 0, len(ruleModels))
	for _, m := range ruleModels {
		rule := posting.PostingRule(m.Document)
		if rule.SmartCode == "" {
			rule.SmartCode = posting.SmartCode(m.SmartCode)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Save upserts one rule override keyed by smart code. The document is
// validated before it is written; a malformed rule never reaches storage.
func (r *GormRuleRepository) Save(ctx context.Context, orgID uuid.UUID, rule posting.PostingRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid posting rule %q: %w", rule.SmartCode, err)
	}

	var existing models.PostingRuleModel
	err := r.db.WithContext(ctx).
		First(&existing, "organization_id = ? AND smart_code = ?", orgID, rule.SmartCode.String()).Error
	switch {
	case err == nil:
		return r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
			"document": models.RuleJSON(rule),
			"enabled":  true,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		model := &models.PostingRuleModel{
			SmartCode: rule.SmartCode.String(),
			Document:  models.RuleJSON(rule),
			Enabled:   true,
		}
		model.ID = uuid.New()
		model.OrganizationID = orgID
		return r.db.WithContext(ctx).Create(model).Error
	default:
		return err
	}
}

// Disable soft-disables one rule override; the layered defaults apply again
func (r *GormRuleRepository) Disable(ctx context.Context, orgID uuid.UUID, smartCode posting.SmartCode) error {
	return r.db.WithContext(ctx).
		Model(&models.PostingRuleModel{}).
		Where("organization_id = ? AND smart_code = ?", orgID, smartCode.String()).
		Update("enabled", false).Error
}
