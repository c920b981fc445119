package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/domain/shared"
	"github.com/hera/finance/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormJournalRepository implements the posting engine's JournalStore and
// the application layer's JournalFinder over the journal and staging
// tables. Commit and staging are idempotent: the unique index on the
// idempotency key is the hard guard, duplicate submissions read back the
// original artifact.
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository creates a new GormJournalRepository
func NewGormJournalRepository(db *gorm.DB) *GormJournalRepository {
	return &GormJournalRepository{db: db}
}

// CommitJournal persists a journal and returns its code. Committing the
// same idempotency key again returns the code of the first commit.
func (r *GormJournalRepository) CommitJournal(ctx context.Context, journal *posting.Journal) (string, error) {
	var code string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findJournalModelByKey(tx, journal.OrganizationID, journal.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			code = existing.JournalCode
			return nil
		}

		if journal.JournalCode == "" {
			journal.JournalCode, err = nextDocumentCode(tx, &models.JournalEntryModel{}, "JE", journal.OrganizationID, journal.EventTime)
			if err != nil {
				return err
			}
		}

		model := &models.JournalEntryModel{}
		model.FromDomain(journal)
		if err := tx.Create(model).Error; err != nil {
			if !isDuplicateKey(err) {
				return err
			}
			// Lost a race on the idempotency key; the winner's journal is ours
			existing, ferr := findJournalModelByKey(tx, journal.OrganizationID, journal.IdempotencyKey)
			if ferr != nil {
				return ferr
			}
			if existing == nil {
				return err
			}
			code = existing.JournalCode
			return nil
		}
		code = model.JournalCode
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("committing journal: %w", err)
	}
	return code, nil
}

// StageForReview persists a staged journal and returns its review ref.
// Staging the same idempotency key again returns the first ref.
func (r *GormJournalRepository) StageForReview(ctx context.Context, staged *posting.StagedJournal) (string, error) {
	var ref string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findStagedModelByKey(tx, staged.OrganizationID, staged.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			ref = existing.StagedRef
			return nil
		}

		if staged.StagedRef == "" {
			staged.StagedRef, err = nextDocumentCode(tx, &models.StagedJournalModel{}, "STG", staged.OrganizationID, staged.StagedAt)
			if err != nil {
				return err
			}
		}

		model := &models.StagedJournalModel{}
		model.FromDomain(staged)
		if err := tx.Create(model).Error; err != nil {
			if !isDuplicateKey(err) {
				return err
			}
			existing, ferr := findStagedModelByKey(tx, staged.OrganizationID, staged.IdempotencyKey)
			if ferr != nil {
				return ferr
			}
			if existing == nil {
				return err
			}
			ref = existing.StagedRef
			return nil
		}
		ref = model.StagedRef
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("staging journal: %w", err)
	}
	return ref, nil
}

// FindJournalByKey finds a committed journal by idempotency key.
// Returns shared.ErrNotFound when no journal exists for the key.
func (r *GormJournalRepository) FindJournalByKey(ctx context.Context, orgID uuid.UUID, key string) (*posting.Journal, error) {
	model, err := findJournalModelByKey(r.db.WithContext(ctx), orgID, key)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, shared.ErrNotFound
	}
	return model.ToDomain(), nil
}

// FindStagedByKey finds a staged journal by idempotency key.
// Returns shared.ErrNotFound when no staged journal exists for the key.
func (r *GormJournalRepository) FindStagedByKey(ctx context.Context, orgID uuid.UUID, key string) (*posting.StagedJournal, error) {
	model, err := findStagedModelByKey(r.db.WithContext(ctx), orgID, key)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, shared.ErrNotFound
	}
	return model.ToDomain(), nil
}

// FindByOriginTxn returns all journals committed for one originating
// transaction, newest first. The audit-trail query.
func (r *GormJournalRepository) FindByOriginTxn(ctx context.Context, orgID uuid.UUID, originTxnID string) ([]*posting.Journal, error) {
	var journalModels []models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND origin_txn_id = ?", orgID, originTxnID).
		Order("posted_at DESC").
		Find(&journalModels).Error; err != nil {
		return nil, err
	}
	journals := make([]*posting.Journal, 0, len(journalModels))
	for i := range journalModels {
		journals = append(journals, journalModels[i].ToDomain())
	}
	return journals, nil
}

// ListStaged returns pending staged journals for review, oldest first
func (r *GormJournalRepository) ListStaged(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*posting.StagedJournal, error) {
	if limit <= 0 {
		limit = 50
	}
	var stagedModels []models.StagedJournalModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND status = ?", orgID, models.StagedStatusPending).
		Order("staged_at ASC").
		Limit(limit).Offset(offset).
		Find(&stagedModels).Error; err != nil {
		return nil, err
	}
	staged := make([]*posting.StagedJournal, 0, len(stagedModels))
	for i := range stagedModels {
		staged = append(staged, stagedModels[i].ToDomain())
	}
	return staged, nil
}

// ApproveStaged commits a pending staged journal to the ledger under its
// original idempotency key and marks it approved. Returns the journal code.
func (r *GormJournalRepository) ApproveStaged(ctx context.Context, orgID uuid.UUID, stagedRef, reviewNote string) (string, error) {
	var code string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var staged models.StagedJournalModel
		if err := tx.First(&staged, "organization_id = ? AND staged_ref = ?", orgID, stagedRef).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if staged.Status != models.StagedStatusPending {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("staged journal %s is %s, only pending entries can be approved", stagedRef, staged.Status))
		}

		event := posting.UniversalFinanceEvent(staged.Event)
		journal := posting.NewJournal(&event, "", staged.Lines)
		var err error
		journal.JournalCode, err = nextDocumentCode(tx, &models.JournalEntryModel{}, "JE", orgID, journal.EventTime)
		if err != nil {
			return err
		}

		journalModel := &models.JournalEntryModel{}
		journalModel.FromDomain(journal)
		if err := tx.Create(journalModel).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&staged).Updates(map[string]any{
			"status":      models.StagedStatusApproved,
			"reviewed_at": &now,
			"review_note": reviewNote,
		}).Error; err != nil {
			return err
		}
		code = journalModel.JournalCode
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// DiscardStaged marks a pending staged journal as discarded with a reason
func (r *GormJournalRepository) DiscardStaged(ctx context.Context, orgID uuid.UUID, stagedRef, reviewNote string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var staged models.StagedJournalModel
		if err := tx.First(&staged, "organization_id = ? AND staged_ref = ?", orgID, stagedRef).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if staged.Status != models.StagedStatusPending {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("staged journal %s is %s, only pending entries can be discarded", stagedRef, staged.Status))
		}

		now := time.Now()
		return tx.Model(&staged).Updates(map[string]any{
			"status":      models.StagedStatusDiscarded,
			"reviewed_at": &now,
			"review_note": reviewNote,
		}).Error
	})
}

func findJournalModelByKey(db *gorm.DB, orgID uuid.UUID, key string) (*models.JournalEntryModel, error) {
	var model models.JournalEntryModel
	if err := db.First(&model, "organization_id = ? AND idempotency_key = ?", orgID, key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}

func findStagedModelByKey(db *gorm.DB, orgID uuid.UUID, key string) (*models.StagedJournalModel, error) {
	var model models.StagedJournalModel
	if err := db.First(&model, "organization_id = ? AND idempotency_key = ?", orgID, key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &model, nil
}

// nextDocumentCode generates the next sequential document code for the
// organization and year, e.g. JE-2026-000042
func nextDocumentCode(tx *gorm.DB, model any, prefix string, orgID uuid.UUID, at time.Time) (string, error) {
	if at.IsZero() {
		at = time.Now()
	}
	year := at.Year()
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var count int64
	if err := tx.Model(model).
		Where("organization_id = ? AND created_at >= ? AND created_at < ?", orgID, start, end).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, count+1), nil
}

// isDuplicateKey reports whether the error is a unique constraint
// violation, across the postgres and sqlite drivers
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
