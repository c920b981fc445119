// Package fiscal implements the posting engine's fiscal period port over
// the fiscal period table.
package fiscal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
	"go.uber.org/zap"
)

// Period states
const (
	StatusOpen    = "open"
	StatusClosing = "closing"
	StatusClosed  = "closed"
)

// Period is one fiscal period of an organization
type Period struct {
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    string
}

// Contains reports whether the date falls inside the period
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && date.Before(p.EndDate)
}

// PeriodRepository looks up fiscal periods. PeriodForDate returns nil when
// no period covers the date.
type PeriodRepository interface {
	PeriodForDate(ctx context.Context, orgID uuid.UUID, date time.Time) (*Period, error)
}

// Service validates transaction dates against the organization's fiscal
// calendar. It implements posting.FiscalPeriodService.
type Service struct {
	periods PeriodRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a fiscal period service
func NewService(periods PeriodRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		periods: periods,
		logger:  logger,
		now:     time.Now,
	}
}

// ValidatePeriod checks the transaction date against the fiscal calendar
// under the given policy and returns the verdict with the actions the
// period state permits
func (s *Service) ValidatePeriod(ctx context.Context, orgID uuid.UUID, txnDate time.Time, check posting.FiscalCheck) (posting.FiscalValidation, error) {
	period, err := s.periods.PeriodForDate(ctx, orgID, txnDate)
	if err != nil {
		return posting.FiscalValidation{}, fmt.Errorf("looking up fiscal period: %w", err)
	}

	now := s.now()

	if period == nil {
		if check == posting.FiscalCheckAllowFuture && txnDate.After(now) {
			// The calendar simply has not been extended that far yet
			return posting.FiscalValidation{
				Valid:          true,
				Warnings:       []string{fmt.Sprintf("no fiscal period defined yet for %s", txnDate.Format("2006-01-02"))},
				AllowedActions: []posting.FiscalAction{posting.ActionPost},
			}, nil
		}
		return posting.FiscalValidation{
			Valid:  false,
			Errors: []string{fmt.Sprintf("no fiscal period covers %s", txnDate.Format("2006-01-02"))},
		}, nil
	}

	validation := posting.FiscalValidation{Period: period.Code}

	switch period.Status {
	case StatusOpen:
		validation.Valid = true
		validation.AllowedActions = []posting.FiscalAction{
			posting.ActionPost, posting.ActionModify, posting.ActionReverse,
		}
	case StatusClosing:
		validation.Valid = true
		validation.Warnings = []string{fmt.Sprintf("period %s is closing", period.Code)}
		validation.AllowedActions = []posting.FiscalAction{posting.ActionReverse}
	default:
		validation.Valid = false
		validation.Errors = []string{fmt.Sprintf("period %s is closed", period.Code)}
		return validation, nil
	}

	if check == posting.FiscalCheckBlockPast && period.EndDate.Before(now) {
		s.logger.Debug("backdated posting blocked",
			zap.String("period", period.Code),
			zap.Time("txn_date", txnDate),
		)
		return posting.FiscalValidation{
			Period: period.Code,
			Valid:  false,
			Errors: []string{fmt.Sprintf("backdated posting into period %s is not allowed", period.Code)},
		}, nil
	}

	return validation, nil
}
