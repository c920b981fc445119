package posting

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FiscalAction is an operation kind a fiscal period may permit even when
// open (POST, MODIFY, REVERSE)
type FiscalAction string

const (
	ActionPost    FiscalAction = "POST"
	ActionModify  FiscalAction = "MODIFY"
	ActionReverse FiscalAction = "REVERSE"
)

// FiscalValidation is the verdict of the external fiscal-period service
type FiscalValidation struct {
	Valid          bool
	Period         string
	Errors         []string
	Warnings       []string
	AllowedActions []FiscalAction
}

// Allows reports whether the period permits the given action. An empty
// allowed-actions list places no restriction.
func (v FiscalValidation) Allows(action FiscalAction) bool {
	if len(v.AllowedActions) == 0 {
		return true
	}
	for _, a := range v.AllowedActions {
		if a == action {
			return true
		}
	}
	return false
}

// FiscalPeriodService is the external fiscal-period validation collaborator.
// The engine treats Valid=false as blocking and surfaces Errors verbatim.
// An error return is an infrastructure fault, not a closed period.
type FiscalPeriodService interface {
	ValidatePeriod(ctx context.Context, organizationID uuid.UUID, transactionDate time.Time, check FiscalCheck) (FiscalValidation, error)
}

// MasterDataLookup assembles the derivation context for an event from
// master data (customer, product, vendor, payment method records). The
// returned context must be addressable by the dotted paths used in
// posting recipes.
type MasterDataLookup interface {
	ContextFor(ctx context.Context, event *UniversalFinanceEvent) (Context, error)
}

// JournalStore is the ledger commit / staging collaborator. Both
// operations must be idempotent with respect to the journal's
// idempotency key: a second commit under the same key returns the first
// journal's code without creating a duplicate entry.
type JournalStore interface {
	CommitJournal(ctx context.Context, journal *Journal) (journalCode string, err error)
	StageForReview(ctx context.Context, staged *StagedJournal) (stagedRef string, err error)
}
