package posting

import (
	"time"

	"github.com/hera/finance/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// GLLine is one side of the final, derived journal entry: a concrete
// ledger account with its debit or credit amount
type GLLine struct {
	AccountID AccountID       `json:"account_id"`
	Role      string          `json:"role"`
	DR        decimal.Decimal `json:"dr"`
	CR        decimal.Decimal `json:"cr"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// Journal is the committed artifact of a posted event. It carries the
// originating smart code and transaction id unchanged for audit
// traceability and idempotency.
type Journal struct {
	shared.OrgAggregateRoot
	JournalCode    string         `json:"journal_code"`
	SmartCode      SmartCode      `json:"smart_code"`
	SourceSystem   string         `json:"source_system"`
	OriginTxnID    string         `json:"origin_txn_id"`
	Currency       string         `json:"currency"`
	EventTime      time.Time      `json:"event_time"`
	IdempotencyKey string         `json:"idempotency_key"`
	Lines          []GLLine       `json:"lines"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	PostedAt       time.Time      `json:"posted_at"`
}

// NewJournal builds a journal from a processed event and its derived GL
// lines. The lines must already balance; callers run ValidateGLBalance
// before construction.
func NewJournal(event *UniversalFinanceEvent, journalCode string, lines []GLLine) *Journal {
	j := &Journal{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(event.OrganizationID),
		JournalCode:      journalCode,
		SmartCode:        event.SmartCode,
		SourceSystem:     event.SourceSystem,
		OriginTxnID:      event.OriginTxnID,
		Currency:         event.Currency,
		EventTime:        event.EventTime,
		IdempotencyKey:   IdempotencyKey(event),
		Lines:            lines,
		Metadata:         event.Metadata,
		PostedAt:         time.Now(),
	}
	j.AddDomainEvent(NewJournalPostedEvent(j))
	return j
}

// TotalDebits sums the debit side of the journal
func (j *Journal) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range j.Lines {
		total = total.Add(l.DR)
	}
	return total
}

// TotalCredits sums the credit side of the journal
func (j *Journal) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range j.Lines {
		total = total.Add(l.CR)
	}
	return total
}

// StagedJournal is a fully derived journal held for human review because
// the rule's auto-post condition evaluated false. The original event and
// rule reference ride along so a reviewer sees exactly what would post.
type StagedJournal struct {
	shared.OrgAggregateRoot
	StagedRef      string                `json:"staged_ref"`
	Event          UniversalFinanceEvent `json:"event"`
	Lines          []GLLine              `json:"lines"`
	RuleCode       SmartCode             `json:"rule_code"`
	Reason         string                `json:"reason"`
	IdempotencyKey string                `json:"idempotency_key"`
	StagedAt       time.Time             `json:"staged_at"`
}

// NewStagedJournal builds the review-queue artifact for a derived but not
// auto-approved event
func NewStagedJournal(event *UniversalFinanceEvent, stagedRef string, lines []GLLine, ruleCode SmartCode, reason string) *StagedJournal {
	s := &StagedJournal{
		OrgAggregateRoot: shared.NewOrgAggregateRoot(event.OrganizationID),
		StagedRef:        stagedRef,
		Event:            *event,
		Lines:            lines,
		RuleCode:         ruleCode,
		Reason:           reason,
		IdempotencyKey:   IdempotencyKey(event),
		StagedAt:         time.Now(),
	}
	s.AddDomainEvent(NewJournalStagedEvent(s))
	return s
}

// Event types emitted by the posting domain
const (
	EventTypeJournalPosted = "finance.journal.posted"
	EventTypeJournalStaged = "finance.journal.staged"
)

// JournalPostedEvent is raised when a journal commits to the ledger
type JournalPostedEvent struct {
	shared.BaseDomainEvent
	JournalCode string          `json:"journal_code"`
	SmartCode   SmartCode       `json:"smart_code"`
	OriginTxnID string          `json:"origin_txn_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewJournalPostedEvent creates a journal posted event
func NewJournalPostedEvent(j *Journal) *JournalPostedEvent {
	return &JournalPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalPosted, "Journal", j.ID, j.OrganizationID),
		JournalCode:     j.JournalCode,
		SmartCode:       j.SmartCode,
		OriginTxnID:     j.OriginTxnID,
		TotalAmount:     j.TotalDebits(),
	}
}

// JournalStagedEvent is raised when a derived journal enters the review queue
type JournalStagedEvent struct {
	shared.BaseDomainEvent
	StagedRef   string    `json:"staged_ref"`
	SmartCode   SmartCode `json:"smart_code"`
	OriginTxnID string    `json:"origin_txn_id"`
	Reason      string    `json:"reason"`
}

// NewJournalStagedEvent creates a journal staged event
func NewJournalStagedEvent(s *StagedJournal) *JournalStagedEvent {
	return &JournalStagedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalStaged, "StagedJournal", s.ID, s.OrganizationID),
		StagedRef:       s.StagedRef,
		SmartCode:       s.Event.SmartCode,
		OriginTxnID:     s.Event.OriginTxnID,
		Reason:          s.Reason,
	}
}
