package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
)

// JournalEntryModel is the persistence model for committed journals. The
// idempotency key carries a global unique index; it is the hard duplicate
// guard behind the redis fast path.
type JournalEntryModel struct {
	AggregateModel
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_journal_org_code,priority:1"`
	JournalCode    string      `gorm:"type:varchar(50);not null;uniqueIndex:idx_journal_org_code,priority:2"`
	SmartCode      string      `gorm:"type:varchar(100);not null;index"`
	SourceSystem   string      `gorm:"type:varchar(100);not null"`
	OriginTxnID    string      `gorm:"type:varchar(100);not null;index"`
	Currency       string      `gorm:"type:varchar(3);not null"`
	EventTime      time.Time   `gorm:"not null;index"`
	IdempotencyKey string      `gorm:"type:varchar(300);not null;uniqueIndex"`
	Lines          GLLinesJSON `gorm:"type:jsonb;not null"`
	Metadata       JSONMap     `gorm:"type:jsonb"`
	PostedAt       time.Time   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// ToDomain converts the persistence model to a domain Journal
func (m *JournalEntryModel) ToDomain() *posting.Journal {
	j := &posting.Journal{
		JournalCode:    m.JournalCode,
		SmartCode:      posting.SmartCode(m.SmartCode),
		SourceSystem:   m.SourceSystem,
		OriginTxnID:    m.OriginTxnID,
		Currency:       m.Currency,
		EventTime:      m.EventTime,
		IdempotencyKey: m.IdempotencyKey,
		Lines:          m.Lines,
		Metadata:       m.Metadata,
		PostedAt:       m.PostedAt,
	}
	m.PopulateAggregateRoot(&j.BaseAggregateRoot)
	j.OrganizationID = m.OrganizationID
	return j
}

// FromDomain populates the persistence model from a domain Journal
func (m *JournalEntryModel) FromDomain(j *posting.Journal) {
	m.FromDomainAggregateRoot(j.BaseAggregateRoot)
	m.OrganizationID = j.OrganizationID
	m.JournalCode = j.JournalCode
	m.SmartCode = j.SmartCode.String()
	m.SourceSystem = j.SourceSystem
	m.OriginTxnID = j.OriginTxnID
	m.Currency = j.Currency
	m.EventTime = j.EventTime
	m.IdempotencyKey = j.IdempotencyKey
	m.Lines = j.Lines
	m.Metadata = j.Metadata
	m.PostedAt = j.PostedAt
}

// Staged journal review states
const (
	StagedStatusPending   = "pending"
	StagedStatusApproved  = "approved"
	StagedStatusDiscarded = "discarded"
)

// StagedJournalModel is the persistence model for the review queue
type StagedJournalModel struct {
	AggregateModel
	OrganizationID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_staged_org_ref,priority:1"`
	StagedRef      string      `gorm:"type:varchar(50);not null;uniqueIndex:idx_staged_org_ref,priority:2"`
	Event          EventJSON   `gorm:"type:jsonb;not null"`
	Lines          GLLinesJSON `gorm:"type:jsonb;not null"`
	RuleCode       string      `gorm:"type:varchar(100);not null"`
	Reason         string      `gorm:"type:varchar(500)"`
	Status         string      `gorm:"type:varchar(20);not null;default:'pending';index"`
	IdempotencyKey string      `gorm:"type:varchar(300);not null;uniqueIndex"`
	StagedAt       time.Time   `gorm:"not null"`
	ReviewedAt     *time.Time
	ReviewNote     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StagedJournalModel) TableName() string {
	return "staged_journals"
}

// ToDomain converts the persistence model to a domain StagedJournal
func (m *StagedJournalModel) ToDomain() *posting.StagedJournal {
	s := &posting.StagedJournal{
		StagedRef:      m.StagedRef,
		Event:          posting.UniversalFinanceEvent(m.Event),
		Lines:          m.Lines,
		RuleCode:       posting.SmartCode(m.RuleCode),
		Reason:         m.Reason,
		IdempotencyKey: m.IdempotencyKey,
		StagedAt:       m.StagedAt,
	}
	m.PopulateAggregateRoot(&s.BaseAggregateRoot)
	s.OrganizationID = m.OrganizationID
	return s
}

// FromDomain populates the persistence model from a domain StagedJournal
func (m *StagedJournalModel) FromDomain(s *posting.StagedJournal) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.OrganizationID = s.OrganizationID
	m.StagedRef = s.StagedRef
	m.Event = EventJSON(s.Event)
	m.Lines = s.Lines
	m.RuleCode = s.RuleCode.String()
	m.Reason = s.Reason
	m.Status = StagedStatusPending
	m.IdempotencyKey = s.IdempotencyKey
	m.StagedAt = s.StagedAt
}

// PostingRuleModel stores per-organization posting rule overrides as JSONB
// documents keyed by smart code
type PostingRuleModel struct {
	AggregateModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rule_org_code,priority:1"`
	SmartCode      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_rule_org_code,priority:2"`
	Document       RuleJSON  `gorm:"type:jsonb;not null"`
	Enabled        bool      `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (PostingRuleModel) TableName() string {
	return "posting_rules"
}

// FinancePolicyJSON stores the finance policy block as a JSONB column
type FinancePolicyJSON posting.FinancePolicy

// Value implements driver.Valuer
func (p FinancePolicyJSON) Value() (driver.Value, error) {
	return json.Marshal(posting.FinancePolicy(p))
}

// Scan implements sql.Scanner
func (p *FinancePolicyJSON) Scan(value any) error {
	return scanJSON(value, p)
}

// BehaviourMapJSON stores per-module deactivation behaviour as JSONB
type BehaviourMapJSON map[string]posting.DeactivationBehaviour

// Value implements driver.Valuer
func (m BehaviourMapJSON) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *BehaviourMapJSON) Scan(value any) error {
	return scanJSON(value, m)
}

// OrgFinanceConfigModel is the persistence model for organization finance
// configuration. One row per organization.
type OrgFinanceConfigModel struct {
	AggregateModel
	OrganizationID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex"`
	Industry              string            `gorm:"type:varchar(50);not null"`
	ModulesEnabled        BoolMapJSON       `gorm:"type:jsonb;not null"`
	FinancePolicy         FinancePolicyJSON `gorm:"type:jsonb;not null"`
	DeactivationBehaviour BehaviourMapJSON  `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (OrgFinanceConfigModel) TableName() string {
	return "org_finance_configs"
}

// ToDomain converts the persistence model to a domain configuration
func (m *OrgFinanceConfigModel) ToDomain() posting.OrgFinanceConfig {
	return posting.OrgFinanceConfig{
		OrganizationID:        m.OrganizationID,
		Industry:              m.Industry,
		ModulesEnabled:        m.ModulesEnabled,
		FinancePolicy:         posting.FinancePolicy(m.FinancePolicy),
		DeactivationBehaviour: m.DeactivationBehaviour,
	}
}

// FromDomain populates the persistence model from a domain configuration
func (m *OrgFinanceConfigModel) FromDomain(c posting.OrgFinanceConfig) {
	m.OrganizationID = c.OrganizationID
	m.Industry = c.Industry
	m.ModulesEnabled = c.ModulesEnabled
	m.FinancePolicy = FinancePolicyJSON(c.FinancePolicy)
	m.DeactivationBehaviour = c.DeactivationBehaviour
}

// Fiscal period states
const (
	PeriodStatusOpen    = "open"
	PeriodStatusClosing = "closing"
	PeriodStatusClosed  = "closed"
)

// FiscalPeriodModel is the persistence model for fiscal periods
type FiscalPeriodModel struct {
	AggregateModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_period_org_code,priority:1"`
	PeriodCode     string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_period_org_code,priority:2"`
	StartDate      time.Time `gorm:"not null;index"`
	EndDate        time.Time `gorm:"not null;index"`
	Status         string    `gorm:"type:varchar(20);not null;default:'open'"`
}

// TableName returns the table name for GORM
func (FiscalPeriodModel) TableName() string {
	return "fiscal_periods"
}

// MasterDataAttributeModel stores finance attributes of master data
// entities as dotted-path rows; the derivation context is assembled from
// an organization's attribute set
type MasterDataAttributeModel struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attr_org_path,priority:1"`
	Path           string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_attr_org_path,priority:2"`
	Value          string    `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (MasterDataAttributeModel) TableName() string {
	return "master_data_attributes"
}
