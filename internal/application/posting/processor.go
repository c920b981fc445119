package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/domain/shared"
	"github.com/hera/finance/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Line types accepted by the facade
const (
	LineTypeDebit  = "debit"
	LineTypeCredit = "credit"
)

// Result statuses. The domain statuses pass through unchanged; "error"
// marks an infrastructure fault where the event may be resubmitted under
// the same origin transaction id.
const (
	StatusPosted   = string(posting.StatusPosted)
	StatusStaged   = string(posting.StatusStaged)
	StatusRejected = string(posting.StatusRejected)
	StatusError    = "error"
)

// LineInput is one business line as producers express it: a signed-free
// amount plus an explicit debit/credit type
type LineInput struct {
	EntityID      string            `json:"entity_id"`
	Role          string            `json:"role"`
	Amount        decimal.Decimal   `json:"amount"`
	Type          string            `json:"type"`
	Relationships map[string]string `json:"relationships,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
}

// ProcessBusinessEventParams is the facade's input shape
type ProcessBusinessEventParams struct {
	OrganizationID uuid.UUID      `json:"organization_id"`
	SmartCode      string         `json:"smart_code"`
	EventTime      time.Time      `json:"event_time"`
	Currency       string         `json:"currency"`
	SourceSystem   string         `json:"source_system"`
	OriginTxnID    string         `json:"origin_txn_id"`
	AIConfidence   float64        `json:"ai_confidence"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Lines          []LineInput    `json:"lines"`
}

// Result is the uniform facade response. Callers branch on Status; Message
// carries the rejection reason or error detail.
type Result struct {
	Success       bool             `json:"success"`
	Status        string           `json:"status"`
	Message       string           `json:"message,omitempty"`
	JournalCode   string           `json:"journal_code,omitempty"`
	StagedRef     string           `json:"staged_ref,omitempty"`
	GLLines       []posting.GLLine `json:"gl_lines,omitempty"`
	RejectionKind string           `json:"rejection_kind,omitempty"`
}

func errorResult(msg string) Result {
	return Result{Status: StatusError, Message: msg}
}

// JournalFinder recovers previously committed artifacts by idempotency
// key, for the duplicate-submission fast path
type JournalFinder interface {
	FindJournalByKey(ctx context.Context, orgID uuid.UUID, key string) (*posting.Journal, error)
	FindStagedByKey(ctx context.Context, orgID uuid.UUID, key string) (*posting.StagedJournal, error)
}

// Processor is the per-organization application facade over the posting
// engine: line normalization, duplicate fast path, and conversion of every
// failure mode into a uniform Result. This is the only layer that recovers
// panics; the engine below returns typed outcomes and errors.
type Processor struct {
	engine      *posting.Engine
	logger      *zap.Logger
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	journals    JournalFinder
}

// ProcessorOption configures optional processor collaborators
type ProcessorOption func(*Processor)

// WithIdempotencyFastPath enables the duplicate-submission fast path: a
// hit in the store resolves the prior journal or staged ref directly from
// the finder instead of re-running derivation
func WithIdempotencyFastPath(store shared.IdempotencyStore, cfg shared.IdempotencyConfig, finder JournalFinder) ProcessorOption {
	return func(p *Processor) {
		p.idempotency = store
		p.idemConfig = cfg
		p.journals = finder
	}
}

// NewProcessor creates a processor around one organization's engine
func NewProcessor(engine *posting.Engine, logger *zap.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		engine: engine,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessBusinessEvent normalizes the input lines, runs the event through
// the engine, and maps the outcome to a Result. It never panics and never
// returns an error; resubmission of the same origin transaction yields the
// same journal code.
func (p *Processor) ProcessBusinessEvent(ctx context.Context, params ProcessBusinessEventParams) (result Result) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "process_business_event")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrganizationID, params.OrganizationID.String(),
		telemetry.SpanAttrSmartCode, params.SmartCode,
		telemetry.SpanAttrOriginTxnID, params.OriginTxnID,
		telemetry.SpanAttrSourceSystem, params.SourceSystem,
		telemetry.SpanAttrAIConfidence, params.AIConfidence,
	)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing event: %v", r)
			telemetry.RecordError(span, err)
			p.logger.Error("panic recovered in event processing",
				zap.Any("panic", r),
				zap.String("smart_code", params.SmartCode),
				zap.String("origin_txn_id", params.OriginTxnID),
			)
			result = errorResult(err.Error())
		}
	}()

	event, err := params.toEvent()
	if err != nil {
		return Result{
			Status:        StatusRejected,
			Message:       err.Error(),
			RejectionKind: string(posting.RejectionData),
		}
	}

	if dup, ok := p.resolveDuplicate(ctx, event); ok {
		telemetry.AddEvent(span, "duplicate_submission", telemetry.SpanAttrJournalCode, dup.JournalCode)
		return dup
	}

	outcome, err := p.engine.Process(ctx, event)
	if err != nil {
		telemetry.RecordError(span, err)
		p.logger.Error("event processing failed",
			zap.Error(err),
			zap.String("smart_code", params.SmartCode),
			zap.String("origin_txn_id", params.OriginTxnID),
		)
		return errorResult(err.Error())
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrStatus, string(outcome.Status),
		telemetry.SpanAttrJournalCode, outcome.JournalCode,
	)

	result = Result{
		Status:        string(outcome.Status),
		Message:       outcome.Reason,
		JournalCode:   outcome.JournalCode,
		StagedRef:     outcome.StagedRef,
		GLLines:       outcome.Lines,
		RejectionKind: string(outcome.Kind),
	}
	result.Success = outcome.Status == posting.StatusPosted || outcome.Status == posting.StatusStaged
	if result.Success {
		p.markProcessed(ctx, posting.IdempotencyKey(event))
	}
	return result
}

// resolveDuplicate answers a repeat submission from the previously
// committed artifact. A stale marker with no artifact behind it falls
// through to full processing; the store's unique key still dedups.
func (p *Processor) resolveDuplicate(ctx context.Context, event *posting.UniversalFinanceEvent) (Result, bool) {
	if p.idempotency == nil || !p.idemConfig.Enabled || p.journals == nil {
		return Result{}, false
	}
	key := posting.IdempotencyKey(event)

	seen, err := p.idempotency.IsProcessed(ctx, key)
	if err != nil {
		// The fast path is an optimization; never fail the event over it
		p.logger.Warn("idempotency store check failed", zap.Error(err), zap.String("key", key))
		return Result{}, false
	}
	if !seen {
		return Result{}, false
	}

	if journal, err := p.journals.FindJournalByKey(ctx, event.OrganizationID, key); err == nil && journal != nil {
		return Result{
			Success:     true,
			Status:      StatusPosted,
			JournalCode: journal.JournalCode,
			GLLines:     journal.Lines,
		}, true
	}
	if staged, err := p.journals.FindStagedByKey(ctx, event.OrganizationID, key); err == nil && staged != nil {
		return Result{
			Success:   true,
			Status:    StatusStaged,
			StagedRef: staged.StagedRef,
			GLLines:   staged.Lines,
			Message:   staged.Reason,
		}, true
	}
	return Result{}, false
}

func (p *Processor) markProcessed(ctx context.Context, key string) {
	if p.idempotency == nil || !p.idemConfig.Enabled {
		return
	}
	if _, err := p.idempotency.MarkProcessed(ctx, key, p.idemConfig.TTL); err != nil {
		p.logger.Warn("failed to mark idempotency key", zap.Error(err), zap.String("key", key))
	}
}

// toEvent converts the facade shape into the canonical dr/cr event
func (params ProcessBusinessEventParams) toEvent() (*posting.UniversalFinanceEvent, error) {
	eventTime := params.EventTime
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	lines := make([]posting.FinanceLine, 0, len(params.Lines))
	for i, in := range params.Lines {
		if in.Amount.IsNegative() {
			return nil, shared.NewDomainError("INVALID_LINE",
				fmt.Sprintf("line %d: amount must not be negative", i))
		}
		line := posting.FinanceLine{
			EntityID:      in.EntityID,
			Role:          in.Role,
			Relationships: in.Relationships,
			Metadata:      in.Metadata,
		}
		switch in.Type {
		case LineTypeDebit:
			line.DR = in.Amount
		case LineTypeCredit:
			line.CR = in.Amount
		default:
			return nil, shared.NewDomainError("INVALID_LINE",
				fmt.Sprintf("line %d: type must be %q or %q, got %q", i, LineTypeDebit, LineTypeCredit, in.Type))
		}
		lines = append(lines, line)
	}

	return &posting.UniversalFinanceEvent{
		OrganizationID: params.OrganizationID,
		SmartCode:      posting.SmartCode(params.SmartCode),
		EventTime:      eventTime,
		Currency:       params.Currency,
		SourceSystem:   params.SourceSystem,
		OriginTxnID:    params.OriginTxnID,
		AIConfidence:   params.AIConfidence,
		Metadata:       params.Metadata,
		Lines:          lines,
	}, nil
}

// RevenueParams is the simplified revenue posting shape
type RevenueParams struct {
	OrganizationID uuid.UUID       `json:"organization_id"`
	SmartCode      string          `json:"smart_code"`
	OriginTxnID    string          `json:"origin_txn_id"`
	Currency       string          `json:"currency"`
	SourceSystem   string          `json:"source_system"`
	Amount         decimal.Decimal `json:"amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	AIConfidence   float64         `json:"ai_confidence"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

// PostRevenue posts a revenue event from the simplified shape: payment in,
// revenue out, optional tax line
func (p *Processor) PostRevenue(ctx context.Context, params RevenueParams) Result {
	lines := []LineInput{
		{EntityID: "PAYMENT", Role: "Payment", Amount: params.Amount.Add(params.TaxAmount), Type: LineTypeDebit},
		{EntityID: "REVENUE", Role: "Revenue", Amount: params.Amount, Type: LineTypeCredit},
	}
	if params.TaxAmount.IsPositive() {
		lines = append(lines, LineInput{EntityID: "TAX", Role: "Tax", Amount: params.TaxAmount, Type: LineTypeCredit})
	}
	return p.ProcessBusinessEvent(ctx, ProcessBusinessEventParams{
		OrganizationID: params.OrganizationID,
		SmartCode:      params.SmartCode,
		Currency:       params.Currency,
		SourceSystem:   params.SourceSystem,
		OriginTxnID:    params.OriginTxnID,
		AIConfidence:   params.AIConfidence,
		Metadata:       params.Metadata,
		Lines:          lines,
	})
}

// ExpenseParams is the simplified expense posting shape
type ExpenseParams struct {
	OrganizationID uuid.UUID       `json:"organization_id"`
	SmartCode      string          `json:"smart_code"`
	OriginTxnID    string          `json:"origin_txn_id"`
	Currency       string          `json:"currency"`
	SourceSystem   string          `json:"source_system"`
	Amount         decimal.Decimal `json:"amount"`
	AIConfidence   float64         `json:"ai_confidence"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
}

// PostExpense posts an expense event from the simplified shape
func (p *Processor) PostExpense(ctx context.Context, params ExpenseParams) Result {
	return p.ProcessBusinessEvent(ctx, ProcessBusinessEventParams{
		OrganizationID: params.OrganizationID,
		SmartCode:      params.SmartCode,
		Currency:       params.Currency,
		SourceSystem:   params.SourceSystem,
		OriginTxnID:    params.OriginTxnID,
		AIConfidence:   params.AIConfidence,
		Metadata:       params.Metadata,
		Lines: []LineInput{
			{EntityID: "EXPENSE", Role: "Expense", Amount: params.Amount, Type: LineTypeDebit},
			{EntityID: "AP", Role: "AP", Amount: params.Amount, Type: LineTypeCredit},
		},
	})
}
