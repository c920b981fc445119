package posting

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Status is the terminal state of one event's trip through the engine
type Status string

const (
	StatusPosted   Status = "posted"
	StatusStaged   Status = "staged"
	StatusRejected Status = "rejected"
)

// RejectionKind classifies a rejection per the error taxonomy:
// configuration problems reproduce until config changes, data problems
// need the originating transaction fixed, period problems may clear on
// their own when the period state changes.
type RejectionKind string

const (
	RejectionConfig RejectionKind = "configuration"
	RejectionData   RejectionKind = "data"
	RejectionPeriod RejectionKind = "period"
)

// Outcome is the typed result of processing one event. Rejections carry
// only a reason; no partial artifacts are ever persisted on rejection.
type Outcome struct {
	Status      Status        `json:"status"`
	JournalCode string        `json:"journal_code,omitempty"`
	StagedRef   string        `json:"staged_ref,omitempty"`
	Lines       []GLLine      `json:"gl_lines,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Kind        RejectionKind `json:"rejection_kind,omitempty"`
}

func rejected(kind RejectionKind, reason string) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason, Kind: kind}
}

// MetricsRecorder observes terminal outcomes. Implementations must be
// safe for concurrent use.
type MetricsRecorder interface {
	RecordOutcome(ctx context.Context, status Status, code SmartCode, totalAmount float64)
}

type noopMetrics struct{}

func (noopMetrics) RecordOutcome(context.Context, Status, SmartCode, float64) {}

// Engine converts a normalized business event into a balanced, auditable
// journal entry: rule lookup, guardrail validation, account derivation,
// and the auto-post/stage decision. One engine serves one organization;
// its configuration and rule registry are immutable for its lifetime, so
// concurrent Process calls need no locking.
type Engine struct {
	config  OrgFinanceConfig
	rules   *RuleRegistry
	fiscal  FiscalPeriodService
	master  MasterDataLookup
	store   JournalStore
	logger  *zap.Logger
	metrics MetricsRecorder
}

// EngineOption configures optional engine collaborators
type EngineOption func(*Engine)

// WithMetrics sets the outcome metrics recorder
func WithMetrics(m MetricsRecorder) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewEngine creates a posting engine for one organization
func NewEngine(
	config OrgFinanceConfig,
	rules *RuleRegistry,
	fiscal FiscalPeriodService,
	master MasterDataLookup,
	store JournalStore,
	logger *zap.Logger,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		config:  config,
		rules:   rules,
		fiscal:  fiscal,
		master:  master,
		store:   store,
		logger:  logger,
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one event through the state machine
// Received -> ModuleGated -> Validated -> Derived -> Decided ->
// {Posted | Staged | Rejected}. Business failures come back as a
// rejected Outcome; a non-nil error is an infrastructure fault and is
// safe to retry under the same idempotency key.
func (e *Engine) Process(ctx context.Context, event *UniversalFinanceEvent) (Outcome, error) {
	outcome, err := e.process(ctx, event)
	if err != nil {
		return Outcome{}, err
	}
	amount, _ := event.TotalDebits().Float64()
	e.metrics.RecordOutcome(ctx, outcome.Status, event.SmartCode, amount)
	return outcome, nil
}

func (e *Engine) process(ctx context.Context, event *UniversalFinanceEvent) (Outcome, error) {
	if err := event.Validate(); err != nil {
		return rejected(RejectionData, err.Error()), nil
	}
	if event.OrganizationID != e.config.OrganizationID {
		return rejected(RejectionConfig,
			fmt.Sprintf("event organization %s does not match engine organization %s",
				event.OrganizationID, e.config.OrganizationID)), nil
	}

	// ModuleGated
	module := event.SmartCode.Module()
	suspenseMode := false
	if !e.config.ModuleConfigured(module) {
		return rejected(RejectionConfig, fmt.Sprintf("module %q not configured for organization", module)), nil
	}
	if !e.config.ModuleEnabled(module) {
		switch e.config.BehaviourFor(module) {
		case PostToSuspense:
			if e.config.FinancePolicy.SuspenseAccount == "" {
				return rejected(RejectionConfig,
					fmt.Sprintf("module %q routes to suspense but no suspense account is configured", module)), nil
			}
			suspenseMode = true
		default:
			return rejected(RejectionConfig, fmt.Sprintf("module %q not active: events suppressed", module)), nil
		}
	}

	// Validated
	rule, err := e.rules.Rule(event.SmartCode)
	if err != nil {
		return rejected(RejectionConfig, err.Error()), nil
	}
	if err := RequireHeaderFields(event, rule.Validations.RequiredHeader); err != nil {
		return rejected(RejectionData, err.Error()), nil
	}
	if err := RequireLineFields(event.Lines, rule.Validations.RequiredLines); err != nil {
		return rejected(RejectionData, err.Error()), nil
	}
	if err := ValidateDoubleEntry(event.Lines); err != nil {
		// A producer that cannot supply balanced lines has a bug; staging
		// would defer the same failure to a reviewer who cannot fix it.
		return rejected(RejectionData, err.Error()), nil
	}

	check := rule.Validations.FiscalCheck
	if check == "" {
		check = FiscalCheckOpenPeriod
	}
	fiscal, err := e.fiscal.ValidatePeriod(ctx, event.OrganizationID, event.EventTime, check)
	if err != nil {
		return Outcome{}, fmt.Errorf("fiscal period validation: %w", err)
	}
	if !fiscal.Valid {
		reason := strings.Join(fiscal.Errors, "; ")
		if reason == "" {
			reason = fmt.Sprintf("fiscal period is not open for %s", event.EventTime.Format("2006-01-02"))
		}
		return rejected(RejectionPeriod, reason), nil
	}
	if !fiscal.Allows(ActionPost) {
		return rejected(RejectionPeriod, "action not permitted in current period state"), nil
	}

	// Commitment-only events carry no lines and produce no GL impact
	if len(event.Lines) == 0 {
		e.logger.Info("commitment-only event, no GL impact",
			zap.String("smart_code", event.SmartCode.String()),
			zap.String("origin_txn_id", event.OriginTxnID),
		)
		return Outcome{Status: StatusPosted, Reason: "commitment-only event, no GL impact"}, nil
	}

	// Derived
	glLines, derOutcome, err := e.derive(ctx, event, rule, suspenseMode)
	if err != nil {
		return Outcome{}, err
	}
	if derOutcome != nil {
		return *derOutcome, nil
	}
	if err := ValidateGLBalance(glLines); err != nil {
		return rejected(RejectionData, err.Error()), nil
	}

	// Decided
	autoPost, err := e.evaluateOutcome(event, rule)
	if err != nil {
		return rejected(RejectionConfig, err.Error()), nil
	}

	if autoPost {
		journal := NewJournal(event, "", glLines)
		code, err := e.store.CommitJournal(ctx, journal)
		if err != nil {
			return Outcome{}, fmt.Errorf("journal commit: %w", err)
		}
		e.logger.Info("journal posted",
			zap.String("journal_code", code),
			zap.String("smart_code", event.SmartCode.String()),
			zap.String("origin_txn_id", event.OriginTxnID),
			zap.String("total", event.TotalDebits().String()),
		)
		return Outcome{Status: StatusPosted, JournalCode: code, Lines: glLines}, nil
	}

	reason := "auto-post condition not met, staged for review"
	if rule.Outcomes.AutoPostIf != "" {
		reason = fmt.Sprintf("auto-post condition %q not met, staged for review", rule.Outcomes.AutoPostIf)
	}
	staged := NewStagedJournal(event, "", glLines, rule.SmartCode, reason)
	ref, err := e.store.StageForReview(ctx, staged)
	if err != nil {
		return Outcome{}, fmt.Errorf("journal staging: %w", err)
	}
	e.logger.Info("journal staged for review",
		zap.String("staged_ref", ref),
		zap.String("smart_code", event.SmartCode.String()),
		zap.String("origin_txn_id", event.OriginTxnID),
	)
	return Outcome{Status: StatusStaged, StagedRef: ref, Lines: glLines, Reason: reason}, nil
}

// derive turns the rule's posting recipe into concrete GL lines. A
// derivation failure on any instruction is fatal to the whole event
// unless a suspense account is configured, in which case the suspense
// account is substituted and the line flagged. The returned *Outcome is
// non-nil only for business rejections.
func (e *Engine) derive(ctx context.Context, event *UniversalFinanceEvent, rule PostingRule, suspenseMode bool) ([]GLLine, *Outcome, error) {
	mdCtx, err := e.master.ContextFor(ctx, event)
	if err != nil {
		return nil, nil, fmt.Errorf("master data lookup: %w", err)
	}
	if mdCtx == nil {
		mdCtx = Context{}
	}
	for path, value := range e.config.PolicyDefaults() {
		mdCtx.SetIfAbsent(path, value)
	}

	suspense := e.config.FinancePolicy.SuspenseAccount
	glLines := make([]GLLine, 0, len(rule.PostingRecipe.Lines))
	for _, instr := range rule.PostingRecipe.Lines {
		if !instr.Matches(event) {
			continue
		}

		// Recipes cover the widest event shape; roles absent from this
		// event (a sale with no tax line) simply produce no GL line.
		// The balance check still rejects anything that drops an amount.
		input := event.LineByRole(instr.Role())
		if input == nil {
			continue
		}

		var account AccountID
		flagged := false
		switch {
		case suspenseMode:
			account = suspense
			flagged = true
		default:
			account, err = DeriveAccount(instr.From, mdCtx)
			if err != nil {
				if suspense == "" {
					r := rejected(RejectionData, err.Error())
					return nil, &r, nil
				}
				account = suspense
				flagged = true
			}
		}

		line := GLLine{
			AccountID: account,
			Role:      instr.Role(),
			Metadata:  cloneMetadata(input.Metadata),
		}
		if instr.Side() == SideDR {
			line.DR = input.Amount()
		} else {
			line.CR = input.Amount()
		}
		if flagged {
			if line.Metadata == nil {
				line.Metadata = map[string]any{}
			}
			line.Metadata["suspense"] = true
			line.Metadata["intended_path"] = instr.From.String()
			if event.Metadata == nil {
				event.Metadata = map[string]any{}
			}
			event.Metadata["suspense_used"] = true
		}
		glLines = append(glLines, line)
	}

	if len(glLines) == 0 {
		r := rejected(RejectionData, "posting recipe produced no applicable lines for this event")
		return nil, &r, nil
	}
	return glLines, nil, nil
}

func (e *Engine) evaluateOutcome(event *UniversalFinanceEvent, rule PostingRule) (bool, error) {
	if rule.Outcomes.AutoPostIf == "" {
		return false, nil
	}
	expr, err := ParseExpr(rule.Outcomes.AutoPostIf)
	if err != nil {
		return false, fmt.Errorf("invalid auto_post_if expression %q: %w", rule.Outcomes.AutoPostIf, err)
	}
	result, err := expr.Eval(event.Field)
	if err != nil {
		return false, fmt.Errorf("evaluating auto_post_if expression %q: %w", rule.Outcomes.AutoPostIf, err)
	}
	return result, nil
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
