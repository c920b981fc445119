package posting

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/domain/shared"
	"go.uber.org/zap"
)

// RuleSource loads per-organization posting rule overrides
type RuleSource interface {
	RulesFor(ctx context.Context, orgID uuid.UUID) ([]posting.PostingRule, error)
}

// ConfigSource loads organization finance configuration
type ConfigSource interface {
	ConfigFor(ctx context.Context, orgID uuid.UUID) (posting.OrgFinanceConfig, error)
}

// ProcessorRegistry builds and caches one Processor per organization. An
// organization's engine is immutable once built; rule or configuration
// changes take effect through Invalidate, which drops the cached instance
// so the next request rebuilds against fresh data.
type ProcessorRegistry struct {
	mu         sync.RWMutex
	processors map[uuid.UUID]*Processor

	rules   RuleSource
	configs ConfigSource
	fiscal  posting.FiscalPeriodService
	master  posting.MasterDataLookup
	store   posting.JournalStore
	finder  JournalFinder
	idem    shared.IdempotencyStore
	idemCfg shared.IdempotencyConfig
	metrics posting.MetricsRecorder
	logger  *zap.Logger
}

// RegistryDeps holds the collaborators shared by every processor the
// registry builds. Finder and Idempotency are optional; when either is nil
// the duplicate fast path is disabled and the journal store's unique key
// remains the only duplicate guard.
type RegistryDeps struct {
	Rules       RuleSource
	Configs     ConfigSource
	Fiscal      posting.FiscalPeriodService
	Master      posting.MasterDataLookup
	Store       posting.JournalStore
	Finder      JournalFinder
	Idempotency shared.IdempotencyStore
	IdemConfig  shared.IdempotencyConfig
	Metrics     posting.MetricsRecorder
	Logger      *zap.Logger
}

// NewProcessorRegistry creates the per-organization processor cache
func NewProcessorRegistry(deps RegistryDeps) *ProcessorRegistry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessorRegistry{
		processors: make(map[uuid.UUID]*Processor),
		rules:      deps.Rules,
		configs:    deps.Configs,
		fiscal:     deps.Fiscal,
		master:     deps.Master,
		store:      deps.Store,
		finder:     deps.Finder,
		idem:       deps.Idempotency,
		idemCfg:    deps.IdemConfig,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// ProcessorFor returns the cached processor for the organization, building
// it on first use
func (r *ProcessorRegistry) ProcessorFor(ctx context.Context, orgID uuid.UUID) (*Processor, error) {
	r.mu.RLock()
	p, ok := r.processors[orgID]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.processors[orgID]; ok {
		return p, nil
	}

	p, err := r.build(ctx, orgID)
	if err != nil {
		return nil, err
	}
	r.processors[orgID] = p
	return p, nil
}

func (r *ProcessorRegistry) build(ctx context.Context, orgID uuid.UUID) (*Processor, error) {
	config, err := r.configs.ConfigFor(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("loading finance configuration for organization %s: %w", orgID, err)
	}

	overrides, err := r.rules.RulesFor(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("loading posting rule overrides for organization %s: %w", orgID, err)
	}

	registry, err := posting.NewRuleRegistry(
		posting.UniversalRules(),
		posting.IndustryRules(config.Industry),
		overrides,
	)
	if err != nil {
		return nil, fmt.Errorf("building rule registry for organization %s: %w", orgID, err)
	}

	engineOpts := []posting.EngineOption{}
	if r.metrics != nil {
		engineOpts = append(engineOpts, posting.WithMetrics(r.metrics))
	}
	engine := posting.NewEngine(config, registry, r.fiscal, r.master, r.store,
		r.logger.With(zap.String("organization_id", orgID.String())), engineOpts...)

	procOpts := []ProcessorOption{}
	if r.idem != nil && r.finder != nil {
		procOpts = append(procOpts, WithIdempotencyFastPath(r.idem, r.idemCfg, r.finder))
	}

	r.logger.Info("posting processor built",
		zap.String("organization_id", orgID.String()),
		zap.String("industry", config.Industry),
		zap.Int("rules", registry.Size()),
		zap.Int("overrides", len(overrides)),
	)
	return NewProcessor(engine, r.logger, procOpts...), nil
}

// Invalidate drops the cached processor for one organization. Safe to call
// for organizations that were never built.
func (r *ProcessorRegistry) Invalidate(orgID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.processors[orgID]; ok {
		delete(r.processors, orgID)
		r.logger.Info("posting processor invalidated", zap.String("organization_id", orgID.String()))
	}
}

// InvalidateAll drops every cached processor
func (r *ProcessorRegistry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors = make(map[uuid.UUID]*Processor)
	r.logger.Info("all posting processors invalidated")
}
