package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appposting "github.com/hera/finance/internal/application/posting"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// ===================== in-memory collaborators =====================

type stubRuleSource struct {
	rules []posting.PostingRule
	err   error
}

func (s *stubRuleSource) RulesFor(context.Context, uuid.UUID) ([]posting.PostingRule, error) {
	return s.rules, s.err
}

type stubConfigSource struct {
	industry string
	modules  map[string]bool
	err      error
}

func (s *stubConfigSource) ConfigFor(_ context.Context, orgID uuid.UUID) (posting.OrgFinanceConfig, error) {
	if s.err != nil {
		return posting.OrgFinanceConfig{}, s.err
	}
	return posting.OrgFinanceConfig{
		OrganizationID: orgID,
		Industry:       s.industry,
		ModulesEnabled: s.modules,
	}, nil
}

type stubFiscal struct {
	validation posting.FiscalValidation
}

func (s *stubFiscal) ValidatePeriod(context.Context, uuid.UUID, time.Time, posting.FiscalCheck) (posting.FiscalValidation, error) {
	return s.validation, nil
}

func openFiscal() *stubFiscal {
	return &stubFiscal{validation: posting.FiscalValidation{
		Valid:          true,
		Period:         "2026-08",
		AllowedActions: []posting.FiscalAction{posting.ActionPost, posting.ActionModify},
	}}
}

type stubMaster struct {
	ctx posting.Context
}

func (s *stubMaster) ContextFor(context.Context, *posting.UniversalFinanceEvent) (posting.Context, error) {
	return s.ctx, nil
}

func salonAccounts() posting.Context {
	ctx := posting.Context{}
	ctx.Set("finance.payment.clearing_account", "1100")
	ctx.Set("finance.revenue.service_account", "4100")
	ctx.Set("finance.tax.output_account", "2150")
	ctx.Set("finance.expense.supplies_account", "5200")
	ctx.Set("finance.vendor.ap_control", "2100")
	return ctx
}

type memoryJournalStore struct {
	journals map[string]string
	staged   map[string]string
	commits  int
	stagings int
}

func newMemoryJournalStore() *memoryJournalStore {
	return &memoryJournalStore{journals: map[string]string{}, staged: map[string]string{}}
}

func (m *memoryJournalStore) CommitJournal(_ context.Context, j *posting.Journal) (string, error) {
	if code, ok := m.journals[j.IdempotencyKey]; ok {
		return code, nil
	}
	m.commits++
	code := fmt.Sprintf("JE-%04d", m.commits)
	m.journals[j.IdempotencyKey] = code
	return code, nil
}

func (m *memoryJournalStore) StageForReview(_ context.Context, s *posting.StagedJournal) (string, error) {
	if ref, ok := m.staged[s.IdempotencyKey]; ok {
		return ref, nil
	}
	m.stagings++
	ref := fmt.Sprintf("STG-%04d", m.stagings)
	m.staged[s.IdempotencyKey] = ref
	return ref, nil
}

// ===================== test fixture =====================

func salonRegistry(store *memoryJournalStore) *appposting.ProcessorRegistry {
	return appposting.NewProcessorRegistry(appposting.RegistryDeps{
		Rules:   &stubRuleSource{},
		Configs: &stubConfigSource{industry: posting.IndustrySalon, modules: map[string]bool{"SALE": true, "EXPENSE": true}},
		Fiscal:  openFiscal(),
		Master:  &stubMaster{ctx: salonAccounts()},
		Store:   store,
		Logger:  zap.NewNop(),
	})
}

func eventTestRouter(registry *appposting.ProcessorRegistry, orgID uuid.UUID) *gin.Engine {
	engine := gin.New()
	if orgID != uuid.Nil {
		engine.Use(func(c *gin.Context) {
			c.Set(middleware.OrganizationIDKey, orgID.String())
			c.Next()
		})
	}
	h := NewFinanceEventHandler(registry)
	api := engine.Group("/api/v1/finance")
	api.POST("/events", h.PostEvent)
	api.POST("/revenue", h.PostRevenue)
	api.POST("/expense", h.PostExpense)
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, _ := envelope["data"].(map[string]any)
	return data
}

// ===================== tests =====================

func TestPostRevenue_HighConfidencePosts(t *testing.T) {
	orgID := uuid.New()
	store := newMemoryJournalStore()
	engine := eventTestRouter(salonRegistry(store), orgID)

	w := postJSON(t, engine, "/api/v1/finance/revenue", gin.H{
		"smart_code":    "HERA.SALON.SALE.SERVICE.v1",
		"origin_txn_id": "ORD-001",
		"currency":      "AED",
		"source_system": "salon-pos",
		"amount":        "90",
		"tax_amount":    "10",
		"ai_confidence": 0.95,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "posted", data["status"])
	assert.Equal(t, "JE-0001", data["journal_code"])
	assert.Len(t, data["gl_lines"], 3)
	assert.Equal(t, 1, store.commits)
}

func TestPostRevenue_ResubmissionReturnsSameJournal(t *testing.T) {
	orgID := uuid.New()
	store := newMemoryJournalStore()
	engine := eventTestRouter(salonRegistry(store), orgID)

	body := gin.H{
		"smart_code":    "HERA.SALON.SALE.SERVICE.v1",
		"origin_txn_id": "ORD-002",
		"currency":      "AED",
		"source_system": "salon-pos",
		"amount":        "90",
		"tax_amount":    "10",
		"ai_confidence": 0.95,
	}

	first := postJSON(t, engine, "/api/v1/finance/revenue", body)
	second := postJSON(t, engine, "/api/v1/finance/revenue", body)

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, decodeData(t, first)["journal_code"], decodeData(t, second)["journal_code"])
	assert.Equal(t, 1, store.commits)
}

func TestPostEvent_LowConfidenceStages(t *testing.T) {
	orgID := uuid.New()
	store := newMemoryJournalStore()
	engine := eventTestRouter(salonRegistry(store), orgID)

	w := postJSON(t, engine, "/api/v1/finance/events", gin.H{
		"smart_code":    "HERA.SALON.SALE.SERVICE.v1",
		"origin_txn_id": "ORD-003",
		"currency":      "AED",
		"source_system": "salon-pos",
		"ai_confidence": 0.4,
		"lines": []gin.H{
			{"entity_id": "PAYMENT:cash", "role": "Payment", "amount": "100", "type": "debit"},
			{"entity_id": "REVENUE:service", "role": "Revenue", "amount": "90", "type": "credit"},
			{"entity_id": "TAX:OUTPUT", "role": "Tax", "amount": "10", "type": "credit"},
		},
	})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "staged", data["status"])
	assert.Equal(t, "STG-0001", data["staged_ref"])
	assert.Equal(t, 0, store.commits)
	assert.Equal(t, 1, store.stagings)
}

func TestPostEvent_CommitmentOnlyWithoutLines(t *testing.T) {
	orgID := uuid.New()
	store := newMemoryJournalStore()
	engine := eventTestRouter(salonRegistry(store), orgID)

	w := postJSON(t, engine, "/api/v1/finance/events", gin.H{
		"smart_code":    "HERA.SALON.SALE.SERVICE.v1",
		"origin_txn_id": "ORD-BOOKING-001",
		"currency":      "AED",
		"source_system": "salon-pos",
		"ai_confidence": 0.95,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "posted", data["status"])
	assert.Empty(t, data["gl_lines"])
	assert.Equal(t, 0, store.commits)
}

func TestPostEvent_ModuleNotConfiguredRejects(t *testing.T) {
	orgID := uuid.New()
	engine := eventTestRouter(salonRegistry(newMemoryJournalStore()), orgID)

	w := postJSON(t, engine, "/api/v1/finance/events", gin.H{
		"smart_code":    "HERA.ERP.HR.Payroll.Run.v1",
		"origin_txn_id": "PAY-001",
		"currency":      "AED",
		"source_system": "hr",
		"ai_confidence": 0.9,
		"lines": []gin.H{
			{"entity_id": "EXPENSE:payroll", "role": "Payroll Expense", "amount": "5000", "type": "debit"},
			{"entity_id": "PAYABLE:payroll", "role": "Payroll Payable", "amount": "5000", "type": "credit"},
		},
	})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, false, envelope["success"])
	errInfo := envelope["error"].(map[string]any)
	assert.Equal(t, "ERR_MODULE_NOT_ACTIVE", errInfo["code"])
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "rejected", data["status"])
	assert.Equal(t, "configuration", data["rejection_kind"])
}

func TestPostEvent_ValidationFailure(t *testing.T) {
	orgID := uuid.New()
	engine := eventTestRouter(salonRegistry(newMemoryJournalStore()), orgID)

	// smart_code is required
	w := postJSON(t, engine, "/api/v1/finance/events", gin.H{
		"currency":      "AED",
		"source_system": "salon-pos",
		"origin_txn_id": "ORD-004",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostEvent_MissingOrganization(t *testing.T) {
	engine := eventTestRouter(salonRegistry(newMemoryJournalStore()), uuid.Nil)

	w := postJSON(t, engine, "/api/v1/finance/events", gin.H{
		"smart_code":    "HERA.SALON.SALE.SERVICE.v1",
		"origin_txn_id": "ORD-005",
		"currency":      "AED",
		"source_system": "salon-pos",
		"lines": []gin.H{
			{"entity_id": "PAYMENT:cash", "role": "Payment", "amount": "10", "type": "debit"},
			{"entity_id": "REVENUE:service", "role": "Revenue", "amount": "10", "type": "credit"},
		},
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostExpense_AutoPostsUnderThreshold(t *testing.T) {
	orgID := uuid.New()
	store := newMemoryJournalStore()
	engine := eventTestRouter(salonRegistry(store), orgID)

	w := postJSON(t, engine, "/api/v1/finance/expense", gin.H{
		"smart_code":    "HERA.SALON.EXPENSE.SUPPLIES.v1",
		"origin_txn_id": "EXP-001",
		"currency":      "AED",
		"source_system": "back-office",
		"amount":        "120",
		"ai_confidence": 0.9,
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "posted", data["status"])
	assert.Len(t, data["gl_lines"], 2)
}

func TestPostExpense_NegativeAmountRejected(t *testing.T) {
	orgID := uuid.New()
	engine := eventTestRouter(salonRegistry(newMemoryJournalStore()), orgID)

	w := postJSON(t, engine, "/api/v1/finance/expense", gin.H{
		"smart_code":    "HERA.SALON.EXPENSE.SUPPLIES.v1",
		"origin_txn_id": "EXP-002",
		"currency":      "AED",
		"source_system": "back-office",
		"amount":        "-5",
		"ai_confidence": 0.9,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
