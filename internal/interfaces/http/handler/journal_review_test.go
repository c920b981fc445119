package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/domain/shared"
	"github.com/hera/finance/internal/interfaces/http/middleware"
)

type fakeReviewStore struct {
	staged   []*posting.StagedJournal
	journals []*posting.Journal

	approvedRef  string
	approvedNote string
	discardedRef string
	err          error
}

func (f *fakeReviewStore) ListStaged(_ context.Context, _ uuid.UUID, limit, offset int) ([]*posting.StagedJournal, error) {
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.staged) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.staged) {
		end = len(f.staged)
	}
	return f.staged[offset:end], nil
}

func (f *fakeReviewStore) ApproveStaged(_ context.Context, _ uuid.UUID, stagedRef, reviewNote string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.approvedRef = stagedRef
	f.approvedNote = reviewNote
	return "JE-0042", nil
}

func (f *fakeReviewStore) DiscardStaged(_ context.Context, _ uuid.UUID, stagedRef, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.discardedRef = stagedRef
	return nil
}

func (f *fakeReviewStore) FindByOriginTxn(_ context.Context, _ uuid.UUID, originTxnID string) ([]*posting.Journal, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*posting.Journal
	for _, j := range f.journals {
		if j.OriginTxnID == originTxnID {
			out = append(out, j)
		}
	}
	return out, nil
}

func stagedFixture(orgID uuid.UUID, ref string) *posting.StagedJournal {
	event := &posting.UniversalFinanceEvent{
		OrganizationID: orgID,
		SmartCode:      "HERA.SALON.SALE.SERVICE.v1",
		EventTime:      time.Now(),
		Currency:       "AED",
		SourceSystem:   "salon-pos",
		OriginTxnID:    "ORD-100",
		AIConfidence:   0.5,
	}
	lines := []posting.GLLine{
		{AccountID: "1100", Role: "Payment", DR: decimal.NewFromInt(100)},
		{AccountID: "4100", Role: "Revenue", CR: decimal.NewFromInt(100)},
	}
	return posting.NewStagedJournal(event, ref, lines, event.SmartCode, "auto-post condition not met, staged for review")
}

func journalFixture(orgID uuid.UUID, code, originTxnID string) *posting.Journal {
	event := &posting.UniversalFinanceEvent{
		OrganizationID: orgID,
		SmartCode:      "HERA.SALON.SALE.SERVICE.v1",
		EventTime:      time.Now(),
		Currency:       "AED",
		SourceSystem:   "salon-pos",
		OriginTxnID:    originTxnID,
	}
	lines := []posting.GLLine{
		{AccountID: "1100", Role: "Payment", DR: decimal.NewFromInt(50)},
		{AccountID: "4100", Role: "Revenue", CR: decimal.NewFromInt(50)},
	}
	return posting.NewJournal(event, code, lines)
}

func newJSONBody(t *testing.T, body any) io.Reader {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

func reviewTestRouter(store JournalReviewStore, orgID uuid.UUID) *gin.Engine {
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(middleware.OrganizationIDKey, orgID.String())
		c.Next()
	})
	h := NewJournalReviewHandler(store)
	api := engine.Group("/api/v1/finance")
	api.GET("/staged", h.ListStaged)
	api.POST("/staged/:ref/approve", h.ApproveStaged)
	api.POST("/staged/:ref/discard", h.DiscardStaged)
	api.GET("/journals", h.ListJournalsByOrigin)
	return engine
}

func TestListStaged(t *testing.T) {
	orgID := uuid.New()
	store := &fakeReviewStore{staged: []*posting.StagedJournal{
		stagedFixture(orgID, "STG-0001"),
		stagedFixture(orgID, "STG-0002"),
	}}
	engine := reviewTestRouter(store, orgID)

	req := httptest.NewRequest("GET", "/api/v1/finance/staged", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var envelope struct {
		Success bool                    `json:"success"`
		Data    []StagedJournalResponse `json:"data"`
		Meta    struct {
			Returned int `json:"returned"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	require.Len(t, envelope.Data, 2)
	assert.Equal(t, "STG-0001", envelope.Data[0].StagedRef)
	assert.Equal(t, "HERA.SALON.SALE.SERVICE.v1", envelope.Data[0].SmartCode)
	assert.Len(t, envelope.Data[0].Lines, 2)
	assert.Equal(t, 2, envelope.Meta.Returned)
}

func TestListStaged_LimitValidation(t *testing.T) {
	orgID := uuid.New()
	engine := reviewTestRouter(&fakeReviewStore{}, orgID)

	req := httptest.NewRequest("GET", "/api/v1/finance/staged?limit=500", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproveStaged(t *testing.T) {
	orgID := uuid.New()
	store := &fakeReviewStore{}
	engine := reviewTestRouter(store, orgID)

	req := httptest.NewRequest("POST", "/api/v1/finance/staged/STG-0001/approve",
		newJSONBody(t, gin.H{"note": "reviewed and verified"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var envelope struct {
		Data ApproveResultResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "STG-0001", envelope.Data.StagedRef)
	assert.Equal(t, "JE-0042", envelope.Data.JournalCode)
	assert.Equal(t, "reviewed and verified", store.approvedNote)
}

func TestApproveStaged_EmptyBody(t *testing.T) {
	orgID := uuid.New()
	store := &fakeReviewStore{}
	engine := reviewTestRouter(store, orgID)

	req := httptest.NewRequest("POST", "/api/v1/finance/staged/STG-0001/approve", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, store.approvedNote)
}

func TestApproveStaged_NotFound(t *testing.T) {
	orgID := uuid.New()
	engine := reviewTestRouter(&fakeReviewStore{err: shared.ErrNotFound}, orgID)

	req := httptest.NewRequest("POST", "/api/v1/finance/staged/STG-MISSING/approve", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_NOT_FOUND")
}

func TestApproveStaged_AlreadyReviewed(t *testing.T) {
	orgID := uuid.New()
	err := shared.NewDomainError("INVALID_STATE", "staged journal STG-0001 is approved, only pending entries can be approved")
	engine := reviewTestRouter(&fakeReviewStore{err: err}, orgID)

	req := httptest.NewRequest("POST", "/api/v1/finance/staged/STG-0001/approve", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_INVALID_STATE")
}

func TestDiscardStaged(t *testing.T) {
	orgID := uuid.New()
	store := &fakeReviewStore{}
	engine := reviewTestRouter(store, orgID)

	req := httptest.NewRequest("POST", "/api/v1/finance/staged/STG-0002/discard",
		newJSONBody(t, gin.H{"note": "duplicate of ORD-099"}))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "STG-0002", store.discardedRef)
}

func TestListJournalsByOrigin(t *testing.T) {
	orgID := uuid.New()
	store := &fakeReviewStore{journals: []*posting.Journal{
		journalFixture(orgID, "JE-0001", "ORD-100"),
		journalFixture(orgID, "JE-0002", "ORD-200"),
	}}
	engine := reviewTestRouter(store, orgID)

	req := httptest.NewRequest("GET", "/api/v1/finance/journals?origin_txn_id=ORD-100", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var envelope struct {
		Data []JournalResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "JE-0001", envelope.Data[0].JournalCode)
	assert.Equal(t, "ORD-100", envelope.Data[0].OriginTxnID)
}

func TestListJournalsByOrigin_MissingParam(t *testing.T) {
	orgID := uuid.New()
	engine := reviewTestRouter(&fakeReviewStore{}, orgID)

	req := httptest.NewRequest("GET", "/api/v1/finance/journals", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "origin_txn_id")
}
