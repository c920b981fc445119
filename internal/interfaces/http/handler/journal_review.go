package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hera/finance/internal/domain/posting"
)

// JournalReviewStore exposes the staged journal review operations and the
// journal audit-trail query
type JournalReviewStore interface {
	ListStaged(ctx context.Context, orgID uuid.UUID, limit, offset int) ([]*posting.StagedJournal, error)
	ApproveStaged(ctx context.Context, orgID uuid.UUID, stagedRef, reviewNote string) (string, error)
	DiscardStaged(ctx context.Context, orgID uuid.UUID, stagedRef, reviewNote string) error
	FindByOriginTxn(ctx context.Context, orgID uuid.UUID, originTxnID string) ([]*posting.Journal, error)
}

// JournalReviewHandler handles the staged journal review queue and the
// journal audit trail
type JournalReviewHandler struct {
	BaseHandler
	store JournalReviewStore
}

// NewJournalReviewHandler creates a new JournalReviewHandler
func NewJournalReviewHandler(store JournalReviewStore) *JournalReviewHandler {
	return &JournalReviewHandler{store: store}
}

// ===================== Request/Response DTOs =====================

// StagedJournalResponse represents a staged journal awaiting review
type StagedJournalResponse struct {
	StagedRef    string           `json:"staged_ref"`
	SmartCode    string           `json:"smart_code"`
	OriginTxnID  string           `json:"origin_txn_id"`
	SourceSystem string           `json:"source_system"`
	Currency     string           `json:"currency"`
	RuleCode     string           `json:"rule_code"`
	Reason       string           `json:"reason"`
	AIConfidence float64          `json:"ai_confidence"`
	Lines        []GLLineResponse `json:"lines"`
	StagedAt     time.Time        `json:"staged_at"`
}

// JournalResponse represents a committed journal entry
type JournalResponse struct {
	JournalCode  string           `json:"journal_code"`
	SmartCode    string           `json:"smart_code"`
	OriginTxnID  string           `json:"origin_txn_id"`
	SourceSystem string           `json:"source_system"`
	Currency     string           `json:"currency"`
	EventTime    time.Time        `json:"event_time"`
	Lines        []GLLineResponse `json:"lines"`
	PostedAt     time.Time        `json:"posted_at"`
}

// ReviewRequest carries the optional note recorded with a review decision
type ReviewRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// ApproveResultResponse represents the outcome of approving a staged journal
type ApproveResultResponse struct {
	StagedRef   string `json:"staged_ref"`
	JournalCode string `json:"journal_code"`
}

// ListStagedQuery binds the review queue pagination parameters
type ListStagedQuery struct {
	Limit  int `form:"limit" binding:"omitempty,gt=0,lte=200"`
	Offset int `form:"offset" binding:"omitempty,gte=0"`
}

func toStagedJournalResponse(s *posting.StagedJournal) StagedJournalResponse {
	return StagedJournalResponse{
		StagedRef:    s.StagedRef,
		SmartCode:    string(s.Event.SmartCode),
		OriginTxnID:  s.Event.OriginTxnID,
		SourceSystem: s.Event.SourceSystem,
		Currency:     s.Event.Currency,
		RuleCode:     string(s.RuleCode),
		Reason:       s.Reason,
		AIConfidence: s.Event.AIConfidence,
		Lines:        toGLLineResponses(s.Lines),
		StagedAt:     s.StagedAt,
	}
}

func toJournalResponse(j *posting.Journal) JournalResponse {
	return JournalResponse{
		JournalCode:  j.JournalCode,
		SmartCode:    string(j.SmartCode),
		OriginTxnID:  j.OriginTxnID,
		SourceSystem: j.SourceSystem,
		Currency:     j.Currency,
		EventTime:    j.EventTime,
		Lines:        toGLLineResponses(j.Lines),
		PostedAt:     j.PostedAt,
	}
}

// ===================== Review Queue Handlers =====================

// ListStaged returns pending staged journals for review, oldest first
func (h *JournalReviewHandler) ListStaged(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization identification required")
		return
	}

	var query ListStagedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	staged, err := h.store.ListStaged(c.Request.Context(), orgID, query.Limit, query.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]StagedJournalResponse, 0, len(staged))
	for _, s := range staged {
		responses = append(responses, toStagedJournalResponse(s))
	}
	h.SuccessWithMeta(c, responses, int64(len(responses)), query.Limit, len(responses))
}

// ApproveStaged commits a pending staged journal to the ledger
func (h *JournalReviewHandler) ApproveStaged(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization identification required")
		return
	}
	stagedRef := c.Param("ref")

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.BadRequest(c, err.Error())
		return
	}

	journalCode, err := h.store.ApproveStaged(c.Request.Context(), orgID, stagedRef, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ApproveResultResponse{
		StagedRef:   stagedRef,
		JournalCode: journalCode,
	})
}

// DiscardStaged marks a pending staged journal as discarded
func (h *JournalReviewHandler) DiscardStaged(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization identification required")
		return
	}
	stagedRef := c.Param("ref")

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.store.DiscardStaged(c.Request.Context(), orgID, stagedRef, req.Note); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ===================== Audit Trail Handlers =====================

// ListJournalsByOrigin returns the journals committed for one originating
// transaction, newest first
func (h *JournalReviewHandler) ListJournalsByOrigin(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization identification required")
		return
	}

	originTxnID := c.Query("origin_txn_id")
	if originTxnID == "" {
		h.BadRequest(c, "origin_txn_id query parameter is required")
		return
	}

	journals, err := h.store.FindByOriginTxn(c.Request.Context(), orgID, originTxnID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]JournalResponse, 0, len(journals))
	for _, j := range journals {
		responses = append(responses, toJournalResponse(j))
	}
	h.Success(c, responses)
}
