package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appposting "github.com/hera/finance/internal/application/posting"
	"github.com/hera/finance/internal/domain/posting"
	"github.com/hera/finance/internal/interfaces/http/dto"
)

// FinanceEventHandler handles finance event posting endpoints
type FinanceEventHandler struct {
	BaseHandler
	registry *appposting.ProcessorRegistry
}

// NewFinanceEventHandler creates a new FinanceEventHandler
func NewFinanceEventHandler(registry *appposting.ProcessorRegistry) *FinanceEventHandler {
	return &FinanceEventHandler{registry: registry}
}

// ===================== Request/Response DTOs =====================

// EventLineRequest represents one business line of a finance event
type EventLineRequest struct {
	EntityID      string            `json:"entity_id" binding:"required,min=1,max=200"`
	Role          string            `json:"role" binding:"required,min=1,max=100"`
	Amount        decimal.Decimal   `json:"amount" binding:"required"`
	Type          string            `json:"type" binding:"required,oneof=debit credit"`
	Relationships map[string]string `json:"relationships,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
}

// PostEventRequest represents a request to post a universal finance event
type PostEventRequest struct {
	SmartCode    string             `json:"smart_code" binding:"required,max=200,smartcode"`
	EventTime    *time.Time         `json:"event_time,omitempty"`
	Currency     string             `json:"currency" binding:"required,len=3"`
	SourceSystem string             `json:"source_system" binding:"required,min=1,max=100"`
	OriginTxnID  string             `json:"origin_txn_id" binding:"required,min=1,max=200"`
	AIConfidence float64            `json:"ai_confidence" binding:"gte=0,lte=1"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	// Empty is a valid shape: commitment-only events carry no lines.
	Lines []EventLineRequest `json:"lines" binding:"omitempty,dive"`
}

// PostRevenueRequest represents the simplified revenue posting shape
type PostRevenueRequest struct {
	SmartCode    string          `json:"smart_code" binding:"required,max=200,smartcode"`
	OriginTxnID  string          `json:"origin_txn_id" binding:"required,min=1,max=200"`
	Currency     string          `json:"currency" binding:"required,len=3"`
	SourceSystem string          `json:"source_system" binding:"required,min=1,max=100"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	AIConfidence float64         `json:"ai_confidence" binding:"gte=0,lte=1"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}

// PostExpenseRequest represents the simplified expense posting shape
type PostExpenseRequest struct {
	SmartCode    string          `json:"smart_code" binding:"required,max=200,smartcode"`
	OriginTxnID  string          `json:"origin_txn_id" binding:"required,min=1,max=200"`
	Currency     string          `json:"currency" binding:"required,len=3"`
	SourceSystem string          `json:"source_system" binding:"required,min=1,max=100"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	AIConfidence float64         `json:"ai_confidence" binding:"gte=0,lte=1"`
	Metadata     map[string]any  `json:"metadata,omitempty"`
}

// GLLineResponse represents one derived general ledger line
type GLLineResponse struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
	DR        string `json:"dr"`
	CR        string `json:"cr"`
}

// PostingResultResponse represents the outcome of posting a finance event
type PostingResultResponse struct {
	Status        string           `json:"status"`
	Message       string           `json:"message,omitempty"`
	JournalCode   string           `json:"journal_code,omitempty"`
	StagedRef     string           `json:"staged_ref,omitempty"`
	RejectionKind string           `json:"rejection_kind,omitempty"`
	GLLines       []GLLineResponse `json:"gl_lines,omitempty"`
}

func toGLLineResponses(lines []posting.GLLine) []GLLineResponse {
	out := make([]GLLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, GLLineResponse{
			AccountID: string(l.AccountID),
			Role:      l.Role,
			DR:        l.DR.String(),
			CR:        l.CR.String(),
		})
	}
	return out
}

func toPostingResultResponse(result appposting.Result) PostingResultResponse {
	return PostingResultResponse{
		Status:        result.Status,
		Message:       result.Message,
		JournalCode:   result.JournalCode,
		StagedRef:     result.StagedRef,
		RejectionKind: result.RejectionKind,
		GLLines:       toGLLineResponses(result.GLLines),
	}
}

// rejectionErrorCode maps the engine's rejection kind to an API error code
func rejectionErrorCode(kind string) string {
	switch posting.RejectionKind(kind) {
	case posting.RejectionConfig:
		return dto.ErrCodeModuleNotActive
	case posting.RejectionPeriod:
		return dto.ErrCodePeriodClosed
	case posting.RejectionData:
		return dto.ErrCodeInvalidInput
	default:
		return dto.ErrCodeBusinessRule
	}
}

// writeResult maps a posting result to the HTTP response: posted events are
// created, staged events are accepted pending review, rejections carry the
// rejection kind and derived lines for the caller to inspect
func (h *FinanceEventHandler) writeResult(c *gin.Context, result appposting.Result) {
	resp := toPostingResultResponse(result)
	switch result.Status {
	case appposting.StatusPosted:
		h.Created(c, resp)
	case appposting.StatusStaged:
		c.JSON(http.StatusAccepted, dto.NewSuccessResponse(resp))
	case appposting.StatusRejected:
		code := rejectionErrorCode(result.RejectionKind)
		c.JSON(dto.GetHTTPStatus(code), dto.Response{
			Success: false,
			Data:    resp,
			Error: &dto.ErrorInfo{
				Code:      code,
				Message:   result.Message,
				RequestID: getRequestID(c),
			},
		})
	default:
		h.InternalError(c, result.Message)
	}
}

// processorFor resolves the organization's processor, translating build
// failures into domain error responses
func (h *FinanceEventHandler) processorFor(c *gin.Context) (*appposting.Processor, bool) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.Unauthorized(c, "Organization identification required")
		return nil, false
	}
	proc, err := h.registry.ProcessorFor(c.Request.Context(), orgID)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return proc, true
}

// ===================== Event Posting Handlers =====================

// PostEvent posts a universal finance event through the organization's
// posting engine
func (h *FinanceEventHandler) PostEvent(c *gin.Context) {
	proc, ok := h.processorFor(c)
	if !ok {
		return
	}

	var req PostEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	orgID, _ := getOrganizationID(c)
	params := appposting.ProcessBusinessEventParams{
		OrganizationID: orgID,
		SmartCode:      req.SmartCode,
		Currency:       req.Currency,
		SourceSystem:   req.SourceSystem,
		OriginTxnID:    req.OriginTxnID,
		AIConfidence:   req.AIConfidence,
		Metadata:       req.Metadata,
	}
	if req.EventTime != nil {
		params.EventTime = *req.EventTime
	}
	for _, line := range req.Lines {
		params.Lines = append(params.Lines, appposting.LineInput{
			EntityID:      line.EntityID,
			Role:          line.Role,
			Amount:        line.Amount,
			Type:          line.Type,
			Relationships: line.Relationships,
			Metadata:      line.Metadata,
		})
	}

	h.writeResult(c, proc.ProcessBusinessEvent(c.Request.Context(), params))
}

// PostRevenue posts a revenue event from the simplified shape
func (h *FinanceEventHandler) PostRevenue(c *gin.Context) {
	proc, ok := h.processorFor(c)
	if !ok {
		return
	}

	var req PostRevenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Amount.IsNegative() || req.TaxAmount.IsNegative() {
		h.BadRequest(c, "amount and tax_amount must not be negative")
		return
	}

	orgID, _ := getOrganizationID(c)
	h.writeResult(c, proc.PostRevenue(c.Request.Context(), appposting.RevenueParams{
		OrganizationID: orgID,
		SmartCode:      req.SmartCode,
		OriginTxnID:    req.OriginTxnID,
		Currency:       req.Currency,
		SourceSystem:   req.SourceSystem,
		Amount:         req.Amount,
		TaxAmount:      req.TaxAmount,
		AIConfidence:   req.AIConfidence,
		Metadata:       req.Metadata,
	}))
}

// PostExpense posts an expense event from the simplified shape
func (h *FinanceEventHandler) PostExpense(c *gin.Context) {
	proc, ok := h.processorFor(c)
	if !ok {
		return
	}

	var req PostExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if req.Amount.IsNegative() {
		h.BadRequest(c, "amount must not be negative")
		return
	}

	orgID, _ := getOrganizationID(c)
	h.writeResult(c, proc.PostExpense(c.Request.Context(), appposting.ExpenseParams{
		OrganizationID: orgID,
		SmartCode:      req.SmartCode,
		OriginTxnID:    req.OriginTxnID,
		Currency:       req.Currency,
		SourceSystem:   req.SourceSystem,
		Amount:         req.Amount,
		AIConfidence:   req.AIConfidence,
		Metadata:       req.Metadata,
	}))
}
