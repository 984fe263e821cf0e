package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-claims/internal/application/service"
	"github.com/garyjia/expense-claims/internal/domain/claimquery"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	maxUploadBytes int64
	logger         Logger
}

type createClaimRequest struct {
	EmployeeID  int64  `json:"employee_id"`
	EventTypeID int64  `json:"event_type_id"`
	CurrencyID  int64  `json:"currency_id"`
	Remarks     string `json:"remarks"`
}

type updateClaimRequest struct {
	EventTypeID *int64  `json:"event_type_id"`
	CurrencyID  *int64  `json:"currency_id"`
	Remarks     *string `json:"remarks"`
}

type rejectClaimRequest struct {
	Reason string `json:"reason"`
}

type searchClaimsRequest struct {
	EmployeeName  string `form:"employee_name"`
	ReferenceID   string `form:"reference_id"`
	EventTypeID   int64  `form:"event_type_id"`
	Status        string `form:"status"`
	SubmittedFrom string `form:"submitted_from"`
	SubmittedTo   string `form:"submitted_to"`
	Include       string `form:"include"`
	EmployeeScope string `form:"employee_scope"`
	ClaimScope    string `form:"claim_scope"`
	SortBy        string `form:"sort_by"`
	SortDir       string `form:"sort_dir"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
}

func (r searchClaimsRequest) params() claimquery.Params {
	return claimquery.Params{
		EmployeeName:  r.EmployeeName,
		ReferenceID:   r.ReferenceID,
		EventTypeID:   r.EventTypeID,
		Status:        r.Status,
		SubmittedFrom: r.SubmittedFrom,
		SubmittedTo:   r.SubmittedTo,
		Include:       r.Include,
		EmployeeScope: r.EmployeeScope,
		ClaimScope:    r.ClaimScope,
		SortBy:        r.SortBy,
		SortDir:       r.SortDir,
		Page:          r.Page,
		PageSize:      r.PageSize,
	}
}

// CreateClaim handles POST /api/claims. The claimant defaults to the caller.
func (h *Handlers) CreateClaim(c *gin.Context) {
	var req createClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	principal := principalFrom(c)
	if req.EmployeeID == 0 {
		req.EmployeeID = principal.ID
	}

	claim, err := h.services.Claims.Create(c.Request.Context(), service.CreateClaimInput{
		EmployeeID:  req.EmployeeID,
		EventTypeID: req.EventTypeID,
		CurrencyID:  req.CurrencyID,
		Remarks:     req.Remarks,
	}, principal)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusCreated, claim)
}

// SearchClaims handles GET /api/claims
func (h *Handlers) SearchClaims(c *gin.Context) {
	var req searchClaimsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	result, err := h.services.Query.Search(c.Request.Context(), req.params())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, result)
}

// ExportClaims handles GET /api/claims/export
func (h *Handlers) ExportClaims(c *gin.Context) {
	var req searchClaimsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	var buf bytes.Buffer
	rows, err := h.services.Query.Export(c.Request.Context(), req.params(), &buf)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("claims-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", contentDisposition(filename))
	c.Header("X-Total-Rows", fmt.Sprint(rows))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	detail, err := h.services.Claims.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, detail)
}

// UpdateClaim handles PATCH /api/claims/:id
func (h *Handlers) UpdateClaim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req updateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	claim, err := h.services.Claims.Update(c.Request.Context(), id, service.UpdateClaimInput{
		EventTypeID: req.EventTypeID,
		CurrencyID:  req.CurrencyID,
		Remarks:     req.Remarks,
	}, principalFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, claim)
}

// DeleteClaim handles DELETE /api/claims/:id
func (h *Handlers) DeleteClaim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Claims.Delete(c.Request.Context(), id, principalFrom(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": id})
}

// SubmitClaim handles POST /api/claims/:id/submit
func (h *Handlers) SubmitClaim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	claim, err := h.services.Claims.Submit(c.Request.Context(), id, principalFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, claim)
}

// ApproveClaim handles POST /api/claims/:id/approve
func (h *Handlers) ApproveClaim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	claim, err := h.services.Claims.Approve(c.Request.Context(), id, principalFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, claim)
}

// RejectClaim handles POST /api/claims/:id/reject
func (h *Handlers) RejectClaim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req rejectClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	claim, err := h.services.Claims.Reject(c.Request.Context(), id, service.RejectClaimInput{Reason: req.Reason}, principalFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, claim)
}
