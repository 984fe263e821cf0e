package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-claims/internal/application/service"
)

const dateLayout = "2006-01-02"

type expenseRequest struct {
	ExpenseTypeID int64           `json:"expense_type_id"`
	ExpenseDate   string          `json:"expense_date"`
	Amount        decimal.Decimal `json:"amount"`
	Note          string          `json:"note"`
}

func (r expenseRequest) input() (service.ExpenseInput, bool) {
	in := service.ExpenseInput{
		ExpenseTypeID: r.ExpenseTypeID,
		Amount:        r.Amount,
		Note:          r.Note,
	}
	if r.ExpenseDate != "" {
		d, err := time.Parse(dateLayout, r.ExpenseDate)
		if err != nil {
			return in, false
		}
		in.ExpenseDate = d
	}
	return in, true
}

func (h *Handlers) bindExpense(c *gin.Context) (service.ExpenseInput, bool) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return service.ExpenseInput{}, false
	}
	in, ok := req.input()
	if !ok {
		badRequest(c, "expense_date must be YYYY-MM-DD")
		return in, false
	}
	return in, true
}

// ListExpenses handles GET /api/claims/:id/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	claimID, ok := paramID(c, "id")
	if !ok {
		return
	}

	expenses, err := h.services.Expenses.List(c.Request.Context(), claimID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, expenses)
}

// CreateExpense handles POST /api/claims/:id/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	claimID, ok := paramID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bindExpense(c)
	if !ok {
		return
	}

	expense, err := h.services.Expenses.Create(c.Request.Context(), claimID, in, principalFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusCreated, expense)
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	expense, err := h.services.Expenses.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, expense)
}

// UpdateExpense handles PUT /api/expenses/:id
func (h *Handlers) UpdateExpense(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bindExpense(c)
	if !ok {
		return
	}

	expense, err := h.services.Expenses.Update(c.Request.Context(), id, in, principalFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, expense)
}

// DeleteExpense handles DELETE /api/expenses/:id
func (h *Handlers) DeleteExpense(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Expenses.Delete(c.Request.Context(), id, principalFrom(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"id": id})
}
