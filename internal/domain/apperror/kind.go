package apperror

import "net/http"

// Kind is the category of a business error
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindValidation   Kind = "VALIDATION_ERROR"
	KindInvalidState Kind = "INVALID_STATE"
	KindForbidden    Kind = "FORBIDDEN"
	KindInternal     Kind = "INTERNAL"
)

// HTTPStatus returns the HTTP status code for the kind
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindInvalidState:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Machine codes surfaced to clients
const (
	CodeClaimNotFound        = "CLAIM_NOT_FOUND"
	CodeExpenseNotFound      = "EXPENSE_NOT_FOUND"
	CodeAttachmentNotFound   = "ATTACHMENT_NOT_FOUND"
	CodeFileNotFound         = "FILE_NOT_FOUND"
	CodeEmployeeNotFound     = "EMPLOYEE_NOT_FOUND"
	CodeEventTypeNotFound    = "EVENT_TYPE_NOT_FOUND"
	CodeCurrencyNotFound     = "CURRENCY_NOT_FOUND"
	CodeExpenseTypeNotFound  = "EXPENSE_TYPE_NOT_FOUND"
	CodeClaimInvalidState    = "CLAIM_INVALID_STATE"
	CodeClaimNoExpenses      = "CLAIM_NO_EXPENSES"
	CodeClaimZeroTotal       = "CLAIM_ZERO_TOTAL"
	CodeRejectionReason      = "REJECTION_REASON_REQUIRED"
	CodeExpenseDateFuture    = "EXPENSE_DATE_IN_FUTURE"
	CodeExpenseAmount        = "EXPENSE_AMOUNT_INVALID"
	CodeFileTooLarge         = "FILE_TOO_LARGE"
	CodeFileTypeNotAllowed   = "FILE_TYPE_NOT_ALLOWED"
	CodeFileUnreadable       = "FILE_UNREADABLE"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeForbidden            = "FORBIDDEN"
	CodeInternal             = "INTERNAL_ERROR"
)
