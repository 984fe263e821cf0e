package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := InvalidState(CodeClaimInvalidState, "claim is not editable")

	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, &Error{Kind: KindInvalidState, Code: CodeClaimInvalidState}))
	assert.False(t, errors.Is(err, &Error{Kind: KindInvalidState, Code: CodeClaimNoExpenses}))
}

func TestError_WrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("submit claim 4: %w", Validation(CodeClaimNoExpenses, "claim must have at least one expense"))

	assert.True(t, errors.Is(wrapped, ErrValidation))
	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeClaimNoExpenses, appErr.Code)
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("disk on fire")))
}

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusUnprocessableEntity},
		{KindInvalidState, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to load claim", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestError_WithMetadata(t *testing.T) {
	base := NotFound(CodeClaimNotFound, "claim not found")
	withID := base.WithMetadata("claim_id", "9")

	assert.Equal(t, "9", withID.Metadata["claim_id"])
	assert.Nil(t, base.Metadata)
}
