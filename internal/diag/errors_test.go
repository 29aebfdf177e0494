package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CodeRankUnsupported, "rank %d tensor", 6).WithFunction("main").WithOp("r")
	assert.Equal(t, "RANK_UNSUPPORTED: rank 6 tensor (function=main, op=r)", err.Error())

	bare := New(CodeNotFound, "symbol %q", "H")
	assert.Equal(t, `NOT_FOUND: symbol "H"`, bare.Error())
}

func TestIsUnwrapsWrappedErrors(t *testing.T) {
	base := New(CodeConstViolation, "x")
	wrapped := fmt.Errorf("check: %w", base)

	assert.True(t, Is(wrapped, CodeConstViolation))
	assert.False(t, Is(wrapped, CodeNotFound))
	assert.False(t, Is(errors.New("plain"), CodeConstViolation))
	assert.Equal(t, CodeConstViolation, CodeOf(wrapped))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}

func TestShortCodes(t *testing.T) {
	assert.Equal(t, "E202", CodeVersionMismatch.Short())
	assert.Equal(t, "E213", CodeInvalidFunction.Short())
	assert.Equal(t, "E200", Code("BOGUS").Short())
}

func TestDetails(t *testing.T) {
	err := New(CodeVersionTooLow, "too low").
		WithDetail("required", "iOS16").
		WithDetail("actual", "iOS15")

	assert.Equal(t, []string{"actual", "required"}, err.DetailKeys())
	assert.Equal(t, "iOS16", err.Details["required"])
}
