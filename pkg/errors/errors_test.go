package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"invalid structure", errors.ErrCodeInvalidStructure, "structure contains an excluded token"},
		{"too large", errors.ErrCodeTooLarge, "mass exceeds ceiling"},
		{"malformed", errors.ErrCodeMalformedResponse, "empty result list"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestNew_StackContainsCaller(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeInternal, "test")
	assert.Contains(t, ae.Stack, "errors_test.go")
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("connection refused")
	ae := errors.Wrap(root, errors.ErrCodeStandardizerUnavailable, "standardizer call failed")

	require.NotNil(t, ae)
	assert.Equal(t, root, ae.Cause)
	assert.True(t, stderrors.Is(ae, root))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.TooLarge("mass exceeds ceiling")
	outer := errors.Wrap(inner, errors.CodeUnknown, "filter failed")

	assert.Equal(t, errors.ErrCodeTooLarge, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.TooLarge("mass exceeds ceiling")
	outer := errors.Wrap(inner, errors.ErrCodeCalculatorFailed, "calculation failed")

	assert.Equal(t, errors.ErrCodeCalculatorFailed, outer.Code)
	assert.True(t, errors.IsCode(outer, errors.ErrCodeTooLarge))
}

// ─────────────────────────────────────────────────────────────────────────────
// TestError_Method
// ─────────────────────────────────────────────────────────────────────────────

func TestError_FormatWithoutDetail(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeInvalidStructure, "excluded token")
	assert.Equal(t, "[STRUCT_001] excluded token", ae.Error())
}

func TestError_FormatWithDetail(t *testing.T) {
	t.Parallel()

	ae := errors.TooLarge("mass exceeds ceiling").WithDetail("mass=1500")
	assert.Equal(t, "[STRUCT_002] mass exceeds ceiling: mass=1500", ae.Error())
}

func TestError_ImplementsErrorInterface(t *testing.T) {
	t.Parallel()
	var err error = errors.Internal("x")
	assert.True(t, strings.HasPrefix(err.Error(), "[COMMON_001]"))
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWithDetail / TestWithCause
// ─────────────────────────────────────────────────────────────────────────────

func TestWithDetail_SetsDetailOnCopy(t *testing.T) {
	t.Parallel()

	orig := errors.InvalidStructure("excluded token")
	withDetail := orig.WithDetail("token=[Na+]")

	assert.Empty(t, orig.Detail)
	assert.Equal(t, "token=[Na+]", withDetail.Detail)
}

func TestWithDetail_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()
	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithCause_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	orig := errors.ServiceUnavailable("standardizer down")
	cause := stderrors.New("dial tcp: timeout")
	withCause := orig.WithCause(cause)

	assert.Nil(t, orig.Cause)
	assert.Equal(t, cause, withCause.Cause)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestIsCode / TestGetCode
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode(t *testing.T) {
	t.Parallel()

	inner := errors.UnsupportedStructure("brackets not supported")
	wrapped := fmt.Errorf("epi: %w", inner)

	assert.True(t, errors.IsCode(inner, errors.ErrCodeUnsupportedStructure))
	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeUnsupportedStructure))
	assert.False(t, errors.IsCode(wrapped, errors.ErrCodeTooLarge))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeTooLarge))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.ErrCodeTooLarge))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeMalformedResponse,
		errors.GetCode(fmt.Errorf("ctx: %w", errors.MalformedResponse("empty list"))))
}

func TestIsRejection(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsRejection(errors.InvalidStructure("x")))
	assert.True(t, errors.IsRejection(errors.TooLarge("x")))
	assert.True(t, errors.IsRejection(errors.UnsupportedStructure("x")))
	assert.False(t, errors.IsRejection(errors.ServiceUnavailable("x")))
	assert.False(t, errors.IsRejection(nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// TestConvenienceFactories
// ─────────────────────────────────────────────────────────────────────────────

func TestConvenienceFactories_ReturnCorrectCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  *errors.AppError
		code errors.ErrorCode
	}{
		{"InvalidStructure", errors.InvalidStructure("m"), errors.ErrCodeInvalidStructure},
		{"TooLarge", errors.TooLarge("m"), errors.ErrCodeTooLarge},
		{"UnsupportedStructure", errors.UnsupportedStructure("m"), errors.ErrCodeUnsupportedStructure},
		{"ServiceUnavailable", errors.ServiceUnavailable("m"), errors.ErrCodeStandardizerUnavailable},
		{"MalformedResponse", errors.MalformedResponse("m"), errors.ErrCodeMalformedResponse},
		{"InvalidParam", errors.InvalidParam("m"), errors.CodeInvalidParam},
		{"NotFound", errors.NotFound("m"), errors.CodeNotFound},
		{"Internal", errors.Internal("m"), errors.CodeInternal},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, "m", tc.err.Message)
		})
	}
}

func TestStdlib_ErrorsAs_DeepChain(t *testing.T) {
	t.Parallel()

	inner := errors.InvalidStructure("excluded token")
	chain := fmt.Errorf("layer2: %w", fmt.Errorf("layer1: %w", inner))

	var ae *errors.AppError
	require.True(t, stderrors.As(chain, &ae))
	assert.Equal(t, errors.ErrCodeInvalidStructure, ae.Code)
}
