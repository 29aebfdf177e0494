package ir

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/milir/internal/diag"
	"github.com/roach88/milir/internal/types"
)

func newTestSession() *Session {
	return NewSession(WithSessionLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestPlaceholderAutoNames(t *testing.T) {
	sess := newTestSession()

	a, err := NewPlaceholder(sess, []int{1, 3})
	require.NoError(t, err)
	b, err := NewPlaceholder(sess, []int{2})
	require.NoError(t, err)
	named, err := NewPlaceholder(sess, []int{2}, WithName("x"))
	require.NoError(t, err)
	c, err := NewPlaceholder(sess, []int{4})
	require.NoError(t, err)

	assert.Equal(t, "placeholder_0", a.Name())
	assert.Equal(t, "placeholder_1", b.Name())
	assert.Equal(t, "x", named.Name())
	assert.Equal(t, "placeholder_2", c.Name(), "explicit names do not consume the counter")
}

func TestPlaceholderSessionsAreIndependent(t *testing.T) {
	s1, s2 := newTestSession(), newTestSession()

	a, err := NewPlaceholder(s1, []int{1})
	require.NoError(t, err)
	b, err := NewPlaceholder(s2, []int{1})
	require.NoError(t, err)

	assert.Equal(t, "placeholder_0", a.Name())
	assert.Equal(t, "placeholder_0", b.Name())
}

func TestPlaceholderTypeInference(t *testing.T) {
	sess := newTestSession()
	h, err := sess.Symbols().NewSymbol("H")
	require.NoError(t, err)

	p, err := NewPlaceholder(sess, []any{1, 3, h}, WithDType(types.FP16), WithName("img"))
	require.NoError(t, err)

	typ := p.TypeInference()
	tensor, ok := typ.(types.Tensor)
	require.True(t, ok, "rank-3 placeholder infers a tensor, got %T", typ)
	assert.Equal(t, types.FP16, tensor.DType)
	assert.Equal(t, 3, tensor.Rank())
	assert.Equal(t, "tensor<fp16, [1, 3, H]>", typ.String())
	assert.Equal(t, typ, p.Output().Type)
	assert.Equal(t, "%img: tensor<fp16, [1, 3, H]>", p.String())
}

func TestPlaceholderDefaultDType(t *testing.T) {
	p, err := NewPlaceholder(newTestSession(), []int{2})
	require.NoError(t, err)
	assert.Equal(t, types.FP32, p.DType())
}

func TestPlaceholderRank0(t *testing.T) {
	t.Run("rejected by default", func(t *testing.T) {
		_, err := NewPlaceholder(newTestSession(), []int{}, WithName("s"))
		require.Error(t, err)
		assert.True(t, diag.Is(err, diag.CodeShapeElement))
		assert.Contains(t, err.Error(), `"s"`)
	})

	t.Run("allowed with warning", func(t *testing.T) {
		var buf bytes.Buffer
		sess := NewSession(WithSessionLogger(slog.New(slog.NewTextHandler(&buf, nil))))

		p, err := NewPlaceholder(sess, []int{}, WithName("s"), WithDType(types.Int32), AllowRank0())
		require.NoError(t, err)

		assert.Equal(t, types.Scalar{DType: types.Int32}, p.TypeInference())
		assert.Equal(t, 0, types.Rank(p.Output().Type))
		assert.Contains(t, buf.String(), "level=WARN")
		assert.Contains(t, buf.String(), "input=s")
	})
}

func TestPlaceholderShapeErrors(t *testing.T) {
	sess := newTestSession()

	tests := []struct {
		name  string
		shape any
	}{
		{"not a sequence", 3},
		{"string", "1,2"},
		{"float element", []any{1, 2.5}},
		{"string element", []any{1, "H"}},
		{"negative element", []int{1, -1}},
		{"nil element", []any{1, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlaceholder(sess, tt.shape)
			require.Error(t, err)
			assert.Equal(t, diag.CodeShapeElement, diag.CodeOf(err))
		})
	}
}

func TestPlaceholderRequiresSession(t *testing.T) {
	_, err := NewPlaceholder(nil, []int{1})
	assert.True(t, diag.Is(err, diag.CodeInvalidArgument))
}

func TestPlaceholderInvalidDType(t *testing.T) {
	_, err := NewPlaceholder(newTestSession(), []int{1}, WithDType(types.InvalidDType))
	assert.True(t, diag.Is(err, diag.CodeInvalidArgument))
}

func TestPlaceholderSetNameSyncsOutput(t *testing.T) {
	p, err := NewPlaceholder(newTestSession(), []int{1})
	require.NoError(t, err)

	p.SetName("renamed")

	assert.Equal(t, "renamed", p.Name())
	assert.Equal(t, "renamed", p.Output().Name)
	require.Len(t, p.Outputs(), 1)
	assert.Same(t, p.Output(), p.Outputs()[0])
	assert.Equal(t, "renamed", p.Spec().Name)
}

func TestSessionReset(t *testing.T) {
	sess := newTestSession()
	_, err := NewPlaceholder(sess, []int{1})
	require.NoError(t, err)
	_, err = sess.Symbols().NewSymbol("H")
	require.NoError(t, err)

	sess.Reset()

	p, err := NewPlaceholder(sess, []int{1})
	require.NoError(t, err)
	assert.Equal(t, "placeholder_0", p.Name())
	assert.Equal(t, 0, sess.Symbols().Len())
}
