package symbolic

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/milir/internal/diag"
)

func newTestRegistry(buf *bytes.Buffer) *Registry {
	return NewRegistry(WithLogger(slog.New(slog.NewTextHandler(buf, nil))))
}

func TestNewSymbolAnonymous(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	s0, err := r.NewSymbol("")
	require.NoError(t, err)
	s1, err := r.NewSymbol("")
	require.NoError(t, err)

	assert.Equal(t, "is0", s0.Name())
	assert.Equal(t, "is1", s1.Name())
	assert.False(t, s0.IsVariadic())
	assert.Equal(t, 2, r.Counter())
}

func TestNewSymbolNamedTwiceRenamesWithWarning(t *testing.T) {
	var buf bytes.Buffer
	r := newTestRegistry(&buf)

	first, err := r.NewSymbol("x")
	require.NoError(t, err)
	assert.Equal(t, "x", first.Name())
	assert.Empty(t, buf.String())

	second, err := r.NewSymbol("x")
	require.NoError(t, err, "collision through NewSymbol must never fail")
	assert.Equal(t, "x1", second.Name())
	assert.NotSame(t, first, second)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "renamed=x1")

	// Counter advanced once per call on both branches.
	assert.Equal(t, 2, r.Counter())
}

func TestNewSymbolRenameSkipsTakenCandidate(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	_, err := r.Define("x")
	require.NoError(t, err)
	_, err = r.Define("x0")
	require.NoError(t, err)

	s, err := r.NewSymbol("x")
	require.NoError(t, err)
	assert.Equal(t, "x0_1", s.Name())
}

func TestNewVariadicSymbol(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	_, err := r.NewSymbol("")
	require.NoError(t, err)
	v, err := r.NewVariadicSymbol()
	require.NoError(t, err)

	assert.Equal(t, "*is1", v.Name())
	assert.True(t, v.IsVariadic())
}

func TestDefineStrict(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	s, err := r.Define("batch")
	require.NoError(t, err)
	assert.Equal(t, "batch", s.String())

	_, err = r.Define("batch")
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.CodeSymbolCollision))

	for _, bad := range []string{"", "1x", "_x", " x", "-"} {
		_, err = r.Define(bad)
		require.Error(t, err, "name %q", bad)
		assert.True(t, diag.Is(err, diag.CodeMalformedSymbolName), "name %q", bad)
	}

	v, err := r.Define("*rest")
	require.NoError(t, err)
	assert.True(t, v.IsVariadic())

	u, err := r.Define("ß")
	require.NoError(t, err)
	assert.False(t, u.IsVariadic())
}

func TestNewSymbolRejectsMalformedName(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	_, err := r.NewSymbol("9lives")
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.CodeMalformedSymbolName))
}

func TestLookup(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	s, err := r.Define("H")
	require.NoError(t, err)

	got, err := r.Lookup("H")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = r.Lookup("W")
	require.Error(t, err)
	assert.True(t, diag.Is(err, diag.CodeNotFound))
}

func TestLookupNormalizesNames(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	composed, err := r.Define("\u00e9t")
	require.NoError(t, err)

	got, err := r.Lookup("e\u0301t")
	require.NoError(t, err)
	assert.Same(t, composed, got)

	_, err = r.Define("e\u0301t")
	assert.True(t, diag.Is(err, diag.CodeSymbolCollision))
}

func TestLookupOrDefine(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	a, err := r.LookupOrDefine("N")
	require.NoError(t, err)
	b, err := r.LookupOrDefine("N")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, r.Len())
}

func TestResetReleasesNames(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	_, err := r.NewSymbol("x")
	require.NoError(t, err)
	r.Reset()

	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0, r.Counter())

	s, err := r.NewSymbol("x")
	require.NoError(t, err)
	assert.Equal(t, "x", s.Name())
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := newTestRegistry(&bytes.Buffer{})
	b := newTestRegistry(&bytes.Buffer{})

	sa, err := a.Define("x")
	require.NoError(t, err)
	sb, err := b.Define("x")
	require.NoError(t, err)
	assert.NotSame(t, sa, sb)
}

func TestConcurrentNewSymbolIsUnique(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})

	const n = 64
	var wg sync.WaitGroup
	names := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.NewSymbol("d")
			if err == nil {
				names[i] = s.Name()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, name := range names {
		require.NotEmpty(t, name)
		assert.False(t, seen[name], "duplicate %q", name)
		seen[name] = true
	}
	assert.Equal(t, n, r.Len())
	assert.Equal(t, n, r.Counter())
}

func TestNames(t *testing.T) {
	r := newTestRegistry(&bytes.Buffer{})
	for _, n := range []string{"W", "H", "C"} {
		_, err := r.Define(n)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"C", "H", "W"}, r.Names())
}
