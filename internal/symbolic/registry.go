// Package symbolic provides named algebraic symbols for tensor dimensions
// that are unknown until runtime, and the registry that keeps their names
// unique within a conversion session.
//
// A Registry is session-scoped: create one per conversion and pass it to
// everything that mints symbols. Names are NFC-normalised before they are
// checked or stored, so visually identical names cannot coexist.
package symbolic

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/milir/internal/diag"
)

// VariadicMarker prefixes the name of a symbol that stands for an unknown
// number of trailing dimensions.
const VariadicMarker = '*'

// Symbol is a named unknown standing for one tensor dimension, or for an
// unknown run of dimensions when variadic. Identity is the pointer.
type Symbol struct {
	name     string
	variadic bool
}

// Name returns the registered symbol name.
func (s *Symbol) Name() string { return s.name }

// IsVariadic reports whether the symbol stands for a variable number of dims.
func (s *Symbol) IsVariadic() bool { return s.variadic }

func (s *Symbol) String() string { return s.name }

// Registry maps symbol names to symbols for one session.
//
// The registry is append-only until Reset. It is safe for concurrent use,
// but two sessions should use two registries.
type Registry struct {
	mu      sync.Mutex
	used    map[string]*Symbol
	counter int
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for rename warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry with its counter at zero.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		used:   make(map[string]*Symbol),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Define registers a symbol under exactly the given name.
//
// This is the strict path: a malformed name fails with
// MALFORMED_SYMBOL_NAME and a used name fails with SYMBOL_COLLISION.
func (r *Registry) Define(name string) (*Symbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.define(norm.NFC.String(name))
}

// NewSymbol returns a fresh symbol.
//
// With an empty name the symbol is named "is<counter>". With a free name the
// symbol takes it. With an occupied name a disambiguated name is built by
// appending the counter, a warning is logged and the renamed symbol is
// returned. The counter advances exactly once per call.
func (r *Registry) NewSymbol(name string) (*Symbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.counter
	r.counter++

	if name == "" {
		return r.define("is" + strconv.Itoa(n))
	}

	name = norm.NFC.String(name)
	if err := checkName(name); err != nil {
		return nil, err
	}
	if _, taken := r.used[name]; !taken {
		return r.define(name)
	}

	renamed := name + strconv.Itoa(n)
	for k := 1; r.used[renamed] != nil; k++ {
		renamed = fmt.Sprintf("%s%d_%d", name, n, k)
	}
	r.logger.Warn("symbol name already occupied, renaming",
		"name", name,
		"renamed", renamed,
	)
	return r.define(renamed)
}

// NewVariadicSymbol returns a fresh variadic symbol named "*is<counter>".
func (r *Registry) NewVariadicSymbol() (*Symbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.counter
	r.counter++
	return r.define(string(VariadicMarker) + "is" + strconv.Itoa(n))
}

// Lookup returns the symbol registered under name.
func (r *Registry) Lookup(name string) (*Symbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.used[norm.NFC.String(name)]
	if !ok {
		return nil, diag.New(diag.CodeNotFound, "symbol name %q does not exist", name)
	}
	return s, nil
}

// LookupOrDefine returns the symbol registered under name, defining it when
// absent. Used by front ends where the same name in two places means the
// same dimension.
func (r *Registry) LookupOrDefine(name string) (*Symbol, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = norm.NFC.String(name)
	if s, ok := r.used[name]; ok {
		return s, nil
	}
	return r.define(name)
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.used))
	for n := range r.used {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered symbols.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.used)
}

// Counter returns the current value of the internal name counter.
func (r *Registry) Counter() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter
}

// Reset tears the session down: all names are released and the counter
// returns to zero. Symbols handed out earlier stay valid values but are no
// longer registered.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.used = make(map[string]*Symbol)
	r.counter = 0
}

// define registers name; caller holds r.mu and has normalised name.
func (r *Registry) define(name string) (*Symbol, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if _, taken := r.used[name]; taken {
		return nil, diag.New(diag.CodeSymbolCollision, "symbol %q is used already", name)
	}
	s := &Symbol{
		name:     name,
		variadic: name[0] == byte(VariadicMarker),
	}
	r.used[name] = s
	return s, nil
}

// checkName enforces that a name starts with a letter or the variadic marker.
func checkName(name string) error {
	first, _ := utf8.DecodeRuneInString(name)
	if name == "" || !(unicode.IsLetter(first) || first == VariadicMarker) {
		return diag.New(diag.CodeMalformedSymbolName,
			"symbol name must start with a letter or %q, got %q", VariadicMarker, name)
	}
	return nil
}
