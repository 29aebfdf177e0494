package ir

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/roach88/milir/internal/symbolic"
)

// Session scopes everything that must be unique during one conversion: the
// symbol registry and the placeholder name counter. Programs built in
// different sessions never interfere.
type Session struct {
	mu             sync.Mutex
	symbols        *symbolic.Registry
	placeholderSeq int
	logger         *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the logger used by the session and its registry.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session with an empty symbol registry.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.symbols = symbolic.NewRegistry(symbolic.WithLogger(s.logger))
	return s
}

// Symbols returns the session's symbol registry.
func (s *Session) Symbols() *symbolic.Registry { return s.symbols }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.logger }

// Reset tears the session down: symbols are released and counters restart.
func (s *Session) Reset() {
	s.mu.Lock()
	s.placeholderSeq = 0
	s.mu.Unlock()
	s.symbols.Reset()
}

// nextPlaceholderName returns "placeholder_<n>" and advances the counter.
func (s *Session) nextPlaceholderName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := "placeholder_" + strconv.Itoa(s.placeholderSeq)
	s.placeholderSeq++
	return name
}
