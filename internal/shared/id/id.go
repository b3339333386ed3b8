// Package id provides ULID-based identifiers for desktop sessions, traces and
// websocket connections.
//
// Identifiers are prefixed by kind so they read well in logs:
//
//	desk_01J9Z3W8T7Q2V4K6M8N0P2R4S6   desktop session
//	trace_01J9Z3W8T7Q2V4K6M8N0P2R4S7  request trace
//
// ULIDs are lexicographically sortable by creation time, which keeps session
// listings and trace logs in order without a separate timestamp.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies a desktop session
type SessionID string

// TraceID identifies one HTTP request or websocket message
type TraceID string

const (
	SessionPrefix = "desk"
	TracePrefix   = "trace"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSessionID generates a new desktop session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

func (id SessionID) String() string { return string(id) }
func (id TraceID) String() string   { return string(id) }

// IsValid checks if a string is a bare ULID
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}

// IsValidSessionID checks the desk_<ulid> form without touching any store.
func IsValidSessionID(s string) bool {
	prefix, rest, ok := strings.Cut(s, "_")
	return ok && prefix == SessionPrefix && IsValid(rest)
}
