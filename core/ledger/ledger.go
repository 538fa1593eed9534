// Package ledger holds the append-only record of command lines entered into
// the shell.
package ledger

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrOutOfRange is returned when a position doesn't name an entry.
	ErrOutOfRange = errors.New("command number out of bounds")
	// ErrEntryTooLong is returned when a line exceeds the maximum entry length.
	ErrEntryTooLong = errors.New("command too long")
	// ErrLedgerFull is returned when the ledger holds the maximum number of entries.
	ErrLedgerFull = errors.New("command history full")
	// ErrBlankLine is returned when appending a line with no content.
	ErrBlankLine = errors.New("blank line")
)

// Unlimited disables a ledger bound.
const Unlimited = 0

// Entry is a recorded line and its 1-based position.
type Entry struct {
	Index int
	Text  string
}

// Ledger is an ordered, append-only sequence of command lines. Positions
// start at 1. Entries are never removed or reordered.
type Ledger struct {
	rw      sync.RWMutex
	entries []string

	maxEntries int
	maxLength  int
}

// New creates an empty ledger. A bound of Unlimited disables that check.
func New(maxEntries, maxLength int) *Ledger {
	return &Ledger{
		maxEntries: maxEntries,
		maxLength:  maxLength,
	}
}

// FromEntries creates a ledger pre-populated with the given lines, used to
// hand a snapshot of the parent's history to a child process.
func FromEntries(entries []string, maxEntries, maxLength int) *Ledger {
	l := New(maxEntries, maxLength)
	l.entries = append(l.entries, entries...)
	return l
}

// IsBlank reports whether the line consists only of an end-of-line marker.
func IsBlank(line string) bool {
	return strings.TrimRight(line, "\r\n") == ""
}

// Append records the line and returns its position.
func (l *Ledger) Append(line string) (int, error) {
	if IsBlank(line) {
		return 0, ErrBlankLine
	}
	if l.maxLength != Unlimited && len(line) > l.maxLength {
		return 0, ErrEntryTooLong
	}

	l.rw.Lock()
	defer l.rw.Unlock()

	if l.maxEntries != Unlimited && len(l.entries) >= l.maxEntries {
		return 0, ErrLedgerFull
	}
	l.entries = append(l.entries, line)
	return len(l.entries), nil
}

// Get returns the entry at position n.
func (l *Ledger) Get(n int) (string, error) {
	l.rw.RLock()
	defer l.rw.RUnlock()

	if n < 1 || n > len(l.entries) {
		return "", ErrOutOfRange
	}
	return l.entries[n-1], nil
}

// Len returns the number of recorded entries.
func (l *Ledger) Len() int {
	l.rw.RLock()
	defer l.rw.RUnlock()

	return len(l.entries)
}

// List returns the first limit entries in insertion order, or all of them if
// limit is negative.
func (l *Ledger) List(limit int) []Entry {
	l.rw.RLock()
	defer l.rw.RUnlock()

	if limit < 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}

	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, Entry{Index: i + 1, Text: l.entries[i]})
	}
	return out
}

// Entries returns a copy of every recorded line.
func (l *Ledger) Entries() []string {
	l.rw.RLock()
	defer l.rw.RUnlock()

	cpy := make([]string, len(l.entries))
	copy(cpy, l.entries)
	return cpy
}

// MaxEntries returns the entry bound the ledger was created with.
func (l *Ledger) MaxEntries() int {
	return l.maxEntries
}

// MaxLength returns the line length bound the ledger was created with.
func (l *Ledger) MaxLength() int {
	return l.maxLength
}
