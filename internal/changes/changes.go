// Package changes records what each generation did to the virtual filesystem.
package changes

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Kind tells whether a generation created a file or replaced an existing one.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
)

// Change summarizes one finished generation.
type Change struct {
	Path    string    `json:"path"`
	Kind    Kind      `json:"kind"`
	Added   int       `json:"added"`
	Removed int       `json:"removed"`
	Patch   string    `json:"patch,omitempty"`
	At      time.Time `json:"at"`
}

// Summary renders a change the way the CLI lists it.
func (c Change) Summary() string {
	return fmt.Sprintf("%s %s (+%d -%d)", c.Kind, c.Path, c.Added, c.Removed)
}

// Compute diffs before and after line by line. existed distinguishes an
// empty previous file from no file at all.
func Compute(path, before, after string, existed bool) Change {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	change := Change{Path: path, Kind: Created, At: time.Now()}
	if existed {
		change.Kind = Updated
	}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			change.Added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			change.Removed += countLines(d.Text)
		}
	}
	if existed && (change.Added > 0 || change.Removed > 0) {
		change.Patch = dmp.PatchToText(dmp.PatchMake(before, diffs))
	}
	return change
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// Log keeps changes in the order they were recorded.
type Log struct {
	mu      sync.RWMutex
	entries []Change
}

// NewLog returns an empty change log.
func NewLog() *Log {
	return &Log{}
}

// Record appends a change.
func (l *Log) Record(c Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, c)
}

// Entries returns a copy of all recorded changes.
func (l *Log) Entries() []Change {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Change(nil), l.entries...)
}

// Since returns the changes recorded after the first n.
func (l *Log) Since(n int) []Change {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n >= len(l.entries) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return append([]Change(nil), l.entries[n:]...)
}

// Len reports how many changes were recorded.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
