// Package threads persists conversations so a session can be resumed.
package threads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"playground/llm"
)

// ErrNotFound is returned when a thread id is unknown.
var ErrNotFound = errors.New("thread not found")

// DefaultTitle names a thread with no user message yet.
const DefaultTitle = "New thread"

const maxTitleLen = 60

// Thread is one saved conversation.
type Thread struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Messages []llm.Message `json:"messages"`
	Ts       time.Time     `json:"ts"`
}

// Summary is a thread without its messages, for listings.
type Summary struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages int       `json:"messages"`
	Ts       time.Time `json:"ts"`
}

// New wraps msgs in a thread with a fresh id and a derived title.
func New(msgs []llm.Message) Thread {
	return Thread{
		ID:       uuid.NewString(),
		Title:    TitleFor(msgs),
		Messages: append([]llm.Message(nil), msgs...),
		Ts:       time.Now(),
	}
}

// Update replaces the messages and refreshes the title and timestamp.
func (t *Thread) Update(msgs []llm.Message) {
	t.Messages = append([]llm.Message(nil), msgs...)
	t.Title = TitleFor(msgs)
	t.Ts = time.Now()
}

// Summary drops the messages.
func (t Thread) Summary() Summary {
	return Summary{ID: t.ID, Title: t.Title, Messages: len(t.Messages), Ts: t.Ts}
}

// TitleFor derives a title from the first user message.
func TitleFor(msgs []llm.Message) string {
	for _, m := range msgs {
		if m.Role != llm.RoleUser {
			continue
		}
		text := strings.Join(strings.Fields(m.Content), " ")
		if text == "" {
			continue
		}
		text = cases.Title(language.English, cases.NoLower).String(text)
		if utf8.RuneCountInString(text) > maxTitleLen {
			runes := []rune(text)
			text = strings.TrimSpace(string(runes[:maxTitleLen-3])) + "..."
		}
		return text
	}
	return DefaultTitle
}

// Store persists threads.
type Store interface {
	Save(ctx context.Context, t Thread) error
	Load(ctx context.Context, id string) (Thread, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the store named by kind: "file" (default) under dir, or
// "postgres" at dsn.
func Open(ctx context.Context, kind, dir, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "file":
		return NewFileStore(dir)
	case "postgres", "postgresql", "pg":
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported thread store: %s (supported: file, postgres)", kind)
	}
}

func validID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
