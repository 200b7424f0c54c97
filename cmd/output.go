package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"playground/internal/events"
	"playground/llm"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3DDC97"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5C5C"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
)

// printer mirrors orchestrator events onto a terminal: assistant text as it
// streams and a line per generation.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	printed map[int]int
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, printed: make(map[int]int)}
}

func (p *printer) attach(bus *events.EventBus) func() {
	return bus.Subscribe(p.handle,
		events.MessageAppended,
		events.MessageUpdated,
		events.GenerationStarted,
		events.GenerationFinished,
	)
}

func (p *printer) handle(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch data := ev.Data.(type) {
	case events.MessagePayload:
		if data.Role != llm.RoleAssistant {
			return
		}
		// print only the part not shown yet
		seen := p.printed[data.Index]
		if len(data.Content) > seen {
			fmt.Fprint(p.out, data.Content[seen:])
			p.printed[data.Index] = len(data.Content)
		}
	case events.GenerationPayload:
		if ev.Type == events.GenerationStarted {
			fmt.Fprintln(p.out, noticeStyle.Render(fmt.Sprintf("\n→ generating %s %s", data.Kind, data.Path)))
			return
		}
		if data.Error != "" {
			fmt.Fprintln(p.out, errStyle.Render(fmt.Sprintf("\n✗ %s: %s", data.Path, data.Error)))
			return
		}
		fmt.Fprintln(p.out, noticeStyle.Render(fmt.Sprintf("\n✓ %s (+%d -%d)", data.Path, data.Added, data.Removed)))
	}
}

// chunkWriter forwards raw generation deltas, dimmed, to out.
func chunkWriter(out io.Writer, show bool) func(string) {
	if !show {
		return nil
	}
	return func(chunk string) {
		fmt.Fprint(out, dimStyle.Render(chunk))
	}
}
