package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"playground/internal/engine"
	"playground/internal/events"
	"playground/llm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#00A36C")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#04B575"))

	chatStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3DDC97"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5C5C"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

type viewMode int

const (
	viewChat viewMode = iota
	viewFiles
)

// eventMsg carries an orchestrator event into the program loop.
type eventMsg struct {
	ev events.Event
}

// doneMsg reports the outcome of a chat turn.
type doneMsg struct {
	err error
}

type chatLine struct {
	role    string
	content string
}

type fileEntry struct {
	path   string
	length int
}

type model struct {
	ctx      context.Context
	orch     *engine.Orchestrator
	textarea textarea.Model
	viewport viewport.Model

	lines  []chatLine
	files  []fileEntry
	active string
	busy   bool
	state  string
	status string
	err    error

	width       int
	height      int
	currentView viewMode
	fileScroll  int
}

func newModel(ctx context.Context, orch *engine.Orchestrator) model {
	ta := textarea.New()
	ta.Placeholder = "Describe a component, composable or style..."
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.Focus()

	m := model{
		ctx:         ctx,
		orch:        orch,
		textarea:    ta,
		viewport:    viewport.New(80, 10),
		state:       orch.State().String(),
		currentView: viewChat,
	}
	for _, msg := range orch.Messages() {
		m.lines = append(m.lines, chatLine{role: msg.Role, content: msg.Content})
	}
	for _, f := range orch.Store().Files() {
		m.files = append(m.files, fileEntry{path: f.Filepath(), length: len(f.Content())})
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return textarea.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if m.currentView == viewChat {
				m.currentView = viewFiles
			} else {
				m.currentView = viewChat
			}
			return m, nil
		case "up", "down":
			if m.currentView == viewFiles {
				m.scrollFiles(msg.String())
				return m, nil
			}
		case "enter":
			return m.submit()
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
	case eventMsg:
		m.apply(msg.ev)
		return m, nil
	case doneMsg:
		m.err = msg.err
		if msg.err != nil {
			m.status = ""
		}
		return m, nil
	}

	var taCmd, vpCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	// letters belong to the input; the conversation scrolls by page
	if key, ok := msg.(tea.KeyMsg); !ok || key.String() == "pgup" || key.String() == "pgdown" {
		m.viewport, vpCmd = m.viewport.Update(msg)
	}
	return m, tea.Batch(taCmd, vpCmd)
}

func (m model) submit() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.textarea.Value())
	if content == "" {
		return m, nil
	}
	done, err := m.orch.StartMessage(m.ctx, content, nil)
	if err != nil {
		if errors.Is(err, engine.ErrBusy) {
			m.status = "still working on the previous message"
			return m, nil
		}
		m.err = err
		return m, nil
	}
	m.textarea.Reset()
	m.err = nil
	return m, func() tea.Msg {
		return doneMsg{err: <-done}
	}
}

// apply folds one orchestrator event into the view state.
func (m *model) apply(ev events.Event) {
	switch ev.Type {
	case events.MessageAppended, events.MessageUpdated:
		p, ok := ev.Data.(events.MessagePayload)
		if !ok {
			return
		}
		for len(m.lines) <= p.Index {
			m.lines = append(m.lines, chatLine{})
		}
		m.lines[p.Index] = chatLine{role: p.Role, content: p.Content}
		m.refresh()
	case events.BusyChanged:
		if busy, ok := ev.Data.(bool); ok {
			m.busy = busy
		}
	case events.StateChanged:
		if s, ok := ev.Data.(string); ok {
			m.state = s
		}
	case events.FileCreated:
		if p, ok := ev.Data.(events.FilePayload); ok {
			m.upsertFile(p.Path, p.Length)
		}
	case events.GenerationChunk:
		if p, ok := ev.Data.(events.ChunkPayload); ok {
			if i := m.fileIndex(p.Path); i >= 0 {
				m.files[i].length += len(p.Delta)
			}
		}
	case events.FileWritten:
		if p, ok := ev.Data.(events.FilePayload); ok {
			m.upsertFile(p.Path, p.Length)
		}
	case events.GenerationStarted:
		if p, ok := ev.Data.(events.GenerationPayload); ok {
			m.active = p.Path
			m.status = fmt.Sprintf("generating %s %s", p.Kind, p.Path)
		}
	case events.GenerationFinished:
		p, ok := ev.Data.(events.GenerationPayload)
		if !ok {
			return
		}
		m.active = ""
		if p.Error != "" {
			m.status = ""
			if p.Path == "" {
				m.err = errors.New(p.Error)
				return
			}
			m.err = fmt.Errorf("%s: %s", p.Path, p.Error)
			return
		}
		m.status = fmt.Sprintf("%s %s written (+%d -%d)", kindLabel(p.Kind), p.Path, p.Added, p.Removed)
	}
}

func (m *model) upsertFile(path string, length int) {
	if i := m.fileIndex(path); i >= 0 {
		m.files[i].length = length
		return
	}
	m.files = append(m.files, fileEntry{path: path, length: length})
}

func (m *model) fileIndex(path string) int {
	for i, f := range m.files {
		if f.path == path {
			return i
		}
	}
	return -1
}

func (m *model) scrollFiles(key string) {
	switch key {
	case "up":
		if m.fileScroll > 0 {
			m.fileScroll--
		}
	case "down":
		if m.fileScroll < len(m.files)-1 {
			m.fileScroll++
		}
	}
}

func (m *model) layout() {
	if m.width == 0 {
		return
	}
	m.textarea.SetWidth(m.width - 2)
	m.viewport.Width = m.width - 4
	// title, info, status, help and the input box
	h := m.height - 4 - m.textarea.Height() - 2 - 2
	if h < 3 {
		h = 3
	}
	m.viewport.Height = h
	m.refresh()
}

// refresh re-renders the conversation into the viewport and keeps it pinned
// to the newest line.
func (m *model) refresh() {
	width := m.viewport.Width
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := assistantStyle.Render("assistant")
		if l.role == llm.RoleUser {
			label = userStyle.Render("you")
		}
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(l.content))
	}
	if b.Len() == 0 {
		b.WriteString("Ask for a component, composable or style. Generated files appear under Tab.")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	title := titleStyle.Render("Playground")

	busy := "idle"
	if m.busy {
		busy = "busy"
	}
	info := infoStyle.Render(fmt.Sprintf("Model: %s | %s (%s) | Files: %d",
		m.orch.Model(), busy, m.state, len(m.files)))

	var main string
	if m.currentView == viewChat {
		main = chatStyle.Render(m.viewport.View())
	} else {
		main = chatStyle.Render(m.renderFiles())
	}

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render("Error: " + m.err.Error())
	case m.status != "":
		status = activeStyle.Render(m.status)
	}

	var helpText string
	if m.currentView == viewChat {
		helpText = "Enter to send • Tab for files • Esc or Ctrl+C to quit"
	} else {
		helpText = "Tab for chat • ↑↓ to scroll • Esc or Ctrl+C to quit"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		info,
		main,
		status,
		inputStyle.Render(m.textarea.View()),
		helpStyle.Render(helpText),
	)
}

func (m model) renderFiles() string {
	if len(m.files) == 0 {
		return "No files generated yet."
	}

	lines := []string{"Generated files:", ""}
	end := m.fileScroll + 10
	if end > len(m.files) {
		end = len(m.files)
	}
	for _, f := range m.files[m.fileScroll:end] {
		line := fmt.Sprintf("  %s (%dB)", f.path, f.length)
		if f.path == m.active {
			line = activeStyle.Render(line + " ●")
		}
		lines = append(lines, line)
	}
	if len(m.files) > 10 {
		lines = append(lines, "", fmt.Sprintf("Showing %d-%d of %d files", m.fileScroll+1, end, len(m.files)))
	}
	return strings.Join(lines, "\n")
}

func kindLabel(kind string) string {
	return cases.Title(language.English).String(kind)
}

// StartTUI runs the interactive interface until the user quits. Events from
// bus are forwarded into the program loop.
func StartTUI(ctx context.Context, orch *engine.Orchestrator, bus *events.EventBus) error {
	p := tea.NewProgram(newModel(ctx, orch), tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := bus.Subscribe(func(ev events.Event) {
		p.Send(eventMsg{ev: ev})
	})
	defer unsubscribe()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
