package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"playground/internal/engine"
	"playground/internal/events"
	"playground/internal/vfs"
	"playground/llm"
	"playground/llm/llmtest"
)

func newTestModel(t *testing.T, scripts ...llmtest.Script) model {
	t.Helper()
	orch := engine.New(llmtest.New(scripts...), vfs.NewStore(), vfs.NewMemorySandbox())
	return newModel(context.Background(), orch)
}

func update(m model, msg tea.Msg) model {
	next, _ := m.Update(msg)
	return next.(model)
}

func TestApplyMessageEvents(t *testing.T) {
	m := newTestModel(t)

	m = update(m, eventMsg{events.Event{Type: events.MessageAppended, Data: events.MessagePayload{Index: 0, Role: llm.RoleUser, Content: "a card"}}})
	m = update(m, eventMsg{events.Event{Type: events.MessageAppended, Data: events.MessagePayload{Index: 1, Role: llm.RoleAssistant, Content: "Sure"}}})
	m = update(m, eventMsg{events.Event{Type: events.MessageUpdated, Data: events.MessagePayload{Index: 1, Role: llm.RoleAssistant, Content: "Sure thing"}}})

	if len(m.lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(m.lines))
	}
	if m.lines[1].content != "Sure thing" {
		t.Errorf("Expected updated assistant line, got %q", m.lines[1].content)
	}
	if !strings.Contains(m.viewport.View(), "Sure thing") {
		t.Error("Expected viewport to show the updated reply")
	}
}

func TestApplyGenerationEvents(t *testing.T) {
	m := newTestModel(t)

	steps := []events.Event{
		{Type: events.BusyChanged, Data: true},
		{Type: events.GenerationStarted, Data: events.GenerationPayload{Kind: "component", Path: "components/Card.vue"}},
		{Type: events.FileCreated, Data: events.FilePayload{Path: "components/.gitkeep"}},
		{Type: events.FileCreated, Data: events.FilePayload{Path: "components/Card.vue"}},
		{Type: events.GenerationChunk, Data: events.ChunkPayload{Path: "components/Card.vue", Delta: "<tem"}},
		{Type: events.GenerationChunk, Data: events.ChunkPayload{Path: "components/Card.vue", Delta: "plate>"}},
	}
	for _, ev := range steps {
		m = update(m, eventMsg{ev})
	}

	if !m.busy {
		t.Error("Expected busy after BusyChanged(true)")
	}
	if m.active != "components/Card.vue" {
		t.Errorf("Expected active file, got %q", m.active)
	}
	if len(m.files) != 2 || m.files[1].length != len("<template>") {
		t.Fatalf("Unexpected files: %+v", m.files)
	}

	m = update(m, eventMsg{events.Event{Type: events.FileWritten, Data: events.FilePayload{Path: "components/Card.vue", Length: 42}}})
	m = update(m, eventMsg{events.Event{Type: events.GenerationFinished, Data: events.GenerationPayload{Kind: "component", Path: "components/Card.vue", Added: 3}}})

	if m.active != "" {
		t.Error("Expected no active file after finish")
	}
	if m.files[1].length != 42 {
		t.Errorf("Expected final length 42, got %d", m.files[1].length)
	}
	if m.status != "Component components/Card.vue written (+3 -0)" {
		t.Errorf("Unexpected status %q", m.status)
	}
}

func TestGenerationFailureShowsError(t *testing.T) {
	m := newTestModel(t)
	m = update(m, eventMsg{events.Event{Type: events.GenerationFinished, Data: events.GenerationPayload{Path: "x.vue", Error: "boom"}}})

	if m.err == nil || !strings.Contains(m.View(), "boom") {
		t.Error("Expected failure to be rendered")
	}
}

func TestRejectedToolCallShowsBareError(t *testing.T) {
	m := newTestModel(t)
	m = update(m, eventMsg{events.Event{Type: events.GenerationFinished, Data: events.GenerationPayload{Error: "malformed tool arguments"}}})

	if m.err == nil || m.err.Error() != "malformed tool arguments" {
		t.Errorf("Expected bare error, got %v", m.err)
	}
}

func TestSubmitRunsTurn(t *testing.T) {
	m := newTestModel(t, llmtest.Text("hello back"))
	m.textarea.SetValue("hello")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if cmd == nil {
		t.Fatal("Expected a command waiting for the turn")
	}
	if m.textarea.Value() != "" {
		t.Error("Expected input to be cleared")
	}

	done, ok := cmd().(doneMsg)
	if !ok {
		t.Fatal("Expected doneMsg")
	}
	if done.err != nil {
		t.Fatalf("Unexpected error: %v", done.err)
	}
	if msgs := m.orch.Messages(); len(msgs) != 2 || msgs[1].Content != "hello back" {
		t.Errorf("Unexpected conversation: %+v", msgs)
	}
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	m := newTestModel(t)
	m.textarea.SetValue("   ")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("Expected no command for blank input")
	}
}

func TestTabTogglesFileView(t *testing.T) {
	m := newTestModel(t)
	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.currentView != viewFiles {
		t.Fatal("Expected file view after Tab")
	}
	if !strings.Contains(m.View(), "No files generated yet.") {
		t.Error("Expected empty file list message")
	}
	m = update(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.currentView != viewChat {
		t.Error("Expected chat view after second Tab")
	}
}

func TestWindowSizeLaysOut(t *testing.T) {
	m := newTestModel(t)
	m = update(m, tea.WindowSizeMsg{Width: 100, Height: 40})

	if m.viewport.Width != 96 {
		t.Errorf("Expected viewport width 96, got %d", m.viewport.Width)
	}
	if m.viewport.Height < 3 {
		t.Errorf("Expected usable viewport height, got %d", m.viewport.Height)
	}

	m = update(m, tea.WindowSizeMsg{Width: 40, Height: 5})
	if m.viewport.Height != 3 {
		t.Errorf("Expected minimum viewport height 3, got %d", m.viewport.Height)
	}
}

