package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(m confirmModel, key string) (confirmModel, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(confirmModel), cmd
}

func TestConfirmModelDefaultsToNo(t *testing.T) {
	m := newConfirmModel("issue", "Are you sure?")
	m, cmd := press(m, "enter")
	if !m.decided || m.answer {
		t.Fatalf("expected enter on default to decline, got decided=%v answer=%v", m.decided, m.answer)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestConfirmModelYesKeyAndToggle(t *testing.T) {
	m, _ := press(newConfirmModel("issue", "q"), "y")
	if !m.answer || !m.decided {
		t.Fatal("expected y to confirm")
	}

	m, _ = press(newConfirmModel("issue", "q"), "right")
	if !m.answer || m.decided {
		t.Fatal("expected arrow to toggle without deciding")
	}
	m, _ = press(m, "enter")
	if !m.answer || !m.decided {
		t.Fatal("expected enter to accept toggled answer")
	}
}

func TestConfirmModelViewShowsQuestion(t *testing.T) {
	view := newConfirmModel("issue", "Are you sure you want to generate 3 QR codes and download the PDF?").View()
	if !strings.Contains(view, "generate 3 QR codes") {
		t.Fatalf("expected question in view, got %q", view)
	}
}

func TestRunModelRecordsActionResult(t *testing.T) {
	m := model{title: "t"}
	next, _ := m.Update(actionMsg{details: []string{"a"}})
	got := next.(model)
	if !got.done || len(got.details) != 1 || got.err != nil {
		t.Fatalf("unexpected model after action: %+v", got)
	}
	if !strings.Contains(got.View(), "- a") {
		t.Fatalf("expected details in view: %q", got.View())
	}
}

func TestProgressModelCompletesAndCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := newProgressModel(ctx, cancel, "issue", func(context.Context) ([]string, error) { return nil, nil })

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(progressModel)
	if ctx.Err() == nil {
		t.Fatal("ctrl+c must cancel the action context")
	}
	if !strings.Contains(m.View(), "cancelling") {
		t.Fatalf("expected cancelling view, got %q", m.View())
	}

	next, cmd := m.Update(doneMsg{details: []string{"batch_id=4"}, err: context.Canceled})
	m = next.(progressModel)
	if !m.done || cmd == nil {
		t.Fatal("expected done with quit command")
	}
	if view := m.View(); !strings.Contains(view, "FAILED") || !strings.Contains(view, "batch_id=4") {
		t.Fatalf("unexpected final view %q", view)
	}
}
