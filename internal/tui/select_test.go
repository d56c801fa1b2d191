package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/bookmind/internal/book"
)

func sampleRecs() []book.Recommendation {
	return []book.Recommendation{
		{Book: book.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", Pages: 412}, RelevanceScore: 1.0, Reasoning: "Epic."},
		{Book: book.Book{Title: "Hyperion", Author: "Dan Simmons"}, RelevanceScore: 0.9, Reasoning: "Pilgrims."},
	}
}

func withProgram(t *testing.T, fn func(m tea.Model) (tea.Model, error)) {
	t.Helper()
	orig := runProgram
	runProgram = fn
	t.Cleanup(func() { runProgram = orig })
}

func TestSelectRecommendation_Enter(t *testing.T) {
	withProgram(t, func(m tea.Model) (tea.Model, error) {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		return m, nil
	})

	result, err := SelectRecommendation("space", sampleRecs())
	if err != nil {
		t.Fatalf("SelectRecommendation() error = %v", err)
	}
	if result.Action != ActionSelected {
		t.Fatalf("Action = %v, want ActionSelected", result.Action)
	}
	if result.Selection == nil || result.Selection.Book.Title != "Hyperion" {
		t.Errorf("Selection = %+v, want Hyperion", result.Selection)
	}
}

func TestSelectRecommendation_Quit(t *testing.T) {
	withProgram(t, func(m tea.Model) (tea.Model, error) {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		return m, nil
	})

	result, err := SelectRecommendation("space", sampleRecs())
	if err != nil {
		t.Fatalf("SelectRecommendation() error = %v", err)
	}
	if result.Action != ActionSkipped || result.Selection != nil {
		t.Errorf("result = %+v, want skipped without selection", result)
	}
}

func TestSelectRecommendation_Empty(t *testing.T) {
	withProgram(t, func(m tea.Model) (tea.Model, error) {
		t.Fatal("program must not run without recommendations")
		return m, nil
	})

	result, err := SelectRecommendation("space", nil)
	if err != nil || result.Action != ActionSkipped {
		t.Errorf("SelectRecommendation(nil) = %+v, %v", result, err)
	}
}

func TestSelectRecommendation_ProgramError(t *testing.T) {
	withProgram(t, func(m tea.Model) (tea.Model, error) {
		return nil, errors.New("no tty")
	})

	if _, err := SelectRecommendation("space", sampleRecs()); err == nil {
		t.Error("expected error from failing program")
	}
}

func TestFormatMetadata(t *testing.T) {
	b := book.Book{ISBN: "9780441172719", Pages: 412, PublishedYear: 1965}
	if got := formatMetadata(b, 0); got != "ISBN 9780441172719 | 412 pages | 1965" {
		t.Errorf("formatMetadata() = %q", got)
	}
	if got := formatMetadata(book.Book{}, 0); got != "No metadata available" {
		t.Errorf("formatMetadata(empty) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("a  long\nreasoning text", 10); got != "a long ..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
}

func TestView(t *testing.T) {
	items := []recommendationItem{{Recommendation: sampleRecs()[0]}}
	m := newModel("space opera", items)
	if view := m.View(); view == "" {
		t.Error("View() returned empty string")
	}
}
