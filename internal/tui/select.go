// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/bookmind/internal/book"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction represents the user's action in the selection UI.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user picked a recommendation.
	ActionSelected
	// ActionSkipped indicates the user left without picking.
	ActionSkipped
)

// SelectionResult holds the result of a TUI selection.
type SelectionResult struct {
	Action    SelectionAction
	Selection *book.Recommendation
}

type recommendationItem struct {
	book.Recommendation
}

func (i recommendationItem) Title() string {
	return fmt.Sprintf("%s by %s", i.Book.Title, i.Book.Author)
}

func (i recommendationItem) FilterValue() string {
	return i.Book.Title
}

func (i recommendationItem) Description() string {
	return i.Reasoning
}

type itemStyles struct {
	normal         lipgloss.Style
	selected       lipgloss.Style
	genreStyle     lipgloss.Style
	titleStyle     lipgloss.Style
	scoreStyle     lipgloss.Style
	metadataStyle  lipgloss.Style
	reasoningStyle lipgloss.Style
}

func newItemStyles() itemStyles {
	asciiBorder := lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	container := lipgloss.NewStyle().
		Border(asciiBorder).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.Copy().
		BorderForeground(lipgloss.Color("214")).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		genreStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		scoreStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")),
		metadataStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
		reasoningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("248")),
	}
}

type recommendationDelegate struct {
	styles itemStyles
}

func newDelegate() recommendationDelegate {
	return recommendationDelegate{styles: newItemStyles()}
}

func (d recommendationDelegate) Height() int                         { return 5 }
func (d recommendationDelegate) Spacing() int                        { return 1 }
func (d recommendationDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d recommendationDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	rec, ok := item.(recommendationItem)
	if !ok {
		return
	}

	genres := "uncategorized"
	if len(rec.Book.Genres) > 0 {
		genres = strings.Join(rec.Book.Genres, ", ")
	}

	genreLine := d.styles.genreStyle.Render(truncate(fmt.Sprintf("[%s]", strings.ToUpper(genres)), m.Width()-4))
	metadataLine := d.styles.metadataStyle.Render(formatMetadata(rec.Book, m.Width()-4))
	titleLine := d.styles.titleStyle.Render(truncate(rec.Title(), m.Width()-4))
	scoreLine := d.styles.scoreStyle.Render(fmt.Sprintf("relevance %.0f%%", rec.RelevanceScore*100))
	reasoningLine := d.styles.reasoningStyle.Render(truncate(rec.Reasoning, m.Width()-4))

	content := lipgloss.JoinVertical(lipgloss.Left, genreLine, metadataLine, titleLine, scoreLine, reasoningLine)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	list   list.Model
	query  string
	result SelectionResult
}

func newModel(query string, items []recommendationItem) *model {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	l := list.New(listItems, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return &model{
		list:   l,
		query:  query,
		result: SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(recommendationItem); ok {
				rec := selected.Recommendation
				m.result = SelectionResult{Action: ActionSelected, Selection: &rec}
				return m, tea.Quit
			}
		case "ctrl+c", "q", "esc":
			m.result = SelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-6, 5)
		m.list.SetSize(width, height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	header := headerStyle.Render(fmt.Sprintf("Recommendations for: %s", m.query))
	help := helpStyle.Render("Up/Down navigate | Enter add to reading list | q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), help)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// SelectRecommendation lets the user pick one recommendation.
func SelectRecommendation(query string, recs []book.Recommendation) (SelectionResult, error) {
	if len(recs) == 0 {
		return SelectionResult{Action: ActionSkipped}, nil
	}

	items := make([]recommendationItem, len(recs))
	for i, rec := range recs {
		items[i] = recommendationItem{Recommendation: rec}
	}
	finalModel, err := runProgram(newModel(query, items))
	if err != nil {
		return SelectionResult{}, err
	}

	if typed, ok := finalModel.(*model); ok {
		return typed.result, nil
	}

	return SelectionResult{}, fmt.Errorf("unexpected program result")
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}

// formatMetadata builds the ISBN, pages and year line
func formatMetadata(b book.Book, availableWidth int) string {
	var parts []string

	if b.HasISBN() {
		parts = append(parts, "ISBN "+b.ISBN)
	}
	if b.Pages > 0 {
		parts = append(parts, fmt.Sprintf("%d pages", b.Pages))
	}
	if b.PublishedYear > 0 {
		parts = append(parts, fmt.Sprintf("%d", b.PublishedYear))
	}

	if len(parts) == 0 {
		return "No metadata available"
	}

	metadata := strings.Join(parts, " | ")
	if availableWidth > 0 && len(metadata) > availableWidth {
		metadata = truncate(metadata, availableWidth)
	}

	return metadata
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
