package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/orchestrator"
	"github.com/lepinkainen/bookmind/internal/similarity"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("161"))
)

func heading(w io.Writer, text string) {
	_, _ = fmt.Fprintln(w, headingStyle.Render(text))
}

func bookLine(i int, b book.Book) string {
	line := fmt.Sprintf("%d. %s by %s", i+1, titleStyle.Render(b.Title), b.Author)
	if b.HasISBN() {
		line += mutedStyle.Render(" (ISBN " + b.ISBN + ")")
	}
	return line
}

func genresLine(b book.Book) string {
	if len(b.Genres) == 0 {
		return ""
	}
	return mutedStyle.Render("   genres: " + strings.Join(b.Genres, ", "))
}

func renderRecommendations(w io.Writer, query string, recs []book.Recommendation) {
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("No recommendations found."))
		return
	}
	heading(w, fmt.Sprintf("Recommendations for %q", query))
	for i, rec := range recs {
		_, _ = fmt.Fprintln(w, bookLine(i, rec.Book))
		_, _ = fmt.Fprintln(w, "   "+scoreStyle.Render(fmt.Sprintf("relevance %.2f", rec.RelevanceScore))+"  "+rec.Reasoning)
		if g := genresLine(rec.Book); g != "" {
			_, _ = fmt.Fprintln(w, g)
		}
	}
}

func renderAnalysis(w io.Writer, a *book.Analysis) {
	_, _ = fmt.Fprintf(w, "   sentiment: %s | complexity: %.2f | reading time: %s\n",
		a.Sentiment, a.Complexity, formatMinutes(a.EstimatedReadingTimeMinutes))
	_, _ = fmt.Fprintf(w, "   themes: %s\n", strings.Join(a.Themes, ", "))
	if len(a.SimilarBooks) > 0 {
		names := make([]string, len(a.SimilarBooks))
		for i, s := range a.SimilarBooks {
			names[i] = s.Title + " by " + s.Author
		}
		_, _ = fmt.Fprintln(w, mutedStyle.Render("   similar: "+strings.Join(names, "; ")))
	}
}

func renderGenreEntries(w io.Writer, genre string, entries []orchestrator.GenreEntry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("No trending books found."))
		return
	}
	heading(w, fmt.Sprintf("Trending in %s", genre))
	for i, e := range entries {
		_, _ = fmt.Fprintln(w, bookLine(i, e.Book))
		if e.Analysis == nil {
			_, _ = fmt.Fprintln(w, mutedStyle.Render("   analysis unavailable"))
			continue
		}
		renderAnalysis(w, e.Analysis)
	}
}

func renderReport(w io.Writer, report orchestrator.BookReport) {
	heading(w, "Analysis")
	_, _ = fmt.Fprintln(w, bookLine(0, report.Book))
	if report.Analysis == nil {
		_, _ = fmt.Fprintln(w, errorStyle.Render("   analysis failed: "+report.Err))
		return
	}
	renderAnalysis(w, report.Analysis)
}

func renderBooks(w io.Writer, title string, books []book.Book) {
	heading(w, title)
	if len(books) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("   (empty)"))
		return
	}
	for i, b := range books {
		_, _ = fmt.Fprintln(w, bookLine(i, b))
	}
}

func renderReadingList(w io.Writer, list book.ReadingList, only []book.Shelf) {
	for _, s := range only {
		renderBooks(w, string(s), list.Books(s))
	}
}

func renderMatches(w io.Writer, query string, matches []similarity.Match) {
	if len(matches) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("No indexed books match."))
		return
	}
	heading(w, fmt.Sprintf("Books similar to %q", query))
	for i, m := range matches {
		_, _ = fmt.Fprintln(w, bookLine(i, m.Book)+mutedStyle.Render(fmt.Sprintf("  distance %.3f", m.Distance)))
	}
}

func renderHistory(w io.Writer, recs []book.Recommendation) {
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("No recommendation history."))
		return
	}
	heading(w, "Recommendation history")
	for _, rec := range recs {
		_, _ = fmt.Fprintf(w, "%s  %s by %s %s\n",
			mutedStyle.Render(rec.CreatedAt.Local().Format("2006-01-02 15:04")),
			titleStyle.Render(rec.Book.Title), rec.Book.Author,
			scoreStyle.Render(fmt.Sprintf("(%.2f)", rec.RelevanceScore)))
	}
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
