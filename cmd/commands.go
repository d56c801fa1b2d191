package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/cache"
	"github.com/lepinkainen/bookmind/internal/datastore"
	"github.com/lepinkainen/bookmind/internal/notify"
	"github.com/lepinkainen/bookmind/internal/store"
	"github.com/lepinkainen/bookmind/internal/tui"
)

var selectRecommendation = tui.SelectRecommendation

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// RecommendCmd asks for recommendations
type RecommendCmd struct {
	Query  string `arg:"" help:"What you would like to read"`
	Count  int    `short:"n" help:"Number of recommendations" default:"5"`
	Pick   bool   `help:"Pick a recommendation interactively and add it to to_read"`
	Notify bool   `help:"Send the top recommendation as a push notification"`
}

// ExploreCmd explores a genre
type ExploreCmd struct {
	Genre string `arg:"" help:"Genre to explore (e.g. fantasy, horror)"`
	Limit int    `short:"n" help:"Number of books" default:"10"`
}

// AnalyzeCmd analyzes one book
type AnalyzeCmd struct {
	Title       string `arg:"" help:"Book title"`
	Author      string `arg:"" help:"Book author"`
	ISBN        string `help:"ISBN, used to look up a stored copy and to cache the analysis"`
	Description string `short:"d" help:"Book description"`
	Pages       int    `help:"Page count"`
}

// TrendingCmd lists trending books
type TrendingCmd struct {
	Genre  string `arg:"" optional:"" help:"Restrict to a genre"`
	Limit  int    `short:"n" help:"Number of books" default:"10"`
	Notify bool   `help:"Send the list as a push notification"`
}

// ListCmd groups the reading list commands
type ListCmd struct {
	Add    ListAddCmd    `cmd:"" help:"Add a book to a reading list, moving it off the others"`
	Remove ListRemoveCmd `cmd:"" help:"Remove a book from a reading list"`
	Show   ListShowCmd   `cmd:"" help:"Show reading lists"`
	Import ListImportCmd `cmd:"" help:"Import shelves from a Goodreads library export"`
}

// ListAddCmd adds a book to a list
type ListAddCmd struct {
	Title  string `arg:"" help:"Book title"`
	Author string `arg:"" help:"Book author"`
	ISBN   string `help:"Book ISBN"`
	List   string `short:"l" help:"to_read, in_progress or completed" default:"to_read"`
}

// ListRemoveCmd removes a book from a list
type ListRemoveCmd struct {
	Title  string `arg:"" help:"Book title"`
	Author string `arg:"" help:"Book author"`
	ISBN   string `help:"Book ISBN"`
	List   string `short:"l" help:"to_read, in_progress or completed" default:"to_read"`
}

// ListImportCmd loads a Goodreads library export CSV into the reading lists
type ListImportCmd struct {
	File string `arg:"" help:"Path to goodreads_library_export.csv" type:"existingfile"`
}

// ListShowCmd prints reading lists
type ListShowCmd struct {
	List string `arg:"" optional:"" help:"Only show this list"`
}

// HistoryCmd groups the history commands
type HistoryCmd struct {
	Show   HistoryShowCmd   `cmd:"" default:"withargs" help:"Show recent recommendations"`
	Export HistoryExportCmd `cmd:"" help:"Export recommendation history to SQLite or Datasette"`
}

// HistoryShowCmd prints recent recommendations
type HistoryShowCmd struct {
	Last int `short:"n" help:"Number of entries" default:"20"`
}

// HistoryExportCmd exports recommendation history
type HistoryExportCmd struct {
	DB           string `help:"SQLite database to export to (defaults to datasette.dbfile)"`
	DatasetteURL string `help:"Export to a remote Datasette instance instead"`
}

// CacheCmd groups the cache commands
type CacheCmd struct {
	Invalidate   CacheInvalidateCmd   `cmd:"" help:"Remove every cached entry of a source"`
	ClearExpired CacheClearExpiredCmd `cmd:"" help:"Remove entries older than the cache TTL"`
}

// CacheInvalidateCmd clears one cache source
type CacheInvalidateCmd struct {
	Source string `arg:"" enum:"analysis,embedding" help:"Cache source: analysis or embedding"`
}

// CacheClearExpiredCmd clears expired entries
type CacheClearExpiredCmd struct{}

// IndexCmd groups the similarity index commands
type IndexCmd struct {
	Search IndexSearchCmd `cmd:"" help:"Semantic search over indexed books"`
}

// IndexSearchCmd searches the index
type IndexSearchCmd struct {
	Text string `arg:"" help:"Free text to search for"`
	K    int    `short:"k" help:"Number of results" default:"5"`
}

func (c *RecommendCmd) Run() error {
	return withApp(func(a *app) error {
		ctx, cancel := commandContext()
		defer cancel()

		recs := a.flows.GetRecommendations(ctx, c.Query, c.Count)
		renderRecommendations(output, c.Query, recs)

		if c.Notify && len(recs) > 0 {
			notify.RecommendationMessage(recs[0]).Deliver(ctx, a.notifier)
		}
		if !c.Pick || len(recs) == 0 {
			return nil
		}

		result, err := selectRecommendation(c.Query, recs)
		if err != nil {
			return fmt.Errorf("selection failed: %w", err)
		}
		if result.Action != tui.ActionSelected || result.Selection == nil {
			return nil
		}
		picked := result.Selection.Book
		if err := a.lists.Add(picked, book.ShelfToRead); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(output, "Added %s to %s\n", titleStyle.Render(picked.Title), book.ShelfToRead)
		return nil
	})
}

// noteGeneralFeeds tells the user when genre has no dedicated feed and
// general trending books are shown instead.
func noteGeneralFeeds(a *app, genre string) {
	if genre == "" || slices.Contains(a.genres, genre) {
		return
	}
	_, _ = fmt.Fprintf(output, "%s\n", mutedStyle.Render(fmt.Sprintf(
		"No dedicated feed for %q, showing general trending books (genres: %s)",
		genre, strings.Join(a.genres, ", "))))
}

func (c *ExploreCmd) Run() error {
	return withApp(func(a *app) error {
		ctx, cancel := commandContext()
		defer cancel()

		noteGeneralFeeds(a, c.Genre)
		renderGenreEntries(output, c.Genre, a.flows.ExploreGenre(ctx, c.Genre, c.Limit))
		return nil
	})
}

func (c *AnalyzeCmd) Run() error {
	b := book.Book{
		Title:       c.Title,
		Author:      c.Author,
		ISBN:        c.ISBN,
		Description: c.Description,
		Pages:       c.Pages,
		Genres:      []string{},
	}
	if err := b.Validate(); err != nil {
		return err
	}

	return withApp(func(a *app) error {
		ctx, cancel := commandContext()
		defer cancel()

		renderReport(output, a.flows.AnalyzeBook(ctx, b))
		return nil
	})
}

func (c *TrendingCmd) Run() error {
	return withApp(func(a *app) error {
		ctx, cancel := commandContext()
		defer cancel()

		noteGeneralFeeds(a, c.Genre)
		books := a.trending.Fetch(ctx, c.Genre, c.Limit)
		title := "Trending books"
		if c.Genre != "" {
			title += " in " + c.Genre
		}
		renderBooks(output, title, books)

		if c.Notify {
			if msg, ok := notify.TrendingMessage(books, c.Genre); ok {
				msg.Deliver(ctx, a.notifier)
			}
		}
		return nil
	})
}

func (c *ListAddCmd) Run() error {
	shelf, err := book.ParseShelf(c.List)
	if err != nil {
		return err
	}
	b := book.Book{Title: c.Title, Author: c.Author, ISBN: c.ISBN, Genres: []string{}}

	return withApp(func(a *app) error {
		list, err := a.lists.Get()
		if err != nil {
			return err
		}
		from, found := list.ShelfOf(b.IdentityKey())

		if err := a.lists.Add(b, shelf); err != nil {
			return err
		}
		if found && from != shelf {
			_, _ = fmt.Fprintf(output, "Moved %s from %s to %s\n", titleStyle.Render(b.Title), from, shelf)
			return nil
		}
		_, _ = fmt.Fprintf(output, "Added %s to %s\n", titleStyle.Render(b.Title), shelf)
		return nil
	})
}

func (c *ListRemoveCmd) Run() error {
	shelf, err := book.ParseShelf(c.List)
	if err != nil {
		return err
	}
	b := book.Book{Title: c.Title, Author: c.Author, ISBN: c.ISBN}

	return withApp(func(a *app) error {
		if err := a.lists.Remove(b, shelf); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(output, "Removed %s from %s\n", titleStyle.Render(b.Title), shelf)
		return nil
	})
}

func (c *ListImportCmd) Run() error {
	entries, err := store.LoadGoodreadsExport(c.File)
	if err != nil {
		return err
	}

	return withApp(func(a *app) error {
		n, err := a.lists.Import(entries)
		if err != nil {
			return err
		}
		slog.Info("Imported Goodreads shelves", "file", c.File, "books", n)
		_, _ = fmt.Fprintf(output, "Imported %d books\n", n)
		return nil
	})
}

func (c *ListShowCmd) Run() error {
	shelves := book.Shelves
	if c.List != "" {
		shelf, err := book.ParseShelf(c.List)
		if err != nil {
			return err
		}
		shelves = []book.Shelf{shelf}
	}

	return withApp(func(a *app) error {
		list, err := a.lists.Get()
		if err != nil {
			return err
		}
		renderReadingList(output, list, shelves)
		return nil
	})
}

func (c *HistoryShowCmd) Run() error {
	return withApp(func(a *app) error {
		recs, err := a.history.Recent(c.Last)
		if err != nil {
			return err
		}
		renderHistory(output, recs)
		return nil
	})
}

func (c *HistoryExportCmd) Run() error {
	return withApp(func(a *app) error {
		ctx, cancel := commandContext()
		defer cancel()

		recs, err := a.history.All()
		if err != nil {
			return err
		}

		var target datastore.Store
		url := c.DatasetteURL
		if url == "" {
			url = a.cfg.DatasetteURL
		}
		if url != "" {
			target = datastore.NewDatasetteClient(url, a.cfg.DatasetteToken)
		} else {
			dbPath := c.DB
			if dbPath == "" {
				dbPath = a.cfg.DatasetteDB
			}
			target = datastore.NewSQLiteStore(dbPath)
		}

		if err := target.Connect(); err != nil {
			return err
		}
		defer func() { _ = target.Close() }()

		n, err := datastore.ExportRecommendations(ctx, target, recs)
		if err != nil {
			return err
		}
		slog.Info("Exported recommendation history", "rows", n)
		_, _ = fmt.Fprintf(output, "Exported %d recommendations\n", n)
		return nil
	})
}

func (c *CacheInvalidateCmd) Run() error {
	table, ok := cache.SourceTables[c.Source]
	if !ok {
		return fmt.Errorf("unknown cache source %q", c.Source)
	}

	return withApp(func(a *app) error {
		n, err := a.cache.InvalidateSource(table)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(output, "Removed %d %s cache entries\n", n, c.Source)
		return nil
	})
}

func (c *CacheClearExpiredCmd) Run() error {
	return withApp(func(a *app) error {
		var total int64
		for _, table := range []string{cache.AnalysisTable, cache.EmbeddingTable} {
			n, err := a.cache.ClearExpired(table)
			if err != nil {
				return err
			}
			total += n
		}
		_, _ = fmt.Fprintf(output, "Removed %d expired cache entries\n", total)
		return nil
	})
}

func (c *IndexSearchCmd) Run() error {
	return withApp(func(a *app) error {
		ctx, cancel := commandContext()
		defer cancel()

		matches, err := a.index.Search(ctx, c.Text, c.K)
		if err != nil {
			return err
		}
		renderMatches(output, c.Text, matches)
		if n, err := a.index.Count(ctx); err == nil {
			_, _ = fmt.Fprintln(output, mutedStyle.Render(fmt.Sprintf("%d books indexed", n)))
		}
		return nil
	})
}
