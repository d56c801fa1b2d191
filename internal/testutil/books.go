package testutil

import "github.com/lepinkainen/bookmind/internal/book"

// SampleBook returns a fully populated book for tests.
func SampleBook(title, author, isbn string) book.Book {
	return book.Book{
		Title:       title,
		Author:      author,
		ISBN:        isbn,
		Description: "A story about " + title + " written by " + author + ".",
		Genres:      []string{"fiction"},
	}
}

// SampleShelf returns a small catalogue of distinct books, mixing
// ISBN-bearing and ISBN-less entries.
func SampleShelf() []book.Book {
	return []book.Book{
		{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", Description: "Desert planet politics, spice and prophecy.", Genres: []string{"science_fiction"}, Pages: 412},
		{Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "9780547928227", Description: "A hobbit joins a quest with a wizard and a dragon.", Genres: []string{"fantasy"}, Pages: 300},
		{Title: "Gone Girl", Author: "Gillian Flynn", ISBN: "9780307588371", Description: "A detective story about a missing wife and a murder suspect.", Genres: []string{"mystery"}},
		{Title: "Pride and Prejudice", Author: "Jane Austen", Description: "Love, marriage and a slow romance in Regency England."},
		{Title: "Dracula", Author: "Bram Stoker", Description: "A vampire, a haunted castle and a hunt against the supernatural."},
	}
}
