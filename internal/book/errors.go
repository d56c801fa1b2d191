package book

import "errors"

var (
	// ErrBookNotFound is returned when a book cannot be found by the given identifier.
	ErrBookNotFound = errors.New("book not found")

	// ErrInvalidBook is returned when a book lacks a title or an author.
	ErrInvalidBook = errors.New("invalid book")

	// ErrUnknownShelf is returned when a reading list name is not recognized.
	ErrUnknownShelf = errors.New("unknown reading list")
)

// Validate checks the required fields of a book.
func (b Book) Validate() error {
	if b.Title == "" || b.Author == "" {
		return ErrInvalidBook
	}
	return nil
}
