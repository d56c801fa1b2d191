package book

import (
	"fmt"
	"slices"
	"strings"
)

// Shelf names one of the three reading lists.
type Shelf string

const (
	ShelfToRead     Shelf = "to_read"
	ShelfInProgress Shelf = "in_progress"
	ShelfCompleted  Shelf = "completed"
)

// Shelves lists every shelf in display order.
var Shelves = []Shelf{ShelfToRead, ShelfInProgress, ShelfCompleted}

// ParseShelf converts a user-supplied list name into a Shelf.
// "currently_reading" is accepted as an alias for in_progress.
func ParseShelf(name string) (Shelf, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "to_read", "to-read", "":
		return ShelfToRead, nil
	case "in_progress", "in-progress", "currently_reading", "currently-reading":
		return ShelfInProgress, nil
	case "completed", "done":
		return ShelfCompleted, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownShelf, name)
}

// ReadingList keeps three disjoint ordered lists of books.
// A given identity key is on at most one shelf at a time.
type ReadingList struct {
	ToRead     []Book `json:"to_read"`
	InProgress []Book `json:"in_progress"`
	Completed  []Book `json:"completed"`
}

func (r *ReadingList) shelf(s Shelf) *[]Book {
	switch s {
	case ShelfToRead:
		return &r.ToRead
	case ShelfInProgress:
		return &r.InProgress
	case ShelfCompleted:
		return &r.Completed
	}
	return nil
}

// Books returns the books on the given shelf.
func (r *ReadingList) Books(s Shelf) []Book {
	if list := r.shelf(s); list != nil {
		return *list
	}
	return nil
}

// Add moves b onto the given shelf, removing it from every other shelf first.
// Adding a book already on the shelf replaces the stored copy in place.
func (r *ReadingList) Add(b Book, s Shelf) error {
	target := r.shelf(s)
	if target == nil {
		return fmt.Errorf("%w: %q", ErrUnknownShelf, s)
	}

	key := b.IdentityKey()
	for _, other := range Shelves {
		if other == s {
			continue
		}
		list := r.shelf(other)
		*list = removeKey(*list, key)
	}

	if i := slices.IndexFunc(*target, func(x Book) bool { return x.IdentityKey() == key }); i >= 0 {
		(*target)[i] = b
		return nil
	}
	*target = append(*target, b)
	return nil
}

// Remove deletes b from the given shelf. It reports whether anything was removed.
func (r *ReadingList) Remove(b Book, s Shelf) (bool, error) {
	list := r.shelf(s)
	if list == nil {
		return false, fmt.Errorf("%w: %q", ErrUnknownShelf, s)
	}
	before := len(*list)
	*list = removeKey(*list, b.IdentityKey())
	return len(*list) != before, nil
}

// ShelfOf returns the shelf holding the given identity key.
func (r *ReadingList) ShelfOf(key string) (Shelf, bool) {
	for _, s := range Shelves {
		for _, b := range *r.shelf(s) {
			if b.IdentityKey() == key {
				return s, true
			}
		}
	}
	return "", false
}

func removeKey(list []Book, key string) []Book {
	out := list[:0:0]
	for _, b := range list {
		if b.IdentityKey() != key {
			out = append(out, b)
		}
	}
	return out
}
