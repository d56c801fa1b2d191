package store

import (
	"fmt"
	"sync"

	"github.com/lepinkainen/bookmind/internal/book"
	"github.com/lepinkainen/bookmind/internal/fileutil"
)

// ReadingLists persists the user's to_read, in_progress and completed shelves.
type ReadingLists struct {
	path string
	mu   sync.Mutex
}

// NewReadingLists returns the reading lists stored at path.
func NewReadingLists(path string) *ReadingLists {
	return &ReadingLists{path: path}
}

// Add puts b on shelf, moving it off any other shelf.
func (r *ReadingLists) Add(b book.Book, shelf book.Shelf) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return r.update(func(list *book.ReadingList) (bool, error) {
		return true, list.Add(b, shelf)
	})
}

// Remove takes b off shelf. Removing a book that is not there returns
// book.ErrBookNotFound.
func (r *ReadingLists) Remove(b book.Book, shelf book.Shelf) error {
	return r.update(func(list *book.ReadingList) (bool, error) {
		removed, err := list.Remove(b, shelf)
		if err != nil {
			return false, err
		}
		if !removed {
			return false, fmt.Errorf("%w: %s on %s", book.ErrBookNotFound, b.IdentityKey(), shelf)
		}
		return true, nil
	})
}

// Get returns a snapshot of all three shelves.
func (r *ReadingLists) Get() (book.ReadingList, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *ReadingLists) update(fn func(*book.ReadingList) (bool, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load()
	if err != nil {
		return err
	}
	changed, err := fn(&list)
	if err != nil || !changed {
		return err
	}
	if err := fileutil.WriteJSONFile(list, r.path); err != nil {
		return fmt.Errorf("saving reading lists: %w", err)
	}
	return nil
}

func (r *ReadingLists) load() (book.ReadingList, error) {
	var list book.ReadingList
	if _, err := fileutil.ReadJSONFile(r.path, &list); err != nil {
		return book.ReadingList{}, fmt.Errorf("loading reading lists: %w", err)
	}
	if list.ToRead == nil {
		list.ToRead = []book.Book{}
	}
	if list.InProgress == nil {
		list.InProgress = []book.Book{}
	}
	if list.Completed == nil {
		list.Completed = []book.Book{}
	}
	return list, nil
}
