// Package comments defines the annotation store contract: an ordered
// collection of comment entries with monotonically increasing ids.
package comments

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateID is returned when an appended entry's id is not above the current maximum.
	ErrDuplicateID = errors.New("comment id not above current maximum")
	// ErrCorruptStore is returned when existing entries cannot be read, e.g. a non-numeric id.
	ErrCorruptStore = errors.New("corrupt comment store")
)

// Entry is one stored comment.
type Entry struct {
	ID       int       `json:"id"`
	Author   string    `json:"author"`
	Initials string    `json:"initials"`
	Date     time.Time `json:"date"`
	Body     string    `json:"body"`
}

// Store holds comment entries and allocates their ids.
type Store interface {
	// Entries returns the entries in store order.
	Entries() ([]Entry, error)
	// Append adds e; e.ID must exceed every existing id.
	Append(e Entry) error
	// NextID returns 1 for an empty store, else one more than the largest id.
	NextID() (int, error)
	// Persist flushes the store to its backing medium.
	Persist() error
}

// NextID applies the id allocation rule to entries.
func NextID(entries []Entry) int {
	highest := 0
	for _, e := range entries {
		if e.ID > highest {
			highest = e.ID
		}
	}
	return highest + 1
}

// CheckAppend validates that e may be appended after entries.
func CheckAppend(entries []Entry, e Entry) error {
	if e.ID < 1 {
		return fmt.Errorf("comment id %d: %w", e.ID, ErrDuplicateID)
	}
	if next := NextID(entries); e.ID < next {
		return fmt.Errorf("comment id %d, next is %d: %w", e.ID, next, ErrDuplicateID)
	}
	return nil
}

// MemoryStore is a Store held in memory. OnPersist, when set, receives a copy
// of the entries on every Persist.
type MemoryStore struct {
	entries   []Entry
	OnPersist func([]Entry) error
}

// NewMemoryStore returns a store seeded with entries.
func NewMemoryStore(entries ...Entry) *MemoryStore {
	return &MemoryStore{entries: append([]Entry(nil), entries...)}
}

func (m *MemoryStore) Entries() ([]Entry, error) {
	return append([]Entry(nil), m.entries...), nil
}

func (m *MemoryStore) Append(e Entry) error {
	if err := CheckAppend(m.entries, e); err != nil {
		return err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *MemoryStore) NextID() (int, error) {
	return NextID(m.entries), nil
}

func (m *MemoryStore) Persist() error {
	if m.OnPersist == nil {
		return nil
	}
	return m.OnPersist(append([]Entry(nil), m.entries...))
}
