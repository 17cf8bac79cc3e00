// Package classes holds the ordered label table marks refer to by index.
package classes

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// EmptyImageName is the label of the reserved sentinel entry that marks an image as having no objects
const EmptyImageName = "(empty image)"

// ErrUnknownClass is returned for ids outside the table
var ErrUnknownClass = errors.New("classes: unknown class id")

// Table is an ordered list of class names followed by the empty-image sentinel.
// Indices stay stable for the lifetime of the table.
type Table struct {
	names []string
}

// New creates a table from the given names
func New(names []string) *Table {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return &Table{names: out}
}

// LoadNames reads a darknet style .names file with one class per line
func LoadNames(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open names file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read names file: %w", err)
	}
	return New(names), nil
}

// Len returns the number of real classes, excluding the sentinel
func (t *Table) Len() int {
	return len(t.names)
}

// EmptyImageID returns the index of the sentinel entry
func (t *Table) EmptyImageID() int {
	return len(t.names)
}

// Valid reports whether id refers to a class or the sentinel
func (t *Table) Valid(id int) bool {
	return id >= 0 && id <= len(t.names)
}

// Name returns the label for id
func (t *Table) Name(id int) (string, error) {
	switch {
	case id >= 0 && id < len(t.names):
		return t.names[id], nil
	case id == len(t.names):
		return EmptyImageName, nil
	}
	return "", fmt.Errorf("%w: %d (have %d)", ErrUnknownClass, id, len(t.names))
}

// Lookup finds the id of a label, ignoring case and surrounding space
func (t *Table) Lookup(label string) (int, bool) {
	label = strings.TrimSpace(label)
	for i, n := range t.names {
		if strings.EqualFold(n, label) {
			return i, true
		}
	}
	return 0, false
}

// Names returns a copy of the real class names
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}
