package classes

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSkipsBlankNames(t *testing.T) {
	table := New([]string{"car", " ", "person ", ""})
	if table.Len() != 2 {
		t.Fatalf("Expected 2 classes, got %d", table.Len())
	}
	if name, _ := table.Name(1); name != "person" {
		t.Errorf("Expected trimmed name person, got %q", name)
	}
}

func TestSentinel(t *testing.T) {
	table := New([]string{"car", "person"})

	if table.EmptyImageID() != 2 {
		t.Errorf("Expected sentinel at 2, got %d", table.EmptyImageID())
	}
	name, err := table.Name(2)
	if err != nil || name != EmptyImageName {
		t.Errorf("Expected sentinel name, got %q (%v)", name, err)
	}
	if !table.Valid(2) || table.Valid(3) || table.Valid(-1) {
		t.Error("Valid range should be [0, Len()]")
	}
	if _, err := table.Name(3); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("Expected ErrUnknownClass, got %v", err)
	}
}

func TestLookup(t *testing.T) {
	table := New([]string{"Car", "person"})
	if id, ok := table.Lookup(" car "); !ok || id != 0 {
		t.Errorf("Expected car at 0, got %d (%v)", id, ok)
	}
	if _, ok := table.Lookup("bicycle"); ok {
		t.Error("Unknown label should not be found")
	}
}

func TestLoadNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obj.names")
	if err := os.WriteFile(path, []byte("cat\ndog\n\nbird\n"), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadNames(path)
	if err != nil {
		t.Fatalf("LoadNames failed: %v", err)
	}
	names := table.Names()
	if len(names) != 3 || names[2] != "bird" {
		t.Errorf("Unexpected names %v", names)
	}

	if _, err := LoadNames(filepath.Join(t.TempDir(), "missing.names")); err == nil {
		t.Error("Expected error for missing file")
	}
}
