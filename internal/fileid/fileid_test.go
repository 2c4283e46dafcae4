package fileid

import (
	"strings"
	"testing"
)

func TestFileDocID(t *testing.T) {
	id := FileDocID("/docs/notes.txt")
	if !strings.HasPrefix(id, "file:") {
		t.Errorf("id=%q", id)
	}

	if FileDocID("/docs/notes.txt") != id {
		t.Error("same path must produce same id")
	}
	if FileDocID("/docs/other.txt") == id {
		t.Error("different paths must produce different ids")
	}
	// Path cleaning makes equivalent paths identical.
	if FileDocID("/docs//notes.txt") != id {
		t.Error("unclean path should normalize to the same id")
	}
}
