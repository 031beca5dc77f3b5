package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

func TestFSEventBackendDirectoryWatch(t *testing.T) {
	tmpDir := t.TempDir()

	b, err := newFSEventBackend(zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	defer b.Close()

	if err := b.Watch(tmpDir, false); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	// Give the watcher a moment to initialize
	time.Sleep(100 * time.Millisecond)

	file := filepath.Join(tmpDir, "test1.txt")
	if err := os.WriteFile(file, []byte("test1\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if !waitForEvent(t, b, file, Created) {
		t.Errorf("Did not receive create event for %s", file)
	}

	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open for append: %v", err)
	}
	f.WriteString("more\n")
	f.Close()
	if !waitForEvent(t, b, file, DataChanged) {
		t.Errorf("Did not receive data change event for %s", file)
	}

	if err := os.Remove(file); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if !waitForEvent(t, b, file, RemovedOrRenamedFrom) {
		t.Errorf("Did not receive remove event for %s", file)
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		op   fsnotify.Op
		want EventKind
		ok   bool
	}{
		{"create", fsnotify.Create, Created, true},
		{"write", fsnotify.Write, DataChanged, true},
		{"remove", fsnotify.Remove, RemovedOrRenamedFrom, true},
		{"rename", fsnotify.Rename, RemovedOrRenamedFrom, true},
		{"chmod", fsnotify.Chmod, MetadataChanged, true},
		{"none", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := translate(fsnotify.Event{Name: "/x", Op: tt.op})
			if ok != tt.ok {
				t.Fatalf("translate(%v) ok = %v, want %v", tt.op, ok, tt.ok)
			}
			if ok && ev.Kind != tt.want {
				t.Errorf("translate(%v) kind = %v, want %v", tt.op, ev.Kind, tt.want)
			}
		})
	}
}

func TestWatchWithParentUsesDirectoryForFiles(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "watched.log")
	if err := os.WriteFile(file, []byte("x\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	rec := &recordingBackend{}
	if err := WatchWithParent(rec, file); err != nil {
		t.Fatalf("WatchWithParent failed: %v", err)
	}
	if len(rec.watched) != 1 || rec.watched[0] != tmpDir {
		t.Errorf("watched = %v, want [%s]", rec.watched, tmpDir)
	}

	// A directory path is watched as-is.
	rec = &recordingBackend{}
	if err := WatchWithParent(rec, tmpDir); err != nil {
		t.Fatalf("WatchWithParent failed: %v", err)
	}
	if len(rec.watched) != 1 || rec.watched[0] != tmpDir {
		t.Errorf("watched = %v, want [%s]", rec.watched, tmpDir)
	}
}

// recordingBackend records watch/unwatch calls for assertions.
type recordingBackend struct {
	watched   []string
	unwatched []string
}

func (r *recordingBackend) Watch(path string, recursive bool) error {
	r.watched = append(r.watched, path)
	return nil
}

func (r *recordingBackend) Unwatch(path string) error {
	r.unwatched = append(r.unwatched, path)
	return nil
}

func (r *recordingBackend) Events() <-chan Event { return nil }
func (r *recordingBackend) Errors() <-chan error { return nil }
func (r *recordingBackend) Close() error         { return nil }
