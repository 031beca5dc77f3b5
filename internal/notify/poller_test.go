package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

const pollTestInterval = 20 * time.Millisecond

// waitForEvent reads from the backend until an event matching want arrives
// or the deadline passes.
func waitForEvent(t *testing.T, b Backend, path string, kind EventKind) bool {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-b.Events():
			t.Logf("event: %s %s", ev.Kind, ev.Path)
			if ev.Path == path && ev.Kind == kind {
				return true
			}
		case <-deadline:
			return false
		}
	}
}

func TestPollerFileAppend(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "app.log")
	if err := os.WriteFile(file, []byte("one\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	p := newPoller(pollTestInterval, zap.NewNop())
	defer p.Close()
	if err := p.Watch(file, false); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// Some filesystems have coarse mtime resolution; the size change alone
	// is enough for the poller.
	if err := os.WriteFile(file, []byte("one\ntwo\n"), 0644); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	if !waitForEvent(t, p, file, DataChanged) {
		t.Errorf("Did not receive data change event for %s", file)
	}
}

func TestPollerFileRemove(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "gone.log")
	if err := os.WriteFile(file, []byte("x\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	p := newPoller(pollTestInterval, zap.NewNop())
	defer p.Close()
	if err := p.Watch(file, false); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.Remove(file); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-p.Events():
			if ev.Path == file && ev.Kind == RemovedOrRenamedFrom {
				if !ev.Ambiguous {
					t.Errorf("polling removal should be ambiguous")
				}
				return
			}
		case <-deadline:
			t.Fatalf("Did not receive remove event for %s", file)
		}
	}
}

func TestPollerDirectoryChildRemove(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "child.log")
	if err := os.WriteFile(file, []byte("x\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	p := newPoller(pollTestInterval, zap.NewNop())
	defer p.Close()
	if err := p.Watch(tmpDir, false); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.Remove(file); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-p.Events():
			if ev.Path == file && ev.Kind == RemovedOrRenamedFrom {
				if !ev.Ambiguous {
					t.Errorf("polling removal should be ambiguous")
				}
				return
			}
		case <-deadline:
			t.Fatalf("Did not receive remove event for %s", file)
		}
	}
}

func TestPollerDirectoryCreate(t *testing.T) {
	tmpDir := t.TempDir()

	p := newPoller(pollTestInterval, zap.NewNop())
	defer p.Close()
	if err := p.Watch(tmpDir, false); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	file := filepath.Join(tmpDir, "new.log")
	if err := os.WriteFile(file, []byte("hello\n"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if !waitForEvent(t, p, file, Created) {
		t.Errorf("Did not receive create event for %s", file)
	}
}

func TestPollerReplacementShowsAsCreate(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "rotated.log")
	if err := os.WriteFile(file, []byte("old old old\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	p := newPoller(pollTestInterval, zap.NewNop())
	defer p.Close()
	if err := p.Watch(file, false); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// Rename a fresh file over the watched one: same name, new inode.
	repl := filepath.Join(tmpDir, "rotated.log.new")
	if err := os.WriteFile(repl, []byte("new\n"), 0644); err != nil {
		t.Fatalf("Failed to create replacement: %v", err)
	}
	if err := os.Rename(repl, file); err != nil {
		t.Fatalf("Failed to rename: %v", err)
	}

	if !waitForEvent(t, p, file, Created) {
		t.Errorf("Did not receive create event for replaced file %s", file)
	}
}

func TestPollerUnwatchStopsEvents(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "quiet.log")
	if err := os.WriteFile(file, []byte("x\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	p := newPoller(pollTestInterval, zap.NewNop())
	defer p.Close()
	if err := p.Watch(file, false); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := p.Unwatch(file); err != nil {
		t.Fatalf("Unwatch failed: %v", err)
	}

	if err := os.WriteFile(file, []byte("x\ny\n"), 0644); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	select {
	case ev := <-p.Events():
		t.Errorf("Unexpected event after unwatch: %s %s", ev.Kind, ev.Path)
	case <-time.After(5 * pollTestInterval):
	}
}
