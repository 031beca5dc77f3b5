package notify

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Backend is a source of filesystem change events. Events for different
// paths may interleave in any order, but events for the same path are
// delivered in the order the backend observed them.
type Backend interface {
	// Watch registers a path for change notification.
	Watch(path string, recursive bool) error

	// Unwatch removes a path from the watch set.
	Unwatch(path string) error

	// Events returns the stream of normalized change events.
	Events() <-chan Event

	// Errors returns backend-level failures that are not tied to a single
	// delivered event.
	Errors() <-chan error

	// Close stops the backend and releases its resources.
	Close() error
}

// NewBackend constructs a change-notification backend. When usePolling is
// false it tries the native fsnotify backend first and falls back to the
// polling backend if construction fails with resource exhaustion. The
// returned bool reports whether the polling backend is in use; once polling
// is chosen the decision is sticky for the session.
func NewBackend(usePolling bool, interval time.Duration, logger *zap.Logger) (Backend, bool, error) {
	if usePolling {
		return newPoller(interval, logger), true, nil
	}

	b, err := newFSEventBackend(logger)
	if err != nil {
		if IsResourceExhausted(err) {
			logger.Warn("native watch backend cannot be used, reverting to polling",
				zap.Error(err))
			return newPoller(interval, logger), true, nil
		}
		return nil, false, err
	}
	return b, false, nil
}

// WatchWithParent registers path with the backend, watching its parent
// directory instead when the path is currently a regular file. Watching a
// file directly is unreliable across rename and delete on some platforms, so
// directory-level watching is used and events are filtered by the consumer.
// Falls back to the current directory when the parent is not accessible.
func WatchWithParent(b Backend, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	target := abs
	if fi, err := os.Stat(abs); err == nil && fi.Mode().IsRegular() {
		parent := filepath.Dir(abs)
		if pi, err := os.Stat(parent); err == nil && pi.IsDir() {
			target = parent
		} else {
			target = "."
		}
	}
	return b.Watch(target, false)
}
