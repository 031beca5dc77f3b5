// Package notify abstracts filesystem change notification behind a uniform
// backend interface.
//
// Two implementations are provided: a native backend built on fsnotify and a
// polling backend that re-stats watched paths on a timer. Either can be used
// interchangeably; NewBackend picks the native one and falls back to polling
// when the platform's watch resources are exhausted.
package notify

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// EventKind classifies a normalized filesystem change.
type EventKind int

const (
	// Created reports that a path came into existence.
	Created EventKind = iota

	// MetadataChanged reports a change to a path's metadata (mode, times).
	MetadataChanged

	// DataChanged reports that a path's contents changed.
	DataChanged

	// RenamedTo reports that some other path was renamed onto this one.
	RenamedTo

	// RemovedOrRenamedFrom reports that a path was deleted or renamed away.
	// The two cases cannot always be told apart; see Event.Ambiguous.
	RemovedOrRenamedFrom

	// RenamedBoth reports a rename where both endpoints are known. Only a
	// native backend can produce it; the polling backend has no way to
	// correlate a disappearance at one path with an appearance at another.
	RenamedBoth
)

// String returns a short name for the event kind.
func (k EventKind) String() string {
	switch k {
	case Created:
		return "create"
	case MetadataChanged:
		return "metadata"
	case DataChanged:
		return "data"
	case RenamedTo:
		return "rename-to"
	case RemovedOrRenamedFrom:
		return "remove"
	case RenamedBoth:
		return "rename-both"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Event is one normalized change notification.
type Event struct {
	Kind EventKind

	// Path is the path the event applies to. For RenamedBoth it is the old
	// name and RenamedPath is the new one.
	Path string

	// RenamedPath is the rename destination, set only for RenamedBoth.
	RenamedPath string

	// Ambiguous marks a RemovedOrRenamedFrom event where the backend cannot
	// distinguish a delete from a rename away. The polling backend always
	// sets it on removals.
	Ambiguous bool
}

// BackendError wraps a backend failure, keeping the path it relates to when
// one is known.
type BackendError struct {
	Path string
	Err  error
}

func (e *BackendError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsResourceExhausted reports whether err indicates the platform ran out of
// watch descriptors or open files (EMFILE/ENFILE at construction time,
// ENOSPC from inotify when the watch limit is hit).
func IsResourceExhausted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE) || errors.Is(err, syscall.ENOSPC) {
		return true
	}
	return strings.Contains(err.Error(), "too many open files")
}
