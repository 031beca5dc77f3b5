// Package tail provides follow-mode file tailing as a library.
//
// It monitors a set of paths (and optionally standard input) for appended
// content and for changes in file identity — truncation, deletion,
// recreation, renaming — and prints whatever accumulates, surviving the
// usual log-rotation patterns. Change detection uses the platform's native
// notification facility with a polling fallback.
package tail

import (
	internal "github.com/TFMV/trail/internal/tail"
)

// Re-export the core types from the internal package.
type (
	// Settings carries the session configuration for following.
	Settings = internal.Settings

	// FollowMode selects how a path is re-acquired when its underlying
	// file changes identity.
	FollowMode = internal.FollowMode

	// Input is one source to tail.
	Input = internal.Input

	// InputKind distinguishes a named file from standard input.
	InputKind = internal.InputKind

	// Observer owns the watch set and the event-interpretation state
	// machine.
	Observer = internal.Observer

	// LogLevel defines the verbosity of logging.
	LogLevel = internal.LogLevel
)

// Re-export the constants.
const (
	FollowNone       = internal.FollowNone
	FollowDescriptor = internal.FollowDescriptor
	FollowName       = internal.FollowName

	InputFile  = internal.InputFile
	InputStdin = internal.InputStdin

	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug
)

// Re-export the sentinel errors.
var (
	// ErrNoFilesRemaining terminates following when no trackable source
	// is left.
	ErrNoFilesRemaining = internal.ErrNoFilesRemaining

	// ErrOpenFailed reports that at least one input could not be opened.
	ErrOpenFailed = internal.ErrOpenFailed
)

// NewInput builds an Input from a command-line style argument; "-" means
// standard input.
func NewInput(arg string) Input {
	return internal.NewInput(arg)
}

// NewObserver builds an Observer from session settings.
func NewObserver(settings *Settings) *Observer {
	return internal.NewObserver(settings)
}

// Follow runs the main follow loop until a terminal condition.
func Follow(o *Observer, settings *Settings) error {
	return internal.Follow(o, settings)
}

// Run prints the trailing lines of every input and, when following is
// enabled, keeps monitoring them until a terminal condition.
func Run(settings *Settings) error {
	return internal.Run(settings)
}
