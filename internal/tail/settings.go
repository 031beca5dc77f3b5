// Package tail implements follow-mode tailing: it monitors a set of paths
// for appended content and for changes in file identity (truncation,
// deletion, recreation, renaming) and prints whatever accumulates, surviving
// the usual log-rotation patterns without losing or duplicating output.
package tail

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// FollowMode selects how a path is re-acquired when its underlying file
// changes identity.
type FollowMode int

const (
	// FollowNone disables following entirely.
	FollowNone FollowMode = iota

	// FollowDescriptor keeps following the originally opened file even
	// after it is renamed or unlinked, as long as it remains reachable.
	FollowDescriptor

	// FollowName re-resolves and re-opens the path by its name when the
	// underlying file changes identity. Supports rotation via rename.
	FollowName
)

// InputKind distinguishes a named file from standard input.
type InputKind int

const (
	InputFile InputKind = iota
	InputStdin
)

// stdinName is the path registered for standard input when following by
// descriptor; stdin has no stable name to re-open by.
const stdinName = "/dev/stdin"

// Input is one source to tail, in command-line order.
type Input struct {
	Kind        InputKind
	Path        string
	DisplayName string
}

// NewInput builds an Input from a command-line argument. "-" means stdin.
func NewInput(arg string) Input {
	if arg == "-" {
		return Input{Kind: InputStdin, DisplayName: "standard input"}
	}
	return Input{Kind: InputFile, Path: arg, DisplayName: norm.NFC.String(arg)}
}

// IsStdin reports whether the input reads from standard input.
func (in Input) IsStdin() bool { return in.Kind == InputStdin }

// Settings carries the session configuration for following.
type Settings struct {
	// Follow selects the follow mode; FollowNone disables following.
	Follow FollowMode

	// Retry keeps retrying paths that are missing or become inaccessible.
	Retry bool

	// UsePolling forces the polling backend. The session may also flip to
	// polling at runtime when the native backend cannot be constructed;
	// that decision is sticky.
	UsePolling bool

	// PID, when nonzero, terminates following once the process dies.
	PID int

	// SleepInterval is the wait between loop iterations and the polling
	// backend's re-stat interval.
	SleepInterval time.Duration

	// MaxUnchangedStats is the consecutive-timeout threshold reserved for
	// the re-stat-after-N-unchanged-iterations heuristic.
	MaxUnchangedStats int

	// Lines is the number of trailing lines printed before following.
	Lines int

	// Verbose prints "==> name <==" headers when switching between files.
	Verbose bool

	// Inputs are the sources to tail, in order.
	Inputs []Input

	// Out receives file content. Defaults to os.Stdout.
	Out io.Writer

	// Logger receives diagnostics. Defaults to a production zap logger.
	Logger *zap.Logger
}

// normalize fills in defaults for zero-valued fields.
func (s *Settings) normalize() {
	if s.SleepInterval <= 0 {
		s.SleepInterval = time.Second
	}
	if s.MaxUnchangedStats <= 0 {
		s.MaxUnchangedStats = 5
	}
	if s.Lines <= 0 {
		s.Lines = 10
	}
	if s.Out == nil {
		s.Out = os.Stdout
	}
	if s.Logger == nil {
		s.Logger = createLogger(LogLevelInfo)
	}
}
