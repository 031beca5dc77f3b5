package tail

import (
	"errors"
	"io"
	"os"

	"go.uber.org/zap"
)

// ErrOpenFailed reports that at least one input could not be opened. A
// follow session still runs on the inputs that did open; the failure is
// surfaced for a nonzero exit once the session ends.
var ErrOpenFailed = errors.New("cannot open input")

// Run prints the trailing lines of every input and, when following is
// enabled, keeps monitoring them until a terminal condition.
func Run(settings *Settings) error {
	settings.normalize()
	obs := NewObserver(settings)

	openFailed := false
	for _, input := range settings.Inputs {
		if input.IsStdin() {
			if err := tailStdin(obs, input, settings); err != nil {
				return err
			}
			continue
		}
		if err := tailInitial(obs, input, settings); err != nil {
			openFailed = true
			settings.Logger.Error("cannot open file for reading",
				zap.String("file", input.DisplayName), zap.Error(err))
			if err := obs.AddBadPath(input.Path, input.DisplayName, true); err != nil {
				return err
			}
		}
	}

	if settings.Follow != FollowNone {
		if err := obs.Start(settings); err != nil {
			return err
		}
		if err := Follow(obs, settings); err != nil {
			return err
		}
	}
	if openFailed {
		return ErrOpenFailed
	}
	return nil
}

// tailInitial prints the last N lines of one file and registers it with a
// reader positioned at end of file.
func tailInitial(o *Observer, input Input, settings *Settings) error {
	if !pathIsTailable(input.Path) {
		if _, err := os.Stat(input.Path); err != nil {
			return err
		}
		return errors.New("not a tailable file")
	}

	if settings.Verbose {
		o.files.printHeader(input.DisplayName)
	}
	size, err := printLastLines(settings.Out, input.Path, settings.Lines)
	if err != nil {
		return err
	}

	reader, err := openReader(input.Path, size)
	if err != nil {
		return err
	}
	return o.AddPath(input.Path, input.DisplayName, reader, true)
}

// tailStdin prints the last N lines of whatever stdin currently holds and,
// in descriptor mode, keeps following the descriptor.
func tailStdin(o *Observer, input Input, settings *Settings) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}
	if settings.Verbose {
		o.files.printHeader(input.DisplayName)
	}
	if _, err := settings.Out.Write(lastLinesOf(data, settings.Lines)); err != nil {
		return err
	}
	return o.AddStdin(input.DisplayName, newStdinReader(os.Stdin), true)
}

// lastLinesOf returns the final n lines of data. A trailing newline
// terminates the last line rather than starting an empty one.
func lastLinesOf(data []byte, n int) []byte {
	if n <= 0 || len(data) == 0 {
		return nil
	}
	end := len(data)
	if data[end-1] == '\n' {
		end--
	}
	seen := 0
	for i := end - 1; i >= 0; i-- {
		if data[i] == '\n' {
			seen++
			if seen == n {
				return data[i+1:]
			}
		}
	}
	return data
}
