package tail

import (
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/TFMV/trail/internal/notify"
)

// ErrNoFilesRemaining terminates following when no trackable source is left.
var ErrNoFilesRemaining = errors.New("no files remaining")

// Observer owns the watch set and interprets raw filesystem events into
// tailing actions. All of its state is mutated only by the goroutine
// running Follow.
type Observer struct {
	retry      bool
	follow     FollowMode
	usePolling bool
	pid        int

	backend notify.Backend
	files   *Registry

	// orphans are tracked paths whose parent directory does not exist.
	// Entries are appended but never removed once a path has been an
	// orphan; the set records history, not just current state.
	orphans []string

	logger *zap.Logger
}

// NewObserver builds an Observer from session settings. The backend is not
// constructed until Start.
func NewObserver(settings *Settings) *Observer {
	settings.normalize()
	pid := settings.PID
	if pid < 0 {
		pid = 0
	}
	return &Observer{
		retry:      settings.Retry,
		follow:     settings.Follow,
		usePolling: settings.UsePolling,
		pid:        pid,
		files:      newRegistry(settings.Out),
		logger:     settings.Logger,
	}
}

func (o *Observer) followDescriptor() bool { return o.follow == FollowDescriptor }
func (o *Observer) followName() bool       { return o.follow == FollowName }

func (o *Observer) followDescriptorRetry() bool { return o.followDescriptor() && o.retry }
func (o *Observer) followNameRetry() bool       { return o.followName() && o.retry }

// AddPath registers a path for tracking. reader may be nil; metadata is
// captured best-effort and may be absent until the first event. No-op when
// following is disabled.
func (o *Observer) AddPath(path, displayName string, reader *LineReader, updateLast bool) error {
	if o.follow == FollowNone {
		return nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	md, _ := os.Stat(abs)
	o.files.Insert(abs, &PathData{
		displayName: norm.NFC.String(displayName),
		md:          md,
		reader:      reader,
	}, updateLast)
	return nil
}

// AddStdin registers standard input. Only meaningful in descriptor mode;
// stdin has no stable name to re-open by.
func (o *Observer) AddStdin(displayName string, reader *LineReader, updateLast bool) error {
	if o.follow != FollowDescriptor {
		return nil
	}
	return o.AddPath(stdinName, displayName, reader, updateLast)
}

// AddBadPath registers a path that could not be opened, so tailing can
// begin once it exists. Only meaningful with both retry and following
// enabled.
func (o *Observer) AddBadPath(path, displayName string, updateLast bool) error {
	if !o.retry || o.follow == FollowNone {
		return nil
	}
	return o.AddPath(path, displayName, nil, updateLast)
}

// Start constructs the backend and seeds the initial watches. No-op when
// following is disabled.
func (o *Observer) Start(settings *Settings) error {
	if o.follow == FollowNone {
		return nil
	}

	backend, polling, err := notify.NewBackend(
		o.usePolling || settings.UsePolling, settings.SleepInterval, o.logger)
	if err != nil {
		return err
	}
	// Sticky for the rest of the session.
	o.usePolling = polling
	settings.UsePolling = polling
	o.backend = backend

	return o.initWatches(settings.Inputs)
}

func (o *Observer) initWatches(inputs []Input) error {
	for _, input := range inputs {
		if input.IsStdin() {
			continue
		}
		path, err := filepath.Abs(input.Path)
		if err != nil {
			return err
		}

		if pathIsTailable(path) {
			if err := notify.WatchWithParent(o.backend, path); err != nil {
				return err
			}
		} else if !isOrphan(path) {
			// Not tailable yet, but the parent exists: watch it so the
			// file's arrival is seen.
			if err := o.backend.Watch(filepath.Dir(path), false); err != nil {
				return err
			}
		} else {
			o.orphans = append(o.orphans, path)
		}
	}
	return nil
}

func (o *Observer) hasOrphan(path string) bool {
	for _, p := range o.orphans {
		if p == path {
			return true
		}
	}
	return false
}

// handleEvent interprets one change event, mutating the registry and watch
// set. It returns the paths worth checking for new content.
func (o *Observer) handleEvent(ev notify.Event, settings *Settings) ([]string, error) {
	path := ev.Path
	pd := o.files.Get(path)
	if pd == nil {
		// Directory-level watches surface events for paths we were never
		// asked to track.
		return nil, nil
	}

	var paths []string

	switch ev.Kind {
	case notify.Created, notify.MetadataChanged, notify.DataChanged, notify.RenamedTo:
		md, err := os.Stat(path)
		if err != nil {
			// The file vanished between the event and the stat. A follow-up
			// remove event will deal with it.
			return nil, nil
		}
		tailable := isTailable(md)
		old := pd.md

		switch {
		case old != nil && tailable:
			if !isTailable(old) {
				o.logger.Info("file has become accessible",
					zap.String("file", pd.displayName))
				if err := o.files.updateReader(path); err != nil {
					return nil, err
				}
			} else if pd.reader == nil {
				o.logger.Info("file has appeared, following new file",
					zap.String("file", pd.displayName))
				if err := o.files.updateReader(path); err != nil {
					return nil, err
				}
			} else if ev.Kind == notify.RenamedTo || (o.usePolling && !fileIDEq(old, md)) {
				o.logger.Info("file has been replaced, following new file",
					zap.String("file", pd.displayName))
				if err := o.files.updateReader(path); err != nil {
					return nil, err
				}
			} else if trunc, terr := gotTruncated(old, md); terr == nil && trunc {
				o.logger.Warn("file truncated", zap.String("file", pd.displayName))
				pd.reader.rewind()
			}
			paths = append(paths, path)

		case old != nil && !tailable:
			if isTailable(old) {
				if pd.reader != nil {
					o.files.resetReader(path)
				} else {
					o.logger.Warn("file has been replaced with an untailable file",
						zap.String("file", pd.displayName))
				}
			}

		case old == nil && tailable:
			o.logger.Info("file has appeared, following new file",
				zap.String("file", pd.displayName))
			if err := o.files.updateReader(path); err != nil {
				return nil, err
			}
			paths = append(paths, path)

		case old == nil && settings.Retry:
			if o.followDescriptor() {
				o.logger.Warn("file has been replaced with an untailable file, giving up on this name",
					zap.String("file", pd.displayName))
				o.backend.Unwatch(path)
				o.files.Remove(path)
				if o.files.NoFilesRemaining(o.retry) {
					return nil, ErrNoFilesRemaining
				}
			} else {
				o.logger.Warn("file has been replaced with an untailable file",
					zap.String("file", pd.displayName))
			}
		}

		o.files.updateMetadata(path, md)

	case notify.RemovedOrRenamedFrom:
		switch {
		case o.followName():
			if settings.Retry {
				if pd.md != nil && isTailable(pd.md) && pd.reader != nil {
					o.logger.Warn("file has become inaccessible",
						zap.String("file", pd.displayName))
				}
				if isOrphan(path) && !o.hasOrphan(path) {
					o.logger.Warn("directory containing watched file was removed")
					o.logger.Warn("native watch backend cannot be used on this path, falling back to existence checks")
					o.orphans = append(o.orphans, path)
					o.backend.Unwatch(path)
				}
			} else {
				o.logger.Warn("no such file or directory",
					zap.String("file", pd.displayName))
				if !o.files.FilesRemaining() && o.usePolling {
					return nil, ErrNoFilesRemaining
				}
			}
			o.files.resetReader(path)

		case o.followDescriptorRetry():
			// Retry is only effective for the initial open; a descriptor
			// that went away is gone for good.
			o.backend.Unwatch(path)
			o.files.Remove(path)

		case o.usePolling && ev.Ambiguous:
			// The polling backend cannot tell a rename from a delete, and
			// in descriptor mode the old handle may still be valid. Keep
			// reading from it.
		}

	case notify.RenamedBoth:
		// Descriptor mode keeps the same handle across the rename; only
		// the registry key and the watch move.
		if o.followDescriptor() && ev.RenamedPath != "" {
			newPath := ev.RenamedPath
			o.files.Rename(path, newPath)
			o.backend.Unwatch(path)
			if err := notify.WatchWithParent(o.backend, newPath); err != nil {
				o.logger.Warn("cannot watch renamed file",
					zap.String("file", newPath), zap.Error(err))
			}
			paths = append(paths, newPath)
		}
	}

	return paths, nil
}
