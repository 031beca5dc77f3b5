package notify

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// fsEventBackend adapts fsnotify to the Backend interface, translating its
// event vocabulary into the normalized EventKind taxonomy.
//
// Translation: Create -> Created, Write -> DataChanged, Chmod ->
// MetadataChanged, Remove and Rename -> RemovedOrRenamedFrom (Rename is
// always the source side with fsnotify). fsnotify never reports a rename
// destination, so this adapter produces neither RenamedTo nor RenamedBoth;
// replacement is instead detected by the consumer from Created events and
// file identity comparison.
type fsEventBackend struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errs    chan error
	done    chan struct{}
	logger  *zap.Logger
}

func newFSEventBackend(logger *zap.Logger) (*fsEventBackend, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	b := &fsEventBackend{
		watcher: w,
		events:  make(chan Event, 64),
		errs:    make(chan error, 8),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go b.run()
	return b, nil
}

func (b *fsEventBackend) run() {
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				close(b.events)
				return
			}
			ne, ok := translate(ev)
			if !ok {
				continue
			}
			select {
			case b.events <- ne:
			case <-b.done:
				return
			}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			select {
			case b.errs <- err:
			case <-b.done:
				return
			}
		case <-b.done:
			return
		}
	}
}

func translate(ev fsnotify.Event) (Event, bool) {
	switch {
	case ev.Has(fsnotify.Create):
		return Event{Kind: Created, Path: ev.Name}, true
	case ev.Has(fsnotify.Write):
		return Event{Kind: DataChanged, Path: ev.Name}, true
	case ev.Has(fsnotify.Remove):
		return Event{Kind: RemovedOrRenamedFrom, Path: ev.Name}, true
	case ev.Has(fsnotify.Rename):
		return Event{Kind: RemovedOrRenamedFrom, Path: ev.Name}, true
	case ev.Has(fsnotify.Chmod):
		return Event{Kind: MetadataChanged, Path: ev.Name}, true
	}
	return Event{}, false
}

func (b *fsEventBackend) Watch(path string, recursive bool) error {
	// fsnotify watches are always non-recursive; the recursive flag exists
	// for parity with the Backend contract and is ignored here.
	if err := b.watcher.Add(path); err != nil {
		return &BackendError{Path: path, Err: err}
	}
	return nil
}

func (b *fsEventBackend) Unwatch(path string) error {
	if err := b.watcher.Remove(path); err != nil {
		return &BackendError{Path: path, Err: err}
	}
	return nil
}

func (b *fsEventBackend) Events() <-chan Event { return b.events }

func (b *fsEventBackend) Errors() <-chan error { return b.errs }

func (b *fsEventBackend) Close() error {
	close(b.done)
	return b.watcher.Close()
}
