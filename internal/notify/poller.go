package notify

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// poller is a Backend that detects changes by periodically re-statting
// every watched path. It works on any platform but cannot recognize
// renames: a renamed file surfaces as a removal at the old name and a
// creation at the new one, so RenamedBoth is never produced.
type poller struct {
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	watches map[string]*pollState

	events    chan Event
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

// fileStamp captures the identity-relevant parts of a stat result.
type fileStamp struct {
	exists bool
	size   int64
	mtime  time.Time
	mode   os.FileMode
	dev    uint64
	ino    uint64
}

type pollState struct {
	isDir bool
	stamp fileStamp
	// entries tracks direct children of a watched directory, keyed by name.
	entries map[string]fileStamp
}

func newPoller(interval time.Duration, logger *zap.Logger) *poller {
	if interval <= 0 {
		interval = time.Second
	}
	p := &poller{
		interval: interval,
		logger:   logger,
		watches:  make(map[string]*pollState),
		events:   make(chan Event, 64),
		errs:     make(chan error, 8),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func stampPath(path string) fileStamp {
	fi, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	s := fileStamp{
		exists: true,
		size:   fi.Size(),
		mtime:  fi.ModTime(),
		mode:   fi.Mode(),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		s.dev = uint64(st.Dev)
		s.ino = uint64(st.Ino)
	}
	return s
}

func scanDir(path string) map[string]fileStamp {
	entries := make(map[string]fileStamp)
	names, err := godirwalk.ReadDirnames(path, nil)
	if err != nil {
		return entries
	}
	for _, name := range names {
		entries[name] = stampPath(filepath.Join(path, name))
	}
	return entries
}

func (p *poller) Watch(path string, recursive bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := &pollState{stamp: stampPath(path)}
	if st.stamp.mode.IsDir() {
		st.isDir = true
		st.entries = scanDir(path)
	}
	p.watches[path] = st
	return nil
}

func (p *poller) Unwatch(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watches, path)
	return nil
}

func (p *poller) Events() <-chan Event { return p.events }

func (p *poller) Errors() <-chan error { return p.errs }

func (p *poller) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

func (p *poller) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, ev := range p.sweep() {
				select {
				case p.events <- ev:
				case <-p.done:
					return
				}
			}
		case <-p.done:
			return
		}
	}
}

// sweep re-stats every watched path and returns the changes observed since
// the previous tick.
func (p *poller) sweep() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Event
	for path, st := range p.watches {
		if st.isDir {
			out = append(out, p.sweepDir(path, st)...)
			continue
		}
		now := stampPath(path)
		out = append(out, diffStamps(path, st.stamp, now)...)
		st.stamp = now
	}
	return out
}

func (p *poller) sweepDir(dir string, st *pollState) []Event {
	var out []Event
	now := scanDir(dir)

	for name := range st.entries {
		if _, ok := now[name]; !ok {
			out = append(out, Event{
				Kind:      RemovedOrRenamedFrom,
				Path:      filepath.Join(dir, name),
				Ambiguous: true,
			})
		}
	}
	for name, stamp := range now {
		child := filepath.Join(dir, name)
		old, ok := st.entries[name]
		if !ok {
			out = append(out, Event{Kind: Created, Path: child})
			continue
		}
		out = append(out, diffStamps(child, old, stamp)...)
	}
	st.entries = now
	return out
}

func diffStamps(path string, old, now fileStamp) []Event {
	switch {
	case !old.exists && now.exists:
		return []Event{{Kind: Created, Path: path}}
	case old.exists && !now.exists:
		// Could be a delete or a rename away; polling cannot tell.
		return []Event{{Kind: RemovedOrRenamedFrom, Path: path, Ambiguous: true}}
	case !old.exists && !now.exists:
		return nil
	}

	if old.dev != now.dev || old.ino != now.ino {
		// Same name, different file. Surfaces as a create; the consumer
		// compares identities to detect the replacement.
		return []Event{{Kind: Created, Path: path}}
	}
	if old.size != now.size || !old.mtime.Equal(now.mtime) {
		return []Event{{Kind: DataChanged, Path: path}}
	}
	if old.mode != now.mode {
		return []Event{{Kind: MetadataChanged, Path: path}}
	}
	return nil
}
