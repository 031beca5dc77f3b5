package tail

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/TFMV/trail/internal/notify"
)

// drainAttempts bounds the burst-coalescing drain after each received
// event, so a flood of events for one path collapses into a single read
// pass without starving the timeout path.
const drainAttempts = 8

// Follow runs the main follow loop until a terminal condition: no trackable
// source remains, the monitored process dies, or a fatal backend error.
func Follow(o *Observer, settings *Settings) error {
	settings.normalize()

	if o.files.NoFilesRemaining(o.retry) && !o.files.OnlyStdinRemaining() {
		return ErrNoFilesRemaining
	}
	if o.backend == nil {
		return errors.New("observer not started")
	}

	timeoutCounter := 0

	for {
		if o.files.NoFilesRemaining(o.retry) && !o.files.OnlyStdinRemaining() {
			return ErrNoFilesRemaining
		}

		// With --pid, liveness is checked at least once per interval. The
		// monitored process ending is not itself an error.
		if o.pid != 0 && pidIsDead(o.pid) {
			return nil
		}

		if o.followNameRetry() {
			if err := o.scanOrphans(settings); err != nil {
				return err
			}
		}

		var paths []string
		select {
		case ev, ok := <-o.backend.Events():
			if !ok {
				return errors.New("event channel closed")
			}
			timeoutCounter = 0
			ps, err := o.handleEvent(ev, settings)
			if err != nil {
				return err
			}
			paths = append(paths, ps...)

			// Fold any already-queued events into the same pass.
			for i := 0; i < drainAttempts; i++ {
				select {
				case ev, ok := <-o.backend.Events():
					if !ok {
						return errors.New("event channel closed")
					}
					ps, err := o.handleEvent(ev, settings)
					if err != nil {
						return err
					}
					paths = append(paths, ps...)
				default:
					runtime.Gosched()
				}
			}

		case err := <-o.backend.Errors():
			timeoutCounter = 0
			if fatal := o.handleBackendError(err); fatal != nil {
				return fatal
			}

		case <-time.After(settings.SleepInterval):
			timeoutCounter++
		}

		if o.usePolling && o.follow != FollowNone {
			// The polling backend does not recognize renames, so every
			// tracked path is checked for new content every cycle.
			paths = o.files.Keys()
		}

		for _, path := range dedupe(paths) {
			if _, err := o.files.TailFile(path, settings.Verbose); err != nil {
				return err
			}
		}

		if timeoutCounter == settings.MaxUnchangedStats {
			// Re-stat-after-N-unchanged-iterations is intentionally not
			// implemented; the counter exists so the reset-on-event
			// behavior stays observable.
			_ = timeoutCounter
		}
	}
}

// scanOrphans promotes orphaned paths that have become tailable. Paths are
// never removed from the orphan set merely because they became available;
// the set records that a path has ever been orphaned.
func (o *Observer) scanOrphans(settings *Settings) error {
	for _, path := range o.orphans {
		if !pathExists(path) || !o.files.Contains(path) {
			continue
		}
		pd := o.files.Get(path)
		md, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !isTailable(md) || pd.reader != nil {
			continue
		}
		o.logger.Info("file has appeared, following new file",
			zap.String("file", pd.displayName))
		o.files.updateMetadata(path, md)
		if err := o.files.updateReader(path); err != nil {
			return err
		}
		if _, err := o.files.TailFile(path, settings.Verbose); err != nil {
			return err
		}
		if err := notify.WatchWithParent(o.backend, path); err != nil {
			return err
		}
	}
	return nil
}

// handleBackendError applies the error taxonomy: a not-found error tied to
// a tracked path is recoverable, resource exhaustion and anything else are
// fatal.
func (o *Observer) handleBackendError(err error) error {
	var be *notify.BackendError
	if errors.As(err, &be) && be.Path != "" && errors.Is(be.Err, fs.ErrNotExist) {
		if o.files.Contains(be.Path) {
			o.backend.Unwatch(be.Path)
		}
		return nil
	}
	if notify.IsResourceExhausted(err) {
		return fmt.Errorf("backend resources exhausted: %w", err)
	}
	return fmt.Errorf("backend error: %w", err)
}

// dedupe keeps the first occurrence of each path, preserving order.
func dedupe(paths []string) []string {
	if len(paths) < 2 {
		return paths
	}
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
