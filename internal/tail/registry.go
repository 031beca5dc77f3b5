package tail

import (
	"fmt"
	"io"
	"os"
)

// PathData is the tracked state for one monitored path. The metadata
// snapshot and the reader are independent: a path can be known but unread
// (reader detached after its file went away) and its identity can be
// unknown until first observed. A non-nil reader implies a non-nil
// metadata snapshot.
type PathData struct {
	displayName string
	md          os.FileInfo
	reader      *LineReader
}

// Registry maps canonical paths to their tracked state. It is owned and
// mutated exclusively by the follow loop's goroutine, so it needs no
// locking. It also remembers which file was printed last so that headers
// are only emitted when output switches files.
type Registry struct {
	paths map[string]*PathData
	order []string
	last  string

	out io.Writer

	// headerPrinted tracks whether any header was emitted yet; the first
	// one is not preceded by a blank line.
	headerPrinted bool
}

func newRegistry(out io.Writer) *Registry {
	return &Registry{
		paths: make(map[string]*PathData),
		out:   out,
	}
}

// Insert adds or replaces the entry for path. When updateLast is set the
// path is also recorded as the most recently printed one, suppressing a
// redundant header on the next read.
func (reg *Registry) Insert(path string, pd *PathData, updateLast bool) {
	if _, ok := reg.paths[path]; !ok {
		reg.order = append(reg.order, path)
	}
	reg.paths[path] = pd
	if updateLast {
		reg.last = path
	}
}

// Get returns the entry for path, or nil.
func (reg *Registry) Get(path string) *PathData {
	return reg.paths[path]
}

// Contains reports whether path is tracked.
func (reg *Registry) Contains(path string) bool {
	_, ok := reg.paths[path]
	return ok
}

// Remove drops the entry for path, closing any attached reader.
func (reg *Registry) Remove(path string) {
	if pd, ok := reg.paths[path]; ok && pd.reader != nil {
		pd.reader.Close()
	}
	delete(reg.paths, path)
	for i, p := range reg.order {
		if p == path {
			reg.order = append(reg.order[:i], reg.order[i+1:]...)
			break
		}
	}
	if reg.last == path {
		reg.last = ""
	}
}

// Rename moves the entry from oldPath to newPath, keeping reader and
// metadata intact. Used for rename-both continuity in descriptor mode.
func (reg *Registry) Rename(oldPath, newPath string) {
	pd, ok := reg.paths[oldPath]
	if !ok {
		return
	}
	delete(reg.paths, oldPath)
	reg.paths[newPath] = pd
	for i, p := range reg.order {
		if p == oldPath {
			reg.order[i] = newPath
			break
		}
	}
	if reg.last == oldPath {
		reg.last = newPath
	}
}

// Keys returns the tracked paths in first-registered order.
func (reg *Registry) Keys() []string {
	out := make([]string, len(reg.order))
	copy(out, reg.order)
	return out
}

// updateReader (re)opens the reader for path from offset 0, replacing any
// previous handle. Called when a file appears, becomes accessible again,
// or is replaced by a new file under the same name.
func (reg *Registry) updateReader(path string) error {
	pd, ok := reg.paths[path]
	if !ok {
		return fmt.Errorf("not tracked: %s", path)
	}
	if pd.reader != nil {
		pd.reader.Close()
		pd.reader = nil
	}
	r, err := openReader(path, 0)
	if err != nil {
		return err
	}
	pd.reader = r
	return nil
}

// resetReader detaches the reader for path without dropping the entry, so
// tracking can resume if the file comes back.
func (reg *Registry) resetReader(path string) {
	if pd, ok := reg.paths[path]; ok && pd.reader != nil {
		pd.reader.Close()
		pd.reader = nil
	}
}

// updateMetadata replaces the metadata snapshot for path.
func (reg *Registry) updateMetadata(path string, md os.FileInfo) {
	if pd, ok := reg.paths[path]; ok {
		pd.md = md
	}
}

// printHeader emits the "==> name <==" separator used when output switches
// between files.
func (reg *Registry) printHeader(name string) {
	if reg.headerPrinted {
		fmt.Fprintf(reg.out, "\n==> %s <==\n", name)
	} else {
		fmt.Fprintf(reg.out, "==> %s <==\n", name)
		reg.headerPrinted = true
	}
}

// TailFile reads whatever has been appended to path since the last pass and
// writes it out, preceded by a header when verbose and the active file
// changed. Returns whether anything was read.
func (reg *Registry) TailFile(path string, verbose bool) (bool, error) {
	pd, ok := reg.paths[path]
	if !ok || pd.reader == nil {
		return false, nil
	}

	data, err := pd.reader.readNew()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", pd.displayName, err)
	}
	if len(data) == 0 {
		return false, nil
	}

	if verbose && reg.last != path {
		reg.printHeader(pd.displayName)
	}
	reg.last = path
	if _, err := reg.out.Write(data); err != nil {
		return false, fmt.Errorf("write output: %w", err)
	}
	return true, nil
}

// FilesRemaining reports whether any tracked path is still a live source:
// either a reader is attached or the path currently names a tailable file.
func (reg *Registry) FilesRemaining() bool {
	for path, pd := range reg.paths {
		if pd.reader != nil || pathIsTailable(path) {
			return true
		}
	}
	return false
}

// NoFilesRemaining reports whether every trackable source is gone. Under
// retry, missing files are expected to come back, so only an empty registry
// counts.
func (reg *Registry) NoFilesRemaining(retry bool) bool {
	if len(reg.paths) == 0 {
		return true
	}
	if retry {
		return false
	}
	return !reg.FilesRemaining()
}

// OnlyStdinRemaining reports whether standard input is the sole tracked
// source.
func (reg *Registry) OnlyStdinRemaining() bool {
	if len(reg.paths) == 0 {
		return false
	}
	for path := range reg.paths {
		if path != stdinName {
			return false
		}
	}
	return true
}
