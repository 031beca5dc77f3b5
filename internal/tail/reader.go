package tail

import (
	"fmt"
	"io"
	"os"
)

// LineReader tracks a read cursor into one tailed file. The cursor survives
// across loop iterations so only freshly appended bytes are ever printed.
type LineReader struct {
	file     *os.File
	offset   int64
	seekable bool
}

// openReader opens path positioned at offset.
func openReader(path string, offset int64) (*LineReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &LineReader{file: f, offset: offset}
	if _, err := f.Seek(offset, io.SeekStart); err == nil {
		r.seekable = true
	}
	return r, nil
}

// newStdinReader wraps an already-open file (stdin) without repositioning.
func newStdinReader(f *os.File) *LineReader {
	r := &LineReader{file: f}
	if off, err := f.Seek(0, io.SeekCurrent); err == nil {
		r.offset = off
		r.seekable = true
	}
	return r
}

// readNew returns the bytes appended since the previous call and advances
// the cursor past them.
func (r *LineReader) readNew() ([]byte, error) {
	if r.seekable {
		if _, err := r.file.Seek(r.offset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("seek %s: %w", r.file.Name(), err)
		}
	}
	data, err := io.ReadAll(r.file)
	r.offset += int64(len(data))
	return data, err
}

// rewind moves the cursor back to the start of the file on the same handle.
// Used after truncation so the next read starts at offset 0.
func (r *LineReader) rewind() {
	r.offset = 0
}

// Close releases the underlying file.
func (r *LineReader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

const reverseBlockSize = 8192

// lastLinesOffset scans f backwards and returns the offset of the start of
// the n-th line from the end, along with the file size. A trailing newline
// terminates the last line rather than starting an empty one.
func lastLinesOffset(f *os.File, n int) (start, size int64, err error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	size = fi.Size()
	if n <= 0 {
		return size, size, nil
	}

	buf := make([]byte, reverseBlockSize)
	pos := size
	seen := 0
	skipFinal := true

	for pos > 0 {
		readLen := int64(reverseBlockSize)
		if pos < readLen {
			readLen = pos
		}
		pos -= readLen
		if _, err := f.ReadAt(buf[:readLen], pos); err != nil {
			return 0, size, err
		}
		for i := readLen - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				continue
			}
			if skipFinal && pos+i == size-1 {
				skipFinal = false
				continue
			}
			seen++
			if seen == n {
				return pos + i + 1, size, nil
			}
		}
	}
	return 0, size, nil
}

// printLastLines writes the final n lines of path to w and returns the file
// size, which is where following should resume.
func printLastLines(w io.Writer, path string, n int) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	start, size, err := lastLinesOffset(f, n)
	if err != nil {
		return 0, err
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	if _, err := io.Copy(w, f); err != nil {
		return 0, err
	}
	return size, nil
}
