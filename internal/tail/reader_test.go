package tail

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReaderReadsOnlyNewBytes(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "grow.log")
	if err := os.WriteFile(file, []byte("one\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	r, err := openReader(file, 4)
	if err != nil {
		t.Fatalf("openReader failed: %v", err)
	}
	defer r.Close()

	data, err := r.readNew()
	if err != nil {
		t.Fatalf("readNew failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected no new bytes, got %q", data)
	}

	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("Failed to open for append: %v", err)
	}
	f.WriteString("two\n")
	f.Close()

	data, err = r.readNew()
	if err != nil {
		t.Fatalf("readNew failed: %v", err)
	}
	if string(data) != "two\n" {
		t.Errorf("readNew = %q, want %q", data, "two\n")
	}
}

func TestReaderRewindRereadsFromStart(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "rewind.log")
	if err := os.WriteFile(file, []byte("abc\n"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	r, err := openReader(file, 4)
	if err != nil {
		t.Fatalf("openReader failed: %v", err)
	}
	defer r.Close()

	r.rewind()
	data, err := r.readNew()
	if err != nil {
		t.Fatalf("readNew failed: %v", err)
	}
	if string(data) != "abc\n" {
		t.Errorf("readNew after rewind = %q, want %q", data, "abc\n")
	}
}

func TestLastLinesOf(t *testing.T) {
	tests := []struct {
		name string
		data string
		n    int
		want string
	}{
		{"empty", "", 10, ""},
		{"fewer than n", "a\nb\n", 10, "a\nb\n"},
		{"exactly n", "a\nb\n", 2, "a\nb\n"},
		{"more than n", "a\nb\nc\n", 2, "b\nc\n"},
		{"no trailing newline", "a\nb\nc", 2, "b\nc"},
		{"single line", "only\n", 1, "only\n"},
		{"zero", "a\nb\n", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(lastLinesOf([]byte(tt.data), tt.n))
			if got != tt.want {
				t.Errorf("lastLinesOf(%q, %d) = %q, want %q", tt.data, tt.n, got, tt.want)
			}
		})
	}
}

func TestPrintLastLines(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "ten.log")

	var content strings.Builder
	for i := 0; i < 25; i++ {
		content.WriteString(strings.Repeat("x", i))
		content.WriteString("\n")
	}
	if err := os.WriteFile(file, []byte(content.String()), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	var out bytes.Buffer
	size, err := printLastLines(&out, file, 3)
	if err != nil {
		t.Fatalf("printLastLines failed: %v", err)
	}
	if size != int64(content.Len()) {
		t.Errorf("size = %d, want %d", size, content.Len())
	}

	want := strings.Repeat("x", 22) + "\n" + strings.Repeat("x", 23) + "\n" + strings.Repeat("x", 24) + "\n"
	if out.String() != want {
		t.Errorf("printLastLines output = %q, want %q", out.String(), want)
	}
}

func TestPrintLastLinesSpansBlocks(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "big.log")

	// Lines longer than the reverse-scan block size.
	line := strings.Repeat("y", reverseBlockSize+100) + "\n"
	data := "first\n" + line + line
	if err := os.WriteFile(file, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	var out bytes.Buffer
	if _, err := printLastLines(&out, file, 2); err != nil {
		t.Fatalf("printLastLines failed: %v", err)
	}
	if out.String() != line+line {
		t.Errorf("printLastLines returned %d bytes, want %d", out.Len(), 2*len(line))
	}
}
