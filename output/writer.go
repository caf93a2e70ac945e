package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/s0up4200/splatctl/fetcher"
)

// Indent is the JSON indentation of a written result set
const Indent = "    "

// Sink receives the final result set
type Sink interface {
	Write(rs fetcher.ResultSet) error
}

// Writer writes result sets as indented JSON
type Writer struct {
	mu        sync.Mutex
	path      string
	output    io.Writer
	closeFunc func() error
	written   bool
}

// NewWriter creates a Writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{output: w}
}

// NewFileWriter creates a Writer for the file at path. The file is created
// or truncated by the first Write, so an existing file is left untouched
// when nothing is written. The caller must call Close when done.
func NewFileWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open output directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("output directory %s is not a directory", dir)
	}

	return &Writer{path: path}, nil
}

// Open returns a Writer on path, or on stdout when path is empty or "-"
func Open(path string, stdout io.Writer) (*Writer, error) {
	if path == "" || path == "-" {
		return NewWriter(stdout), nil
	}
	return NewFileWriter(path)
}

// Write encodes rs. A nil result set is written as an empty array.
func (w *Writer) Write(rs fetcher.ResultSet) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rs == nil {
		rs = fetcher.ResultSet{}
	}

	if w.output == nil {
		file, err := os.Create(w.path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		w.output = file
		w.closeFunc = file.Close
	}

	enc := json.NewEncoder(w.output)
	enc.SetIndent("", Indent)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	w.written = true
	return nil
}

// Written reports whether a result set was written
func (w *Writer) Written() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close closes the underlying file, if any
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closeFunc != nil {
		err := w.closeFunc()
		w.closeFunc = nil
		return err
	}
	return nil
}
