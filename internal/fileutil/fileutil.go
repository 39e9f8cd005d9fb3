// Package fileutil opens corpus inputs and writes export outputs, handling
// .xz compression by file extension.
package fileutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// XZExt marks an xz-compressed file.
const XZExt = ".xz"

// IsXZ reports whether path names an xz-compressed file.
func IsXZ(path string) bool {
	return strings.EqualFold(filepath.Ext(path), XZExt)
}

// Locate returns path if it exists, otherwise path+".xz" if that exists.
func Locate(path string) (string, error) {
	for _, p := range []string{path, path + XZExt} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s: %w", path, os.ErrNotExist)
}

type readCloser struct {
	io.Reader
	f *os.File
}

func (r *readCloser) Close() error {
	return r.f.Close()
}

// Open opens path for reading, decompressing it if it ends in .xz.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsXZ(path) {
		return f, nil
	}
	zr, err := xz.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &readCloser{Reader: zr, f: f}, nil
}

// AtomicFile is a file that appears at its final path only when Close
// succeeds. Data is xz-compressed if the path ends in .xz.
type AtomicFile struct {
	path string
	tmp  *os.File
	zw   *xz.Writer
	bw   *bufio.Writer
	done bool
}

// Create starts writing path. The parent directory is created if needed.
func Create(path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return nil, err
	}
	af := &AtomicFile{path: path, tmp: tmp}
	var w io.Writer = tmp
	if IsXZ(path) {
		zw, err := xz.NewWriter(tmp)
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		af.zw = zw
		w = zw
	}
	af.bw = bufio.NewWriter(w)
	return af, nil
}

func (a *AtomicFile) Write(p []byte) (int, error) {
	return a.bw.Write(p)
}

// WriteString writes s.
func (a *AtomicFile) WriteString(s string) (int, error) {
	return a.bw.WriteString(s)
}

// Close flushes the data and moves the file into place.
func (a *AtomicFile) Close() error {
	if a.done {
		return nil
	}
	a.done = true

	err := a.bw.Flush()
	if a.zw != nil {
		if cerr := a.zw.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := a.tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(a.tmp.Name(), a.path)
	}
	if err != nil {
		os.Remove(a.tmp.Name())
		return fmt.Errorf("write %s: %w", a.path, err)
	}
	return nil
}

// Abort discards everything written. It is a no-op after Close.
func (a *AtomicFile) Abort() {
	if a.done {
		return
	}
	a.done = true
	a.tmp.Close()
	os.Remove(a.tmp.Name())
}
