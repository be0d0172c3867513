package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxRetainedLogFiles bounds how many daily log files RotatingFileWriter
// keeps around before it starts deleting the oldest.
const maxRetainedLogFiles = 30

// RotatingFileWriter is an io.Writer that appends to
// <dir>/<base>.log, rolling that file to <dir>/<base>.YYYY-MM-DD.log
// at the first write after midnight and pruning everything beyond
// maxRetainedLogFiles rolled files.
type RotatingFileWriter struct {
	mu   sync.Mutex
	dir  string
	base string
	day  string
	file *os.File
}

// NewRotatingFileWriter ensures dir exists and opens today's file.
func NewRotatingFileWriter(dir, base string) (*RotatingFileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("logrotate: create log dir: %w", err)
	}
	w := &RotatingFileWriter{dir: dir, base: base}
	if err := w.rollIfNeeded(time.Now()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) currentPath() string {
	return filepath.Join(w.dir, w.base+".log")
}

func (w *RotatingFileWriter) rollIfNeeded(now time.Time) error {
	today := now.Format("2006-01-02")
	if w.file != nil && w.day == today {
		return nil
	}

	if w.file != nil {
		w.file.Close()
		rolled := filepath.Join(w.dir, fmt.Sprintf("%s.%s.log", w.base, w.day))
		if err := os.Rename(w.currentPath(), rolled); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("logrotate: roll previous log: %w", err)
		}
		if err := w.prune(); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(w.currentPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("logrotate: open log file: %w", err)
	}
	w.file = f
	w.day = today
	return nil
}

// prune deletes the oldest rolled files beyond maxRetainedLogFiles.
func (w *RotatingFileWriter) prune() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("logrotate: list log dir: %w", err)
	}

	prefix := w.base + "."
	var rolled []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".log") {
			rolled = append(rolled, name)
		}
	}
	sort.Strings(rolled)

	for len(rolled) > maxRetainedLogFiles {
		if err := os.Remove(filepath.Join(w.dir, rolled[0])); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("logrotate: prune old log %s: %w", rolled[0], err)
		}
		rolled = rolled[1:]
	}
	return nil
}

// Write implements io.Writer, rolling the file first if the day changed.
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rollIfNeeded(time.Now()); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Close closes the currently open file.
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
