package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const defaultMaxSize = 5 * 1024 * 1024 // 5MB

// FileWriter appends to a log file and rotates it in place once it
// grows past maxSize, keeping a single .old backup.
type FileWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

// Setup routes the standard logger to both stdout and a rotating file.
// Pass maxSize <= 0 for the default cap.
func Setup(logPath string, maxSize int64) (*FileWriter, error) {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	w := &FileWriter{
		file:    f,
		path:    logPath,
		size:    size,
		maxSize: maxSize,
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(io.MultiWriter(os.Stdout, w))
	return w, nil
}

func (w *FileWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err = w.file.Write(p)
	w.size += int64(n)

	if w.size > w.maxSize {
		w.rotate()
	}
	return n, err
}

func (w *FileWriter) rotate() {
	w.file.Close()
	os.Rename(w.path, w.path+".old")

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}
	w.file = f
	w.size = 0
}

func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
