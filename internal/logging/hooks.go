package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"
)

// Hook writes formatted entries to a writer for a set of levels. The
// entry's own formatter is used.
type Hook struct {
	Writer    io.Writer
	LogLevels []logrus.Level

	mu sync.Mutex
}

func (h *Hook) Levels() []logrus.Level { return h.LogLevels }

func (h *Hook) Fire(e *logrus.Entry) error {
	b, err := e.Logger.Formatter.Format(e)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.Writer.Write(b)
	return err
}

// NewLogFileHook creates a hook that writes every level to a file using its
// own formatter.
func NewLogFileHook(w io.Writer, f logrus.Formatter) *FileHook {
	return &FileHook{w: w, formatter: f}
}

type FileHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
}

func (fh *FileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (fh *FileHook) Fire(e *logrus.Entry) error {
	b, err := fh.formatter.Format(e)
	if err != nil {
		return err
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()
	_, err = fh.w.Write(b)
	return err
}

// IsTerm returns true if the writer is a terminal.
func IsTerm(w io.Writer) bool {
	switch v := w.(type) {
	case *os.File:
		return terminal.IsTerminal(int(v.Fd()))
	default:
		return false
	}
}
