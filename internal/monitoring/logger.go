// Package monitoring holds the process-wide diagnostic logger and the stage
// timer used by the stereo pipeline.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests mute it; commands may redirect it to a file.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// RedirectToFile appends Logf output to path. The returned closer restores
// the previous logger and closes the file.
func RedirectToFile(path string) (io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	previous := Logf
	Logf = log.New(f, "", log.LstdFlags|log.Lmicroseconds).Printf
	return &fileLog{f: f, previous: previous}, nil
}

type fileLog struct {
	f        *os.File
	previous func(format string, v ...interface{})
}

func (l *fileLog) Close() error {
	Logf = l.previous
	return l.f.Close()
}
