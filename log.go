package terrain

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var (
	loggerOnce sync.Once
	pkgLogger  atomic.Pointer[log.Logger]
)

// Logger returns the package logger used by Generators created without
// [WithLogger].
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "terrain",
		})
		pkgLogger.CompareAndSwap(nil, l)
	})
	return pkgLogger.Load()
}

// SetLogger replaces the package logger. A nil logger discards all output.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard)
	}
	loggerOnce.Do(func() {})
	pkgLogger.Store(l)
}
