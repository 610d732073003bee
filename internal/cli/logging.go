package cli

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/hammamikhairi/badbar/internal/logger"
)

// openLog directs logs to path so the terminal UI stays clean. "stderr"
// or an empty path log to fallback instead. Go's default log package is
// redirected to the same place for third-party libraries that use it.
func openLog(path string, level logger.Level, fallback io.Writer) (*logger.Logger, func() error, error) {
	out := fallback
	closeFn := func() error { return nil }

	if path != "" && path != "stderr" && level != logger.LevelOff {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating log directory: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	log := logger.New(level, out)
	stdlog.SetOutput(log.Writer())
	stdlog.SetFlags(stdlog.Ltime)
	return log, closeFn, nil
}
