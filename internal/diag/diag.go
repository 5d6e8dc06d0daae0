// Package diag is the engine's diagnostic log sink: a rotating file that
// records invariant-violation panics the CLI recovers at the process
// boundary and failures to open the database or engine, separate from the
// plain stderr messages the
// CLI prints for ordinary command errors.
package diag

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.Mutex
	logger *lumberjack.Logger
)

// Open points the diagnostic sink at path, rotating at 10MB with 5 backups
// kept for 28 days, matching the teacher's own daemon log rotation policy.
func Open(path string) {
	mu.Lock()
	defer mu.Unlock()
	logger = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
}

// Close flushes and closes the sink, if one was opened.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return nil
	}
	err := logger.Close()
	logger = nil
	return err
}

// Errorf records a diagnostic line, timestamped, if a sink is open.
// Callers treat this as best-effort: a diag write failure must never mask
// the original error it's recording.
func Errorf(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return
	}
	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	_, _ = logger.Write([]byte(line))
}
