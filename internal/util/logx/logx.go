package logx

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	mu       sync.Mutex
	buf      = make([]string, 0, 500)
	maxLines = 500
	// default to no stderr output to avoid breaking TUIs; enable via QUAKEVIEW_LOG_STDERR=1
	toStderr = false

	level  = new(slog.LevelVar)
	logger atomic.Pointer[slog.Logger]
)

func init() {
	logger.Store(slog.New(slog.NewTextHandler(ringWriter{}, &slog.HandlerOptions{Level: level})))
}

// ringWriter keeps the most recent formatted lines for the in-app log view.
type ringWriter struct{}

func (ringWriter) Write(p []byte) (int, error) {
	mu.Lock()
	defer mu.Unlock()
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if len(buf) >= maxLines {
			// drop oldest
			copy(buf[0:], buf[1:])
			buf = buf[:len(buf)-1]
		}
		buf = append(buf, string(line))
	}
	if toStderr {
		_, _ = os.Stderr.Write(p)
	}
	return len(p), nil
}

// Setup configures level and output format ("text" or "json"). Loggers
// obtained earlier keep their format but share the level and the ring.
func Setup(lvl, format string, stderr bool) {
	mu.Lock()
	toStderr = stderr
	mu.Unlock()
	level.Set(ParseLevel(lvl))
	var w io.Writer = ringWriter{}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		logger.Store(slog.New(slog.NewJSONHandler(w, opts)))
	} else {
		logger.Store(slog.New(slog.NewTextHandler(w, opts)))
	}
}

// SetLevelFromEnv applies QUAKEVIEW_LOG_LEVEL and QUAKEVIEW_LOG_STDERR.
func SetLevelFromEnv() {
	if lv := strings.TrimSpace(os.Getenv("QUAKEVIEW_LOG_LEVEL")); lv != "" {
		level.Set(ParseLevel(lv))
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("QUAKEVIEW_LOG_STDERR"))); v != "" {
		mu.Lock()
		toStderr = v != "0" && v != "false" && v != "no"
		mu.Unlock()
	}
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the structured logger for callers that want key/value attrs.
func Logger() *slog.Logger { return logger.Load() }

func Debugf(format string, a ...any) { Logger().Debug(fmt.Sprintf(format, a...)) }
func Infof(format string, a ...any)  { Logger().Info(fmt.Sprintf(format, a...)) }
func Warnf(format string, a ...any)  { Logger().Warn(fmt.Sprintf(format, a...)) }
func Errorf(format string, a ...any) { Logger().Error(fmt.Sprintf(format, a...)) }

func Dump() string {
	mu.Lock()
	defer mu.Unlock()
	return strings.Join(buf, "\n")
}

func Lines() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, len(buf))
	copy(out, buf)
	return out
}
