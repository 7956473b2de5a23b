package middleware

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shrek82/jdao/core"
	"github.com/shrek82/jdao/logger"
)

// SlowLogMiddleware reports statements whose execution, cache lookups
// included, reaches Threshold.
type SlowLogMiddleware struct {
	Threshold time.Duration
	LogPath   string
	Format    logger.LogFormat

	out  logger.Logger
	file *os.File
}

// NewSlowLog creates a slow statement log writing to logPath, or to the
// standard output when logPath is empty.
func NewSlowLog(threshold time.Duration, logPath string) *SlowLogMiddleware {
	return &SlowLogMiddleware{
		Threshold: threshold,
		LogPath:   logPath,
		Format:    logger.LogFormatText,
	}
}

// SetOutput redirects the log to w. Init keeps an output set this way.
func (m *SlowLogMiddleware) SetOutput(w io.Writer) {
	m.out = logger.New(w, logger.LogLevelWarn, m.Format)
}

func (m *SlowLogMiddleware) Name() string {
	return "SlowLog"
}

func (m *SlowLogMiddleware) Init(db *core.DB) error {
	if m.out != nil {
		return nil
	}
	if m.LogPath == "" {
		m.SetOutput(os.Stdout)
		return nil
	}
	f, err := os.OpenFile(m.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open slow log %s: %w", m.LogPath, err)
	}
	m.file = f
	m.SetOutput(f)
	return nil
}

func (m *SlowLogMiddleware) Shutdown() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

func (m *SlowLogMiddleware) Process(ctx context.Context, call *core.Call, next core.Handler) (*core.Result, error) {
	start := time.Now()
	res, err := next(ctx, call)
	elapsed := time.Since(start)
	if elapsed < m.Threshold {
		return res, err
	}

	fields := make(map[string]any, len(call.Fields)+4)
	for k, v := range call.Fields {
		fields[k] = v
	}
	fields["stmt"] = call.Statement.ID
	fields["duration"] = elapsed
	if res != nil {
		fields["rows"] = res.RowsAffected
		fields["cached"] = res.Cached
	}
	if err != nil {
		fields["err"] = err
	}
	m.out.WithFields(fields).Warn("[SLOW SQL] %s | args=%v", call.Statement.SQL, call.Args)
	return res, err
}
