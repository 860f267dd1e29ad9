package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Name, when set, sends logs to a per-run file under Dir instead of stderr.
	Name string
	Dir  string
}

// New builds a JSON zap logger. With Options.Name set the output goes to
// Dir/<timestamp>_<name>.log, otherwise to stderr.
func New(opts Options) (*LoggerAdapter, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var (
		sink zapcore.WriteSyncer
		file *os.File
	)
	if opts.Name == "" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		dir := opts.Dir
		if dir == "" {
			dir = "log"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), sanitize(opts.Name))
		file, err = os.Create(filepath.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		sink = zapcore.AddSync(file)
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level)
	return &LoggerAdapter{log: zap.New(core).Sugar(), file: file}, nil
}

// NewNop discards everything.
func NewNop() *LoggerAdapter {
	return &LoggerAdapter{log: zap.NewNop().Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{log: l.Sugar()}
}

// sanitize makes a run name safe to use in a file name.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "run"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
