// Package logger provides the process-wide zerolog root with opinionated defaults,
// an optional file tee and run-scoped child loggers
package logger

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"quakeingest/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// DefaultFile is where the CLI tees its log lines unless LOG_FILE says otherwise
const DefaultFile = "debug.log"

// Options configures the logger
type Options struct {
	Level        string
	Format       string // console | json
	Service      string
	File         string // when set, every line is also appended to this path
	Writer       io.Writer
	WithCaller   bool
	StaticFields map[string]string
}

// FromEnv builds Options using the logging-free raw config view (no cycles)
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:      strings.ToLower(rc.Get("LEVEL", "info")),
		Format:     strings.ToLower(rc.Get("FORMAT", "console")),
		Service:    rc.Get("SERVICE", "quakeingest"),
		File:       rc.Get("FILE", ""),
		WithCaller: rc.GetBool("CALLER", false),
	}
}

// verbosity levels selected by the single CLI argument, indexed by its value
var verbosity = [...]string{"info", "debug", "error"}

// LevelForVerbosity maps the CLI verbosity argument to a level name.
// Missing, non-numeric or out of range values select info
func LevelForVerbosity(arg string) string {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 0 || n >= len(verbosity) {
		return verbosity[0]
	}
	return verbosity[n]
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
	sink   io.Closer // open log file, if any
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// Get returns the process-wide root logger as a pointer
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init configures zerolog and builds the root logger, safe to call once
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		var out io.Writer = os.Stdout
		if opt.Writer != nil {
			out = opt.Writer
		}
		out = format(out, opt.Format, false)

		var fileErr error
		if opt.File != "" {
			f, err := os.OpenFile(opt.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				fileErr = err
			} else {
				sink = f
				out = zerolog.MultiLevelWriter(out, format(f, opt.Format, true))
			}
		}

		ctx := zerolog.New(out).Level(parseLevel(opt.Level)).With().Timestamp()
		if opt.Service != "" {
			ctx = ctx.Str("service", opt.Service)
		}
		for k, v := range opt.StaticFields {
			ctx = ctx.Str(k, v)
		}

		log := ctx.Logger()
		if opt.WithCaller {
			log = log.With().Caller().Logger()
		}

		root.Store(&log)
		inited.Store(true)

		if fileErr != nil {
			log.Warn().Err(fileErr).Str("file", opt.File).Msg("log file unavailable; logging to stdout only")
		}
	})
}

// Close flushes and closes the log file opened by Init, if any
func Close() error {
	if sink == nil {
		return nil
	}
	return sink.Close()
}

func format(w io.Writer, f string, noColor bool) io.Writer {
	if f != "console" {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: noColor}
}

// parseLevel supports string-only levels
func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

type ctxKey struct{ name string }

var (
	keyRunID  = ctxKey{"run_id"}
	keyWindow = ctxKey{"window"}
)

// WithRun annotates ctx with the id of the current ingestion run
func WithRun(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, keyRunID, runID)
}

// WithWindow annotates ctx with the label of the sub-range being ingested
func WithWindow(ctx context.Context, label string) context.Context {
	if label == "" {
		return ctx
	}
	return context.WithValue(ctx, keyWindow, label)
}

// C returns a child logger enriched from ctx (run_id, window)
func C(ctx context.Context) *Logger {
	builder := Get().With()
	if s, ok := ctx.Value(keyRunID).(string); ok && s != "" {
		builder = builder.Str("run_id", s)
	}
	if s, ok := ctx.Value(keyWindow).(string); ok && s != "" {
		builder = builder.Str("window", s)
	}
	ll := builder.Logger()
	return &ll
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
