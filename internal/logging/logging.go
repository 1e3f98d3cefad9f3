package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/raysh454/kakunin/internal/interfaces"
)

// Logger and Field are re-exported so callers can import a single package
// for both the interface and the stdout implementation.
type (
	Logger = interfaces.Logger
	Field  = interfaces.Field
)

// Level orders log severities. A StdoutLogger drops entries below its
// configured minimum.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel maps a config string onto a Level. Unknown values fall back to
// info so a typo never silences the log.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// StdoutLogger prints one JSON object per line and implements
// interfaces.Logger. Children returned by With keep their parent's
// persistent fields, so component loggers can be layered.
type StdoutLogger struct {
	component string
	min       Level
	out       io.Writer
	persist   []Field
}

// NewStdoutLogger creates a logger that writes every level to stdout.
// component is optional and names the subsystem in each entry.
func NewStdoutLogger(component string) *StdoutLogger {
	return NewStdoutLoggerAt(component, LevelDebug)
}

// NewStdoutLoggerAt is NewStdoutLogger with a minimum level.
func NewStdoutLoggerAt(component string, min Level) *StdoutLogger {
	return &StdoutLogger{component: component, min: min, out: os.Stdout}
}

type entry struct {
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	Time      string         `json:"time"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func (s *StdoutLogger) log(level Level, msg string, fields []Field) {
	if level < s.min {
		return
	}
	m := make(map[string]any, len(s.persist)+len(fields))
	for _, f := range s.persist {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	e := entry{
		Level:     level.String(),
		Msg:       msg,
		Component: s.component,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Fields:    m,
	}
	enc, err := json.Marshal(e)
	if err != nil {
		// A field value that fails to marshal should not cost the line.
		fmt.Fprintf(s.out, "%s %s %v\n", e.Level, msg, m)
		return
	}
	fmt.Fprintln(s.out, string(enc))
}

func (s *StdoutLogger) Debug(msg string, fields ...Field) { s.log(LevelDebug, msg, fields) }
func (s *StdoutLogger) Info(msg string, fields ...Field)  { s.log(LevelInfo, msg, fields) }
func (s *StdoutLogger) Warn(msg string, fields ...Field)  { s.log(LevelWarn, msg, fields) }
func (s *StdoutLogger) Error(msg string, fields ...Field) { s.log(LevelError, msg, fields) }

// With returns a child logger that stamps the given fields on every entry.
// A "component" field renames the child instead of joining the fields.
func (s *StdoutLogger) With(fields ...Field) interfaces.Logger {
	child := &StdoutLogger{
		component: s.component,
		min:       s.min,
		out:       s.out,
		persist:   append([]Field(nil), s.persist...),
	}
	for _, f := range fields {
		if f.Key == "component" {
			if name, ok := f.Value.(string); ok {
				child.component = name
				continue
			}
		}
		child.persist = append(child.persist, f)
	}
	return child
}
