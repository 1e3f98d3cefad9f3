package interfaces

// Logger is the small structured-logging contract shared by the client, the
// reconciler and the verification service. Constructors take a Logger and
// derive a component child via With, so one root logger feeds the whole
// process.
type Logger interface {
	// Debug logs fine-grained progress, such as individual polls.
	Debug(msg string, fields ...Field)

	// Info logs lifecycle events worth keeping in normal operation.
	Info(msg string, fields ...Field)

	// Warn logs recoverable trouble, such as a fallback being taken.
	Warn(msg string, fields ...Field)

	// Error logs failures that surface to the caller.
	Error(msg string, fields ...Field)

	// With returns a child logger that stamps the given fields on every
	// entry. Implementations treat a "component" field as the child's name.
	With(fields ...Field) Logger
}

// Field is one key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}
