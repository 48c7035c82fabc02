package logger

import "sync"

// LoggerInstance is a logging backend. Keyvals are alternating key/value
// pairs as understood by charmbracelet/log.
type LoggerInstance interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger fans every call out to its backends.
type Logger struct {
	instances []LoggerInstance
	fields    []any
}

var (
	mu        sync.RWMutex
	singleton *Logger
)

func getSingleton() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return singleton
}

// Init installs the global logger. Calls made before Init are dropped, which
// keeps library packages silent in tests.
func Init(instances ...LoggerInstance) {
	mu.Lock()
	defer mu.Unlock()
	singleton = &Logger{
		instances: instances,
	}
}

// With returns a logger that prefixes every call with the given keyvals.
// The returned value is detached from later Init calls.
func With(keyvals ...any) *Logger {
	base := getSingleton()
	if base == nil {
		return &Logger{fields: keyvals}
	}
	fields := make([]any, 0, len(base.fields)+len(keyvals))
	fields = append(fields, base.fields...)
	fields = append(fields, keyvals...)
	return &Logger{instances: base.instances, fields: fields}
}

func (l *Logger) merge(keyvals []any) []any {
	if len(l.fields) == 0 {
		return keyvals
	}
	out := make([]any, 0, len(l.fields)+len(keyvals))
	out = append(out, l.fields...)
	return append(out, keyvals...)
}

func (l *Logger) Log(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Log(message, kv...)
	}
}

func (l *Logger) Debug(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Debug(message, kv...)
	}
}

func (l *Logger) Info(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Info(message, kv...)
	}
}

func (l *Logger) Warn(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Warn(message, kv...)
	}
}

func (l *Logger) Error(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Error(message, kv...)
	}
}

func (l *Logger) Fatal(message string, keyvals ...any) {
	kv := l.merge(keyvals)
	for _, instance := range l.instances {
		instance.Fatal(message, kv...)
	}
}

// Log writes a message at the default level to all configured backends.
func Log(message string, keyvals ...any) {
	if l := getSingleton(); l != nil {
		l.Log(message, keyvals...)
	}
}

// Debug writes a message at DEBUG level to all configured backends.
func Debug(message string, keyvals ...any) {
	if l := getSingleton(); l != nil {
		l.Debug(message, keyvals...)
	}
}

// Info writes a message at INFO level to all configured backends.
func Info(message string, keyvals ...any) {
	if l := getSingleton(); l != nil {
		l.Info(message, keyvals...)
	}
}

// Warn writes a message at WARN level to all configured backends.
func Warn(message string, keyvals ...any) {
	if l := getSingleton(); l != nil {
		l.Warn(message, keyvals...)
	}
}

// Error writes a message at ERROR level to all configured backends.
func Error(message string, keyvals ...any) {
	if l := getSingleton(); l != nil {
		l.Error(message, keyvals...)
	}
}

// Fatal writes a message at FATAL level. The console backend exits the
// process afterwards.
func Fatal(message string, keyvals ...any) {
	if l := getSingleton(); l != nil {
		l.Fatal(message, keyvals...)
	}
}
