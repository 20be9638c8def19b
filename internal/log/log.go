package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

// SetLevel adjusts the minimum level emitted by the package logger.
func SetLevel(l Level) {
	switch l {
	case LevelDebug:
		logger = logger.Level(zerolog.DebugLevel)
	case LevelInfo:
		logger = logger.Level(zerolog.InfoLevel)
	case LevelError:
		logger = logger.Level(zerolog.ErrorLevel)
	}
}

func Debug(msg string, kv ...any) {
	emit(logger.Debug(), msg, kv...)
}

func Info(msg string, kv ...any) {
	emit(logger.Info(), msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	emit(logger.Error().Err(err), msg, kv...)
}

// emit attaches kv as pairs: key, value, key, value, ...
// Non-string keys and a trailing odd value are ignored.
func emit(ev *zerolog.Event, msg string, kv ...any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
