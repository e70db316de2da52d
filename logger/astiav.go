package logger

import (
	"strings"

	"github.com/asticode/go-astiav"
)

func LogLevelToAstiav(level Level) astiav.LogLevel {
	switch level {
	case LevelFatal:
		return astiav.LogLevelFatal
	case LevelPanic:
		return astiav.LogLevelPanic
	case LevelError:
		return astiav.LogLevelError
	case LevelWarning:
		return astiav.LogLevelWarning
	case LevelInfo:
		return astiav.LogLevelInfo
	case LevelDebug:
		return astiav.LogLevelVerbose
	case LevelTrace:
		return astiav.LogLevelDebug
	default:
		return astiav.LogLevelQuiet
	}
}

func LogLevelFromAstiav(level astiav.LogLevel) Level {
	switch level {
	case astiav.LogLevelQuiet:
		return LevelUndefined
	case astiav.LogLevelFatal:
		return LevelFatal
	case astiav.LogLevelPanic:
		return LevelPanic
	case astiav.LogLevelError:
		return LevelError
	case astiav.LogLevelWarning:
		return LevelWarning
	case astiav.LogLevelInfo:
		return LevelInfo
	case astiav.LogLevelVerbose:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// InstallAstiavLogCallback redirects libav logging into l.
func InstallAstiavLogCallback(l Logger) {
	astiav.SetLogLevel(LogLevelToAstiav(l.Level()))
	astiav.SetLogCallback(func(c astiav.Classer, level astiav.LogLevel, fmt, msg string) {
		var cs string
		if c != nil {
			if cl := c.Class(); cl != nil {
				cs = " - class: " + cl.String()
			}
		}
		l.Logf(
			LogLevelFromAstiav(level),
			"%s%s",
			strings.TrimSpace(msg), cs,
		)
	})
}
