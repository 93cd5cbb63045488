// internal/logger/pretty.go
package logger

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap/zapcore"
)

var levelStyles = map[zapcore.Level]lipgloss.Style{
	zapcore.DebugLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")),
	zapcore.InfoLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
	zapcore.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
	zapcore.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
	zapcore.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
}

// PrettyEncoder is the console encoder for interactive use. With plain set
// levels are rendered without color, for pipes and --json runs.
func PrettyEncoder(plain bool) zapcore.Encoder {
	encodeLevel := coloredLevel
	if plain {
		encodeLevel = bracketLevel
	}
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevel,
		EncodeTime:     clockTime,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	})
}

func bracketLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

func coloredLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	style, ok := levelStyles[level]
	if !ok {
		bracketLevel(level, enc)
		return
	}
	enc.AppendString(style.Render("[" + level.CapitalString() + "]"))
}

func clockTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// ShortenSignature shortens a base58 signature for display.
func ShortenSignature(sig string) string {
	if len(sig) > 16 {
		return sig[:8] + "..." + sig[len(sig)-8:]
	}
	return sig
}
