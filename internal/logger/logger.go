package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ColorScheme holds the ANSI sequences used by the console writer. The zero
// value disables color.
type ColorScheme struct {
	Reset  string
	Red    string
	Green  string
	Yellow string
	Blue   string
	Purple string
	Cyan   string
	Gray   string
	Bold   string
}

var (
	colors = ColorScheme{
		Reset:  "\033[0m",
		Red:    "\033[31m",
		Green:  "\033[32m",
		Yellow: "\033[33m",
		Blue:   "\033[34m",
		Purple: "\033[35m",
		Cyan:   "\033[36m",
		Gray:   "\033[37m",
		Bold:   "\033[1m",
	}

	noColors = ColorScheme{}
)

func (c ColorScheme) paint(color, s string) string {
	if color == "" {
		return s
	}
	return color + s + c.Reset
}

// outcomes and HTTP methods get a fixed color in console output
func (c ColorScheme) valueColor(val string) string {
	switch val {
	case "succeeded":
		return c.Green
	case "skipped":
		return c.Yellow
	case "failed":
		return c.Red
	case "GET", "POST", "OPTIONS":
		return c.Purple
	}
	if isStatusCode(val) {
		switch val[0] {
		case '2':
			return c.Green
		case '3':
			return c.Yellow
		default:
			return c.Red
		}
	}
	return ""
}

func isStatusCode(s string) bool {
	if len(s) != 3 || s[0] < '2' || s[0] > '5' {
		return false
	}
	return s[1] >= '0' && s[1] <= '9' && s[2] >= '0' && s[2] <= '9'
}

// Init configures the global zerolog logger. Interactive terminals get the
// colored console format; anything else (containers, log shippers) gets JSON
// lines. level overrides the default level for env when non-empty.
func Init(env, level string) {
	isTerminal := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	var output io.Writer = os.Stdout
	if isTerminal || env == "development" {
		scheme := noColors
		if isTerminal {
			scheme = colors
		}
		output = consoleWriter(scheme)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Str("env", env).
		Logger()

	zerolog.SetGlobalLevel(levelFor(env, level))
}

func levelFor(env, level string) zerolog.Level {
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			return parsed
		}
	}

	switch env {
	case "development":
		return zerolog.DebugLevel
	case "test":
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func consoleWriter(scheme ColorScheme) zerolog.ConsoleWriter {
	levelColors := map[string]string{
		"DEBUG": scheme.Gray,
		"INFO":  scheme.Blue,
		"WARN":  scheme.Yellow,
		"ERROR": scheme.Red,
		"FATAL": scheme.Red,
	}

	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.TimeOnly,
		NoColor:    scheme == noColors,
		FormatLevel: func(i interface{}) string {
			level := strings.ToUpper(fmt.Sprint(i))
			if color, ok := levelColors[level]; ok {
				return scheme.paint(color, "●")
			}
			return level
		},
		FormatMessage: func(i interface{}) string {
			msg := fmt.Sprintf("%-30s", i)
			switch strings.TrimSpace(msg) {
			case "request completed":
				return scheme.paint(scheme.Gray, msg)
			case "file ingested":
				return scheme.paint(scheme.Bold, msg)
			}
			return msg
		},
		FormatFieldName: func(i interface{}) string {
			return scheme.paint(scheme.Cyan, fmt.Sprint(i)) + "="
		},
		FormatFieldValue: func(i interface{}) string {
			val := fmt.Sprint(i)
			return scheme.paint(scheme.valueColor(val), val)
		},
	}
}
