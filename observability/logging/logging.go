package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// levelEnv selects the minimum log level; anything unrecognised means info.
const levelEnv = "PROMPT_LOG_LEVEL"

// Setup installs a JSON slog logger as the process default and returns it.
// Every line carries the service name and, when non-empty, the network the
// node serves. The standard library logger is bridged onto the same handler
// so third-party packages logging through log.Printf land in the stream too.
func Setup(service, network string) *slog.Logger {
	return setup(os.Stdout, service, network, os.Getenv(levelEnv))
}

func setup(w io.Writer, service, network, levelRaw string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(levelRaw),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if network = strings.TrimSpace(network); network != "" {
		attrs = append(attrs, slog.String("network", network))
	}

	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	base := slog.New(handler).With(args...)
	slog.SetDefault(base)

	bridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	bridge.SetFlags(0)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// ParseLevel maps the PROMPT_LOG_LEVEL value onto a slog level, defaulting to
// info for empty or unknown values.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
