package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

const (
	ansiCodeReset     = "\033[0m"
	ansiCodeRed       = "\033[31m"
	ansiCodeGreen     = "\033[32m"
	ansiCodeYellow    = "\033[33m"
	ansiCodeCyan      = "\033[36m"
	ansiCodeGray      = "\033[90m"
	ansiCodeUnderline = "\033[4m"
)

//nolint:gochecknoglobals
var ansiCodeMap = map[slog.Level]string{
	slog.LevelDebug: ansiCodeCyan,
	slog.LevelInfo:  ansiCodeGreen,
	slog.LevelWarn:  ansiCodeYellow,
	slog.LevelError: ansiCodeRed,
}

// ConsoleHandler implements slog.Handler with human-readable, optionally
// colored output for terminals and log files.
type ConsoleHandler struct {
	// Output is the destination for log output.
	Output io.Writer
	// Level is the minimum level for log records to be processed.
	Level slog.Leveler
	// PkgLevels maps logger names to minimum log levels.
	// The longest matching dotted prefix wins; "" matches everything.
	PkgLevels map[string]slog.Level
	// NoColor disables ANSI escape codes.
	NoColor bool

	attrs  []slog.Attr
	groups []string
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(ctx context.Context, r slog.Record) error {
	var attrs []slog.Attr

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)

		return true
	})

	attrs = append(attrs, h.attrs...)

	if !h.pkgEnabled(attrs, r.Level) {
		return nil
	}

	logMessage := h.paint(ansiCodeGray, r.Time.Format("15:04:05.000000"))
	logMessage += " " + h.paint(ansiCodeMap[r.Level], "["+r.Level.String()+"]")
	logMessage += " " + r.Message

	var prefix string

	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}

	if len(attrs) > 0 {
		logMessage += " " + h.paint(ansiCodeGray, "|")
		logMessage += h.renderAttrs(prefix, attrs)
	}

	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		fn := strings.Split(f.Function, string(os.PathSeparator))

		logMessage += "\n-> " + h.paint(ansiCodeGray, fn[len(fn)-1]+"()")
		logMessage += " in " + h.paint(ansiCodeUnderline, f.File+":"+strconv.Itoa(f.Line))
	}

	_, err := fmt.Fprintln(h.Output, logMessage)

	//nolint:wrapcheck
	return err
}

func (h *ConsoleHandler) pkgEnabled(attrs []slog.Attr, level slog.Level) bool {
	var pkg string

	for _, attr := range attrs {
		if attr.Key == "logger" {
			pkg = attr.Value.String()

			break
		}
	}

	pkgParts := strings.Split(pkg, ".")

	for i := 0; i <= len(pkgParts); i++ {
		var key string
		if i < len(pkgParts) {
			key = strings.Join(pkgParts[:len(pkgParts)-i], ".")
		}

		if minLevel, ok := h.PkgLevels[key]; ok {
			return level >= minLevel
		}
	}

	return true
}

func (h *ConsoleHandler) paint(code, s string) string {
	if h.NoColor || code == "" {
		return s
	}

	return code + s + ansiCodeReset
}

func (h *ConsoleHandler) renderAttrs(prefix string, attrs []slog.Attr) (out string) {
	for _, attr := range attrs {
		if attr.Value.Kind() == slog.KindGroup {
			out += h.renderAttrs(prefix+attr.Key+".", attr.Value.Group())

			continue
		}

		out += " " + prefix + attr.Key
		out += "=" + h.paint(ansiCodeGray, attr.Value.String())
	}

	return
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		NoColor:   h.NoColor,
		attrs:     append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		groups:    h.groups,
	}
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) Handler {
	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		NoColor:   h.NoColor,
		attrs:     h.attrs,
		groups:    append(h.groups[:len(h.groups):len(h.groups)], name),
	}
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.Level.Level() <= level
}
