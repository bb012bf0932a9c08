// Package logger provides the broker's colorized slog handler. The
// handler is synchronous and owns no files: an embeddable core must not spin up background log writers or
// rotate files on the host's behalf by default. A host that wants
// rotation supplies its own io.Writer, or its own slog.Handler
// entirely.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// LevelFatal extends slog's level scale for a FatalF that still goes
// through the same handler.
const LevelFatal slog.Level = 12

// ColorHandler formats each record as a single colorized line and
// writes it synchronously, guarded by a mutex since the broker logs
// from multiple session goroutines concurrently.
type ColorHandler struct {
	mu     sync.Mutex
	writer io.Writer
	attrs  []slog.Attr
	group  string
	level  slog.Level
}

// NewColorHandler builds a ColorHandler writing to w, emitting records
// at level and above.
func NewColorHandler(w io.Writer, level slog.Level) *ColorHandler {
	return &ColorHandler{writer: w, level: level}
}

func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(color.HiBlackString(r.Time.Format("15:04:05.000")))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	for _, attr := range h.attrs {
		h.writeAttr(&b, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		h.writeAttr(&b, attr)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

// levelTag renders a fixed-width colored level marker. Thresholds
// rather than exact matches, so custom levels between the standard
// ones still land on a sensible tag.
func levelTag(l slog.Level) string {
	switch {
	case l >= LevelFatal:
		return color.HiRedString("FATAL")
	case l >= slog.LevelError:
		return color.RedString("ERROR")
	case l >= slog.LevelWarn:
		return color.YellowString("WARN ")
	case l >= slog.LevelInfo:
		return color.BlueString("INFO ")
	default:
		return color.MagentaString("DEBUG")
	}
}

func (h *ColorHandler) writeAttr(b *strings.Builder, attr slog.Attr) {
	key := attr.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	b.WriteByte(' ')
	b.WriteString(color.CyanString(key))
	b.WriteByte('=')
	fmt.Fprintf(b, "%v", attr.Value)
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	newAttrs = append(newAttrs, attrs...)
	return &ColorHandler{writer: h.writer, attrs: newAttrs, group: h.group, level: h.level}
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{writer: h.writer, attrs: h.attrs, group: name, level: h.level}
}

// New builds an slog.Logger around a ColorHandler writing to w, at
// debug or info level.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(NewColorHandler(w, level))
}

// Discard is the broker's no-op default sink.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetDefault installs l as slog's package-level default, so the
// DebugF/InfoF/... helpers below reach it.
func SetDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

func Debug(msg string, v ...any) {
	slog.Debug(msg, v...)
}

func DebugF(msg string, v ...any) {
	slog.Debug(fmt.Sprintf(msg, v...))
}

func Info(msg string, v ...any) {
	slog.Info(msg, v...)
}

func InfoF(msg string, v ...any) {
	slog.Info(fmt.Sprintf(msg, v...))
}

func Warn(msg string, v ...any) {
	slog.Warn(msg, v...)
}

func WarnF(msg string, v ...any) {
	slog.Warn(fmt.Sprintf(msg, v...))
}

func Error(msg string, v ...any) {
	slog.Error(msg, v...)
}

func ErrorF(msg string, v ...any) {
	slog.Error(fmt.Sprintf(msg, v...))
}

func Fatal(msg string, v ...any) {
	slog.Log(context.Background(), LevelFatal, msg, v...)
}

func FatalF(msg string, v ...any) {
	slog.Log(context.Background(), LevelFatal, fmt.Sprintf(msg, v...))
}
