package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
)

const (
	LevelTrace = slog.LevelDebug - 4
	LevelNone  = slog.LevelError + 8
)

var levelColors = map[slog.Level]*color.Color{
	LevelTrace:      tagColor(color.FgHiBlack),
	slog.LevelDebug: tagColor(color.FgCyan),
	slog.LevelInfo:  tagColor(color.FgGreen),
	slog.LevelWarn:  tagColor(color.FgYellow),
	slog.LevelError: tagColor(color.FgRed),
}

// tagColor ignores color.NoColor; the handler decides per writer.
func tagColor(attr color.Attribute) *color.Color {
	c := color.New(attr)
	c.EnableColor()
	return c
}

// ParseLevel maps trace, debug, info, warn, error and none to a level.
// Unknown names report false and fall back to none.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "none", "":
		return LevelNone, true
	default:
		return LevelNone, false
	}
}

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelDebug:
		return "TRACE"
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Handler writes one line per record: time, bracketed level tag, message
// and key=value attributes.
type Handler struct {
	level  slog.Leveler
	color  bool
	mu     *sync.Mutex
	w      io.Writer
	attrs  []slog.Attr
	prefix string // dotted group path
}

func NewHandler(w io.Writer, level slog.Leveler, colored bool) *Handler {
	return &Handler{level: level, color: colored, mu: &sync.Mutex{}, w: w}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format("2006/01/02 15:04:05"))
		b.WriteByte(' ')
	}

	tag := fmt.Sprintf("%-5s", levelName(r.Level))
	if c, ok := levelColors[r.Level]; ok && h.color {
		tag = c.Sprint(tag)
	}
	b.WriteString("[" + tag + "] " + r.Message)

	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}

	val := a.Value.String()
	if strings.ContainsAny(val, " \t\n\"=") || val == "" {
		val = strconv.Quote(val)
	}
	b.WriteString(" " + prefix + a.Key + "=" + val)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// fileWriter appends to a log file that can be reopened after rotation.
type fileWriter struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func openFileWriter(path string) (*fileWriter, error) {
	fw := &fileWriter{path: path}
	if err := fw.reopen(); err != nil {
		return nil, err
	}
	return fw, nil
}

func (fw *fileWriter) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.f.Write(p)
}

func (fw *fileWriter) reopen() error {
	f, err := os.OpenFile(fw.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.f != nil {
		_ = fw.f.Close()
	}
	fw.f = f
	return nil
}

func (fw *fileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.f.Close()
}

// Setup installs the default slog logger. Without a file, records go to
// stderr. With a file, SIGHUP reopens it so it can be rotated:
//
//	mv pebble.log pebble.bak && kill -HUP <pid>
//
// The returned function stops the signal watch and closes the file.
func Setup(level, file string, colored bool) (func(), error) {
	lvl, ok := ParseLevel(level)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	if file == "" {
		slog.SetDefault(slog.New(NewHandler(os.Stderr, lvl, colored && isTerminal(os.Stderr))))
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory for '%s': %w", file, err)
	}
	fw, err := openFileWriter(file)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(NewHandler(fw, lvl, false)))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	go func() {
		for range sigs {
			if err := fw.reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(sigs)
		_ = fw.Close()
	}, nil
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
