package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"pebble/internal/config"
	"pebble/internal/object"
	"pebble/internal/runner"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"
)

const helpText = `Commands:
  :help            Show this help
  :reset           Drop every binding
  :env             List the current bindings
  :load <file>     Run a file in this session
  :history [n]     Show the last n recorded inputs (default 10)
  exit             Leave the REPL (also Ctrl+D)

A line ending in ':' opens a block; finish it with an empty line.
`

// LineReader prompts for and returns one line of input. *liner.State
// implements it; io.EOF ends the session and liner.ErrPromptAborted
// drops the current input.
type LineReader interface {
	Prompt(prompt string) (string, error)
}

type Options struct {
	Prompt             string
	ContinuationPrompt string
	Color              bool
}

type Repl struct {
	session *runner.Session
	lines   LineReader
	out     io.Writer
	opts    Options

	errColor      *color.Color
	appendHistory func(string)
}

func New(session *runner.Session, lines LineReader, out io.Writer, opts Options) *Repl {
	errColor := color.New(color.FgRed)
	if !opts.Color {
		errColor.DisableColor()
	}
	return &Repl{
		session:       session,
		lines:         lines,
		out:           out,
		opts:          opts,
		errColor:      errColor,
		appendHistory: func(string) {},
	}
}

// Start runs an interactive session on the terminal, with line editing
// and history kept in cfg.HistoryFile.
func Start(ctx context.Context, session *runner.Session, cfg config.Configuration) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(cfg.HistoryFile); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	r := New(session, ln, os.Stdout, Options{
		Prompt:             cfg.Prompt,
		ContinuationPrompt: cfg.ContinuationPrompt,
		Color:              cfg.Color,
	})
	r.appendHistory = ln.AppendHistory

	fmt.Fprintf(os.Stdout, "pebble %s. Type :help for commands.\n", cfg.Version)
	err := r.Run(ctx)

	if cfg.HistoryFile != "" {
		if err := saveHistory(ln, cfg.HistoryFile); err != nil {
			slog.Warn("could not save history", "file", cfg.HistoryFile, "error", err)
		}
	}
	return err
}

func saveHistory(ln *liner.State, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = ln.WriteHistory(f)
	return err
}

// Run reads and executes inputs until exit, end of input or ctx is done.
func (r *Repl) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		src, ok, err := r.readInput()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(r.out)
			return nil
		}

		trimmed := strings.TrimSpace(src)
		switch {
		case trimmed == "":
			continue
		case trimmed == "exit":
			return nil
		case strings.HasPrefix(trimmed, ":"):
			if r.command(ctx, trimmed) {
				return nil
			}
			continue
		}

		result, err := r.session.Exec(ctx, "<repl>", src)
		r.report(src, result, err)
	}
}

// readInput returns one complete input. A first line ending in ':' keeps
// reading continuation lines until an empty one. ok is false at end of
// input.
func (r *Repl) readInput() (src string, ok bool, err error) {
	var b strings.Builder

	for {
		prompt := r.opts.Prompt
		if b.Len() > 0 {
			prompt = r.opts.ContinuationPrompt
		}

		line, err := r.lines.Prompt(prompt)
		switch {
		case errors.Is(err, io.EOF):
			if b.Len() > 0 {
				return b.String(), true, nil
			}
			return "", false, nil
		case errors.Is(err, liner.ErrPromptAborted):
			return "", true, nil
		case err != nil:
			return "", false, err
		}

		if strings.TrimSpace(line) != "" {
			r.appendHistory(line)
		}

		if b.Len() == 0 {
			b.WriteString(line)
			if !opensBlock(line) {
				return b.String(), true, nil
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			return b.String(), true, nil
		}
		b.WriteByte('\n')
		b.WriteString(line)
	}
}

func opensBlock(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, " \t"), ":") &&
		!strings.HasPrefix(strings.TrimSpace(line), ":")
}

func (r *Repl) report(src string, result object.Object, err error) {
	if err != nil {
		r.errColor.Fprintln(r.out, runner.Describe(src, err))
		return
	}
	if result != nil && result != object.NULL {
		fmt.Fprintln(r.out, result.Inspect())
	}
}

// command runs a meta-command and reports whether the REPL should exit.
func (r *Repl) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)

	switch fields[0] {
	case ":help":
		fmt.Fprint(r.out, helpText)

	case ":quit", ":exit":
		return true

	case ":reset":
		r.session.Reset()
		fmt.Fprintln(r.out, "environment reset.")

	case ":env":
		for _, b := range r.session.Bindings() {
			fmt.Fprintf(r.out, "%s = %s\n", b.Name, b.Value.Inspect())
		}

	case ":load":
		if len(fields) < 2 {
			fmt.Fprintln(r.out, "usage: :load <file>")
			return false
		}
		path := fields[1]
		result, err := r.session.ExecFile(ctx, path)
		if err != nil {
			src, _ := os.ReadFile(path)
			r.report(string(src), nil, err)
			return false
		}
		r.report("", result, nil)

	case ":history":
		n := 10
		if len(fields) > 1 {
			v, err := strconv.Atoi(fields[1])
			if err != nil || v < 1 {
				fmt.Fprintln(r.out, "usage: :history [n]")
				return false
			}
			n = v
		}
		entries, err := r.session.History(ctx, n)
		if err != nil {
			r.errColor.Fprintln(r.out, err)
			return false
		}
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			status := "ok"
			if e.Error != "" {
				status = "error"
			}
			fmt.Fprintf(r.out, "%4d  %s  %-5s  %s\n", e.ID, e.CreatedAt.Local().Format("15:04:05"),
				status, firstLine(e.Source))
		}

	default:
		fmt.Fprintf(r.out, "unknown command %s. Type :help for help.\n", fields[0])
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
