package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"pebble/internal/evaluator"
	"pebble/internal/object"
	"pebble/internal/parser"
	"pebble/internal/transcript"
	"pebble/internal/util"
	"time"

	"github.com/google/uuid"
	"github.com/tevino/abool/v2"
)

// Transcript is where a session records what it executed.
// *transcript.Store implements it.
type Transcript interface {
	Record(ctx context.Context, e transcript.Entry) (transcript.Entry, error)
	Recent(ctx context.Context, n int) ([]transcript.Entry, error)
}

var (
	ErrNoTranscript = errors.New("no transcript configured")
	ErrBusy         = errors.New("session is already executing")
)

type Options struct {
	Out        io.Writer // print output, defaults to os.Stdout
	DumpAST    string    // "", "yaml" or "json"
	DumpOut    io.Writer // AST dumps, defaults to os.Stderr
	Transcript Transcript
}

// Session runs successive inputs against one long-lived environment.
type Session struct {
	ID string

	running    *abool.AtomicBool
	eval       *evaluator.Evaluator
	captured   bytes.Buffer
	dumpAST    string
	dumpOut    io.Writer
	transcript Transcript
}

func New(opts Options) *Session {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.DumpOut == nil {
		opts.DumpOut = os.Stderr
	}

	s := &Session{
		ID:         uuid.NewString(),
		running:    abool.New(),
		dumpAST:    opts.DumpAST,
		dumpOut:    opts.DumpOut,
		transcript: opts.Transcript,
	}
	s.eval = evaluator.New(io.MultiWriter(opts.Out, &s.captured))
	return s
}

// Exec tokenizes, parses and evaluates src. A top-level return is
// unwrapped. origin names the input in logs and the transcript. A session
// runs one input at a time; overlapping calls fail with ErrBusy.
func (s *Session) Exec(ctx context.Context, origin, src string) (object.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.running.SetToIf(false, true) {
		return nil, ErrBusy
	}
	defer s.running.UnSet()

	start := time.Now()
	s.captured.Reset()

	result, err := s.run(src)

	slog.Debug("exec", "session", s.ID, "origin", origin,
		"duration", time.Since(start), "failed", err != nil)
	s.record(ctx, origin, src, err)

	if err != nil {
		return nil, err
	}
	if rv, ok := result.(*object.ReturnValue); ok {
		return rv.Value, nil
	}
	return result, nil
}

func (s *Session) run(src string) (object.Object, error) {
	program, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}

	if s.dumpAST != "" {
		var dump string
		if s.dumpAST == "json" {
			dump, err = parser.RenderASTAsJSON(program)
		} else {
			dump, err = parser.RenderASTAsYAML(program)
		}
		if err != nil {
			return nil, fmt.Errorf("dump ast: %w", err)
		}
		fmt.Fprintln(s.dumpOut, dump)
	}

	return s.eval.Eval(program)
}

func (s *Session) record(ctx context.Context, origin, src string, runErr error) {
	if s.transcript == nil {
		return
	}

	entry := transcript.Entry{
		Session: s.ID,
		Origin:  origin,
		Source:  src,
		Output:  s.captured.String(),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}

	if _, err := s.transcript.Record(ctx, entry); err != nil {
		slog.Warn("could not record transcript entry", "session", s.ID, "error", err)
	}
}

// ExecFile runs the file at path as one input.
func (s *Session) ExecFile(ctx context.Context, path string) (object.Object, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read '%s': %w", path, err)
	}
	return s.Exec(ctx, path, string(src))
}

// Reset starts over with an empty environment.
func (s *Session) Reset() {
	s.eval.Reset()
}

type Binding struct {
	Name  string
	Value object.Object
}

// Bindings lists the environment in name order.
func (s *Session) Bindings() []Binding {
	env := s.eval.Env()
	names := env.Names()
	bindings := make([]Binding, 0, len(names))
	for _, name := range names {
		val, _ := env.Get(name)
		bindings = append(bindings, Binding{Name: name, Value: val})
	}
	return bindings
}

// History returns the last n transcript entries, newest first.
func (s *Session) History(ctx context.Context, n int) ([]transcript.Entry, error) {
	if s.transcript == nil {
		return nil, ErrNoTranscript
	}
	return s.transcript.Recent(ctx, n)
}

// Describe renders err for a user, adding source context where the error
// carries a position.
func Describe(src string, err error) string {
	var parseErr *parser.Error
	if errors.As(err, &parseErr) {
		return parseErr.Error() + "\n" + parseErr.Context
	}

	var evalErr *evaluator.Error
	if errors.As(err, &evalErr) && evalErr.Token.Literal != "" {
		line, col := util.GetLineAndColumn(src, evalErr.Token.Position)
		return fmt.Sprintf("evaluation error [%3d:%2d] %s\n%s", line, col, evalErr.Message,
			util.GetContextLines(src, line, col, evalErr.Token.Position))
	}

	return err.Error()
}
