package repl

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"pebble/internal/runner"
	"pebble/internal/transcript"
	"strings"
	"testing"

	"github.com/peterh/liner"
)

// scriptedLines replays canned input and records the prompts it was shown.
type scriptedLines struct {
	lines   []string
	prompts []string
}

func (s *scriptedLines) Prompt(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", liner.ErrPromptAborted
	}
	return line, nil
}

func run(t *testing.T, store runner.Transcript, lines ...string) (string, *scriptedLines) {
	t.Helper()
	var out bytes.Buffer
	session := runner.New(runner.Options{Out: &out, Transcript: store})
	script := &scriptedLines{lines: lines}

	r := New(session, script, &out, Options{Prompt: ">> ", ContinuationPrompt: ".. "})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out.String(), script
}

func TestEchoAndPrint(t *testing.T) {
	out, _ := run(t, nil, "x = 5", "print x", "x * 2", "nothing", "exit", "print 99")

	expected := "5\n5\n10\n"
	if out != expected {
		t.Errorf("output wrong. expected=%q, got=%q", expected, out)
	}
}

func TestBlockContinuation(t *testing.T) {
	out, script := run(t, nil,
		"def add(a, b):",
		"    return a + b",
		"",
		"add(2, 3)",
	)

	if out != "<function>\n5\n\n" {
		t.Errorf("output wrong, got %q", out)
	}
	expectedPrompts := []string{">> ", ".. ", ".. ", ">> ", ">> "}
	if strings.Join(script.prompts, "|") != strings.Join(expectedPrompts, "|") {
		t.Errorf("prompts wrong. expected=%q, got=%q", expectedPrompts, script.prompts)
	}
}

func TestErrorsDoNotEndSession(t *testing.T) {
	out, _ := run(t, nil, "x = 1", "1 + \"a\"", "print )", "x")

	if !strings.Contains(out, "unsupported operand types for +: NUMBER and STRING") {
		t.Errorf("evaluation error missing:\n%s", out)
	}
	if !strings.Contains(out, "parse error") {
		t.Errorf("parse error missing:\n%s", out)
	}
	if !strings.HasSuffix(out, "1\n\n") {
		t.Errorf("session should continue after errors:\n%s", out)
	}
}

func TestAbortedInputIsDropped(t *testing.T) {
	out, _ := run(t, nil, "if true:", "^C", "print 2")
	if out != "2\n\n" {
		t.Errorf("aborted block should be dropped, got %q", out)
	}
}

func TestMetaCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.pb")
	if err := os.WriteFile(path, []byte("def sq(n): return n * n\nsq(4)\n"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, _ := run(t, nil,
		":help",
		"b = 2",
		"a = \"x\"",
		":env",
		":load "+path,
		"sq(3)",
		":reset",
		":env",
		":load",
		":bogus",
		":history",
		":quit",
		"print 1",
	)

	for _, want := range []string{
		":load <file>",
		"a = x\nb = 2\n",
		"16\n9\nenvironment reset.\nusage: :load <file>\n",
		"unknown command :bogus",
		"no transcript configured",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "sq = ") {
		t.Errorf("reset should clear bindings:\n%s", out)
	}
}

func TestHistoryCommand(t *testing.T) {
	store, err := transcript.Open(context.Background(), "sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer store.Close()

	out, _ := run(t, store, "x = 1", "if x:", "    print x", "", "1 / 0", ":history 2")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	last2 := lines[len(lines)-2:]
	if !strings.Contains(last2[0], "ok") || !strings.HasSuffix(last2[0], "if x: ...") {
		t.Errorf("history line wrong: %q", last2[0])
	}
	if !strings.Contains(last2[1], "error") || !strings.HasSuffix(last2[1], "1 / 0") {
		t.Errorf("history line wrong: %q", last2[1])
	}
}

func TestOpensBlock(t *testing.T) {
	tests := []struct {
		line     string
		expected bool
	}{
		{"def f():", true},
		{"while x:  ", true},
		{"if x: print 1", false},
		{"x = 1", false},
		{":help", false},
	}

	for i, tt := range tests {
		if actual := opensBlock(tt.line); actual != tt.expected {
			t.Errorf("tests[%d] - opensBlock(%q) expected=%t, got=%t", i, tt.line, tt.expected, actual)
		}
	}
}
