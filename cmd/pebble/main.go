package main

import (
	"context"
	"fmt"
	"os"
	"pebble/internal/config"
	"pebble/internal/log"
	"pebble/internal/object"
	"pebble/internal/repl"
	"pebble/internal/runner"
	"pebble/internal/transcript"

	"git.sr.ht/~sircmpwn/getopt"
	"github.com/fatih/color"
)

var (
	// Version is set at build time with -ldflags.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// flags holds what was given on the command line; the zero value means
// not set.
type flags struct {
	configFile string
	logLevel   string
	logFile    string
	code       string
	dumpAST    string
	transcript string
	noColor    bool
	help       bool
	version    bool
	args       []string
}

func parseFlags(args []string) (flags, error) {
	var f flags

	opts, optind, err := getopt.Getopts(args, "c:l:L:e:a:t:nhv")
	if err != nil {
		return f, err
	}
	f.args = args[optind:]

	for _, opt := range opts {
		switch opt.Option {
		case 'c':
			f.configFile = opt.Value
		case 'l':
			f.logLevel = opt.Value
		case 'L':
			f.logFile = opt.Value
		case 'e':
			f.code = opt.Value
		case 'a':
			f.dumpAST = opt.Value
		case 't':
			f.transcript = opt.Value
		case 'n':
			f.noColor = true
		case 'h':
			f.help = true
		case 'v':
			f.version = true
		}
	}
	return f, nil
}

// apply layers the command line over cfg.
func (f flags) apply(cfg *config.Configuration) error {
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.dumpAST != "" {
		cfg.DumpAST = f.dumpAST
	}
	if f.transcript != "" {
		t, err := config.ParseTranscript(f.transcript)
		if err != nil {
			return err
		}
		cfg.Transcript = t
	}
	if f.noColor {
		cfg.Color = false
	}
	return cfg.Validate()
}

func run(args []string) int {
	f, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		printHelp()
		return 1
	}

	if f.version {
		printVersion()
		return 0
	}
	if f.help {
		printHelp()
		return 0
	}

	cfg, err := config.Load(f.configFile, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	cfg.Version, cfg.BuildDate, cfg.Commit = Version, BuildDate, Commit
	if err := f.apply(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	closeLog, err := log.Setup(cfg.LogLevel, cfg.LogFile, cfg.Color)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer closeLog()

	ctx := context.Background()

	opts := runner.Options{Out: os.Stdout, DumpAST: cfg.DumpAST}
	if cfg.Transcript.Driver != "" {
		store, err := transcript.Open(ctx, cfg.Transcript.Driver, cfg.Transcript.DSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		defer store.Close()
		opts.Transcript = store
	}
	session := runner.New(opts)

	errColor := color.New(color.FgRed)
	if !cfg.Color {
		errColor.DisableColor()
	}

	switch {
	case f.code != "":
		result, err := session.Exec(ctx, "-e", f.code)
		if err != nil {
			errColor.Fprintln(os.Stderr, runner.Describe(f.code, err))
			return 1
		}
		if result != nil && result != object.NULL {
			fmt.Println(result.Inspect())
		}

	case len(f.args) > 0:
		path := f.args[0]
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not read '%s': %v\n", path, err)
			return 1
		}
		if _, err := session.Exec(ctx, path, string(src)); err != nil {
			errColor.Fprintln(os.Stderr, runner.Describe(string(src), err))
			return 1
		}

	default:
		if err := repl.Start(ctx, session, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}
	return 0
}

func printVersion() {
	fmt.Printf("pebble version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: pebble [options] [filename]

Options:
  -c <path>          Read configuration from path (.toml, .yaml). Default is $PEBBLE_HOME/config.toml.
  -l <level>         Set the log level: trace, debug, info, warn, error, none. Default is 'none'.
  -L <path>          Write logs to path instead of stderr. SIGHUP reopens the file.
  -e <code>          Execute code and exit.
  -a <format>        Dump the AST of every input to stderr as yaml or json.
  -t <driver:dsn>    Record inputs to a transcript database (sqlite3, mysql, postgres).
  -n                 Disable colored output.
  -h                 Display this help information and exit.
  -v                 Display version information and exit.

Details:
Without a filename or -e, pebble starts an interactive session.

Examples:
  pebble                                   Start the REPL
  pebble fact.pb                           Execute the provided file
  pebble -e 'print 1 + 2 * 3'              Execute a one-liner
  pebble -t sqlite3:history.db -l debug    Record the session with debug logging

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}
