package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPrompt             = ">> "
	DefaultContinuationPrompt = ".. "
	HomeEnv                   = "PEBBLE_HOME"
)

// Transcript selects the database a session is recorded to. An empty
// Driver disables recording.
type Transcript struct {
	Driver string `toml:"driver" yaml:"driver"`
	DSN    string `toml:"dsn" yaml:"dsn"`
}

type Configuration struct {
	Version   string `toml:"-" yaml:"-"`
	BuildDate string `toml:"-" yaml:"-"`
	Commit    string `toml:"-" yaml:"-"`
	Home      string `toml:"-" yaml:"-"`

	LogLevel           string     `toml:"log_level" yaml:"log_level"`
	LogFile            string     `toml:"log_file" yaml:"log_file"`
	Color              bool       `toml:"color" yaml:"color"`
	Prompt             string     `toml:"prompt" yaml:"prompt"`
	ContinuationPrompt string     `toml:"continuation_prompt" yaml:"continuation_prompt"`
	HistoryFile        string     `toml:"history_file" yaml:"history_file"`
	DumpAST            string     `toml:"dump_ast" yaml:"dump_ast"` // "", "yaml" or "json"
	Transcript         Transcript `toml:"transcript" yaml:"transcript"`
}

// Default returns the built-in settings for a pebble home directory.
func Default(home string) Configuration {
	return Configuration{
		Home:               home,
		LogLevel:           "none",
		Color:              true,
		Prompt:             DefaultPrompt,
		ContinuationPrompt: DefaultContinuationPrompt,
		HistoryFile:        filepath.Join(home, "history"),
	}
}

// Load layers the configuration file and PEBBLE_* variables over the
// defaults. With an empty path, $PEBBLE_HOME/config.toml is used if it
// exists. lookup is normally os.LookupEnv.
func Load(path string, lookup func(string) (string, bool)) (Configuration, error) {
	home, ok := lookup(HomeEnv)
	if !ok || home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			userHome = "."
		}
		home = filepath.Join(userHome, ".pebble")
	}
	cfg := Default(home)

	explicit := path != ""
	if !explicit {
		path = filepath.Join(home, "config.toml")
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Configuration) loadFile(path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
		}
	case ".yaml", ".yml":
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("config: open %s: %w", path, err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		decoder.KnownFields(true)
		if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("config: unsupported file type %q", ext)
	}
	return nil
}

func (c *Configuration) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"PEBBLE_LOG_LEVEL":           &c.LogLevel,
		"PEBBLE_LOG_FILE":            &c.LogFile,
		"PEBBLE_PROMPT":              &c.Prompt,
		"PEBBLE_CONTINUATION_PROMPT": &c.ContinuationPrompt,
		"PEBBLE_HISTORY_FILE":        &c.HistoryFile,
		"PEBBLE_DUMP_AST":            &c.DumpAST,
	}
	for name, field := range strs {
		if v, ok := lookup(name); ok {
			*field = v
		}
	}

	if v, ok := lookup("PEBBLE_COLOR"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: PEBBLE_COLOR: %w", err)
		}
		c.Color = b
	}
	if _, ok := lookup("NO_COLOR"); ok {
		c.Color = false
	}

	if v, ok := lookup("PEBBLE_TRANSCRIPT"); ok {
		t, err := ParseTranscript(v)
		if err != nil {
			return err
		}
		c.Transcript = t
	}
	return nil
}

// ParseTranscript splits "driver:dsn" at the first colon, so DSNs that
// contain colons themselves pass through intact.
func ParseTranscript(s string) (Transcript, error) {
	driver, dsn, ok := strings.Cut(s, ":")
	if !ok || driver == "" || dsn == "" {
		return Transcript{}, fmt.Errorf("config: transcript must be driver:dsn, got %q", s)
	}
	return Transcript{Driver: driver, DSN: dsn}, nil
}

func (c *Configuration) Validate() error {
	switch c.DumpAST {
	case "", "yaml", "json":
	default:
		return fmt.Errorf("config: dump_ast must be yaml or json, got %q", c.DumpAST)
	}
	return nil
}
