// Package loader reads toolbar configuration files.
//
// A config file holds an ordered list of button records. The file extension
// selects the format: .json, .json5, .toml, .yaml/.yml or .lua. Records come
// back as plain maps; functions defined in Lua configs arrive as
// condition.Predicate (under show/hide/enable/disable or a "function" key) or
// button.Action (under "callback").
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/flextoolbar/internal/logging"
)

// Record is one raw button record.
type Record = map[string]any

// Extensions lists the supported config file extensions in lookup order.
var Extensions = []string{".json", ".json5", ".toml", ".yaml", ".yml", ".lua"}

// LegacyExtensions are config formats that are recognised but cannot be
// loaded. FindInDir still reports them after every supported format, so
// Load can tell the user to convert the file.
var LegacyExtensions = []string{".cson", ".coffee", ".js"}

// DefaultBaseName is the file name looked up inside config directories.
const DefaultBaseName = "toolbar"

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Config is the parsed content of one config file.
type Config struct {
	// Path is the file the records came from.
	Path string
	// Records are the button records in file order.
	Records []Record

	closer func() error
}

// Close releases resources held by functions in the records. Calling a Lua
// function after Close returns ErrClosed.
func (c *Config) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	err := c.closer()
	c.closer = nil
	return err
}

// decoder parses file content into records.
type decoder func(path string, data []byte) (*Config, error)

// Loader loads config files by extension.
type Loader struct {
	fs       FileSystem
	logger   *logging.Logger
	decoders map[string]decoder
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS sets the file system.
func WithFS(fsys FileSystem) Option {
	return func(l *Loader) {
		if fsys != nil {
			l.fs = fsys
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loader) {
		l.logger = logging.OrNop(logger)
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		fs:     OSFS{},
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.decoders = map[string]decoder{
		".json":  decodeJSON,
		".json5": decodeJSON5,
		".toml":  decodeTOML,
		".yaml":  decodeYAML,
		".yml":   decodeYAML,
		".lua":   l.decodeLua,
	}
	return l
}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load reads and parses the config file at path.
func (l *Loader) Load(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := l.decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s (use one of %s)", ErrUnsupportedFormat, path, strings.Join(Extensions, ", "))
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg, err := dec(path, data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	l.logger.Debug("loaded %d records from %s", len(cfg.Records), path)
	return cfg, nil
}

// FindInDir returns the first toolbar.<ext> file that exists in dir,
// trying Extensions and then LegacyExtensions.
func FindInDir(fsys FileSystem, dir string) (string, bool) {
	for _, exts := range [][]string{Extensions, LegacyExtensions} {
		for _, ext := range exts {
			p := filepath.Join(dir, DefaultBaseName+ext)
			if info, err := fsys.Stat(p); err == nil && !info.IsDir() {
				return p, true
			}
		}
	}
	return "", false
}

// toRecords checks that a decoded document is a list of objects.
func toRecords(path string, doc any) ([]Record, error) {
	if doc == nil {
		return nil, nil
	}

	list, ok := doc.([]any)
	if !ok {
		return nil, &ParseError{Path: path, Message: fmt.Sprintf("expected a list of buttons, got %T", doc)}
	}

	records := make([]Record, 0, len(list))
	for i, item := range list {
		rec, ok := normalize(item).(map[string]any)
		if !ok {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("entry %d: expected an object, got %T", i, item)}
		}
		records = append(records, rec)
	}
	return records, nil
}

// normalize converts decoder specific map types to map[string]any.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = normalize(item)
		}
		return x
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, item := range x {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case []any:
		for i, item := range x {
			x[i] = normalize(item)
		}
		return x
	default:
		return v
	}
}
