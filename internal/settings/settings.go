// Package settings holds the user-facing toolbar settings.
//
// Settings are layered: built-in defaults, then a TOML file, then
// FLEXTOOLBAR_* environment variables. Validate runs last.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/flextoolbar/internal/logging"
)

// AppName names the per-user config directory.
const AppName = "flextoolbar"

// Errors returned by settings operations.
var (
	ErrValidationFailed = errors.New("validation failed")
	ErrInvalidEnv       = errors.New("invalid environment value")
)

// Settings are the toolbar settings.
type Settings struct {
	// ConfigFilePath is the global toolbar config file or a directory
	// holding one. Empty means the per-user config directory.
	ConfigFilePath string `toml:"toolBarConfigurationFilePath"`

	// ProjectConfigFilePath is resolved against the project root. A
	// directory means toolbar.* inside it. Empty disables project configs.
	ProjectConfigFilePath string `toml:"toolBarProjectConfigurationFilePath"`

	// PersistentProjectToolBar keeps the last project toolbar when the
	// active document has no project config.
	PersistentProjectToolBar bool `toml:"persistentProjectToolBar"`

	ReloadToolbarWhenEditConfigFile bool `toml:"reloadToolbarWhenEditConfigFile"`
	CreateDefaultConfig             bool `toml:"createDefaultConfig"`

	// PollIntervalMs is the function condition polling period.
	PollIntervalMs int `toml:"pollIntervalMs"`

	LogLevel string `toml:"logLevel"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		ReloadToolbarWhenEditConfigFile: true,
		CreateDefaultConfig:             true,
		PollIntervalMs:                  300,
		LogLevel:                        "info",
	}
}

// PollInterval returns the polling period as a duration.
func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// Level returns the parsed log level.
func (s Settings) Level() logging.Level {
	return logging.ParseLevel(s.LogLevel)
}

// ConfigDir returns the per-user directory holding the global toolbar
// config and the settings file.
func ConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultPath returns the settings file path.
func DefaultPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

// Load reads a settings file over the defaults. A missing file yields the
// defaults. Unknown keys are rejected.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings file %s: %w", path, err)
	}

	if err := Decode(bytes.NewReader(data), &s); err != nil {
		perr := &ParseError{Path: path, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return Default(), perr
	}
	return s, nil
}

// Decode reads TOML from r into s, leaving keys absent from r untouched.
func Decode(r io.Reader, s *Settings) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(s)
}

// Encode writes s as TOML.
func (s Settings) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(s)
}

// Validate checks s.
func (s Settings) Validate() error {
	var errs []error
	if s.PollIntervalMs < 10 {
		errs = append(errs, fmt.Errorf("%w: pollIntervalMs must be at least 10, got %d", ErrValidationFailed, s.PollIntervalMs))
	}
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown logLevel %q", ErrValidationFailed, s.LogLevel))
	}
	return errors.Join(errs...)
}

// ParseError represents an error while parsing a settings file.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parse error in %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
