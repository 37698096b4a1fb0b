package settings

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every settings environment variable.
const EnvPrefix = "FLEXTOOLBAR_"

// envMapping maps variable names, without the prefix, to settings.
var envMapping = map[string]func(s *Settings, v string) error{
	"CONFIG_FILE_PATH": func(s *Settings, v string) error {
		s.ConfigFilePath = v
		return nil
	},
	"PROJECT_CONFIG_FILE_PATH": func(s *Settings, v string) error {
		s.ProjectConfigFilePath = v
		return nil
	},
	"PERSISTENT_PROJECT_TOOLBAR": boolSetter(func(s *Settings, b bool) { s.PersistentProjectToolBar = b }),
	"RELOAD_ON_CONFIG_EDIT":      boolSetter(func(s *Settings, b bool) { s.ReloadToolbarWhenEditConfigFile = b }),
	"CREATE_DEFAULT_CONFIG":      boolSetter(func(s *Settings, b bool) { s.CreateDefaultConfig = b }),
	"POLL_INTERVAL_MS": func(s *Settings, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		s.PollIntervalMs = n
		return nil
	},
	"LOG_LEVEL": func(s *Settings, v string) error {
		s.LogLevel = v
		return nil
	},
}

// ApplyEnv overlays FLEXTOOLBAR_* variables from the process environment.
func (s *Settings) ApplyEnv() error {
	return s.ApplyEnvFrom(os.LookupEnv)
}

// ApplyEnvFrom overlays prefixed variables found through lookup. Unknown
// prefixed variables are ignored; malformed values are reported together.
func (s *Settings) ApplyEnvFrom(lookup func(string) (string, bool)) error {
	var errs []error
	for name, set := range envMapping {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(s, v); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s%s=%q: %v", ErrInvalidEnv, EnvPrefix, name, v, err))
		}
	}
	return errors.Join(errs...)
}

func boolSetter(set func(*Settings, bool)) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		set(s, b)
		return nil
	}
}

// parseBool accepts the spellings shells commonly use.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0", "":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}
