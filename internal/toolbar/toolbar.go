// Package toolbar rebuilds the toolbar whenever the editor context, the
// project roots, the settings or the config files change.
//
// A Controller owns the editor context, the config resolver, the function
// condition poller and the config watcher. Reload passes never overlap: a
// reload requested while a pass runs is folded into one more pass.
package toolbar

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/dshills/flextoolbar/internal/logging"
	"github.com/dshills/flextoolbar/internal/project"
	"github.com/dshills/flextoolbar/internal/settings"
	"github.com/dshills/flextoolbar/internal/toolbar/button"
	"github.com/dshills/flextoolbar/internal/toolbar/condition"
	"github.com/dshills/flextoolbar/internal/toolbar/loader"
	"github.com/dshills/flextoolbar/internal/toolbar/poller"
	"github.com/dshills/flextoolbar/internal/toolbar/resolver"
	"github.com/dshills/flextoolbar/internal/watcher"
)

// Errors returned by the Controller.
var (
	ErrNoRenderer     = errors.New("toolbar: renderer is required")
	ErrNotActive      = errors.New("toolbar: controller is not active")
	ErrAlreadyActive  = errors.New("toolbar: controller is already active")
	ErrInvalidSetting = errors.New("toolbar: invalid settings")
)

// Renderer is the toolbar widget.
type Renderer interface {
	Clear()
	AddButton(opts button.Options)
	AddSpacer(opts button.SpacerOptions)
}

// Host exposes the editor state the toolbar depends on.
type Host interface {
	// ActiveEditor returns the active item, or nil when none is active.
	ActiveEditor() condition.Editor
	ActivePackages() []string
	ProjectPaths() []string
}

// Notifier shows messages to the user.
type Notifier interface {
	Notify(level logging.Level, message string)
}

// State is the reload state.
type State int

const (
	StateIdle State = iota
	StateReloading
)

// String returns the state name.
func (s State) String() string {
	if s == StateReloading {
		return "reloading"
	}
	return "idle"
}

// Options configures a Controller.
type Options struct {
	Renderer Renderer
	Host     Host
	Notifier Notifier
	Settings settings.Settings

	// ConfigDir holds the global config when the settings name none.
	// Defaults to settings.ConfigDir().
	ConfigDir string

	// OpenURL is bound to url buttons.
	OpenURL button.Action

	Loader *loader.Loader
	Clock  clock.Clock
	Logger *logging.Logger
}

// Controller rebuilds the toolbar.
type Controller struct {
	renderer Renderer
	host     Host
	notifier Notifier
	loader   *loader.Loader
	logger   *logging.Logger
	hooks    button.Hooks

	configDir string
	roots     *project.Roots
	resolver  *resolver.Resolver
	poller    *poller.Poller

	// passMu is held for the duration of a reload pass.
	passMu sync.Mutex

	mu          sync.Mutex
	state       State
	pending     bool
	active      bool
	settings    settings.Settings
	editor      condition.Editor
	packages    condition.PackageSet
	watcher     *watcher.ConfigWatcher
	stopCtx     func() bool
	configs     []*loader.Config
	descriptors []*button.Descriptor
	source      resolver.Source

	reloads atomic.Int64
}

// New creates an inactive Controller.
func New(opts Options) (*Controller, error) {
	if opts.Renderer == nil {
		return nil, ErrNoRenderer
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidSetting, err)
	}

	logger := logging.OrNop(opts.Logger).WithComponent("toolbar")

	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := settings.ConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	ldr := opts.Loader
	if ldr == nil {
		ldr = loader.New(loader.WithLogger(opts.Logger))
	}

	c := &Controller{
		renderer:  opts.Renderer,
		host:      opts.Host,
		notifier:  opts.Notifier,
		loader:    ldr,
		logger:    logger,
		hooks:     button.Hooks{OpenURL: opts.OpenURL},
		configDir: configDir,
		roots:     project.NewRoots(),
		settings:  opts.Settings,
	}
	if c.notifier == nil {
		c.notifier = logNotifier{logger: logger}
	}

	c.resolver = resolver.New(
		c.globalPath(opts.Settings),
		c.roots,
		resolver.WithProjectConfigPath(opts.Settings.ProjectConfigFilePath),
		resolver.WithPersistent(opts.Settings.PersistentProjectToolBar),
		resolver.WithLogger(opts.Logger),
	)

	pollOpts := []poller.Option{
		poller.WithInterval(opts.Settings.PollInterval()),
		poller.WithLogger(opts.Logger),
	}
	if opts.Clock != nil {
		pollOpts = append(pollOpts, poller.WithClock(opts.Clock))
	}
	c.poller = poller.New(c.Reload, c.activeEditor, pollOpts...)

	return c, nil
}

// Activate syncs the editor context from the host, starts watching config
// files when enabled and runs the first reload. The controller deactivates
// itself when ctx is cancelled.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	c.active = true
	c.syncHostLocked()
	watch := c.settings.ReloadToolbarWhenEditConfigFile
	c.mu.Unlock()

	c.poller.Start()
	if watch {
		c.startWatcher()
	}

	stop := context.AfterFunc(ctx, c.Deactivate)
	c.mu.Lock()
	c.stopCtx = stop
	c.mu.Unlock()

	c.logger.Info("activated")
	c.Reload()
	return nil
}

// Deactivate stops polling and watching, clears the toolbar and releases
// loaded configs. It waits for a running pass to finish.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.pending = false
	w := c.watcher
	c.watcher = nil
	stop := c.stopCtx
	c.stopCtx = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}

	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.poller.Stop()
	if w != nil {
		if err := w.Close(); err != nil {
			c.logger.Warn("closing watcher: %v", err)
		}
	}
	c.renderer.Clear()

	c.mu.Lock()
	configs := c.configs
	c.configs = nil
	c.descriptors = nil
	c.mu.Unlock()
	closeConfigs(configs, c.logger)

	c.logger.Info("deactivated")
}

// Active reports whether the controller is active.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// ActiveEditorChanged records the new active item and reloads. ed may be nil.
func (c *Controller) ActiveEditorChanged(ed condition.Editor) {
	c.mu.Lock()
	c.editor = ed
	c.mu.Unlock()
	c.Reload()
}

// GrammarChanged reloads after the active editor's grammar changed.
func (c *Controller) GrammarChanged() {
	c.Reload()
}

// ProjectPathsChanged replaces the project roots and reloads.
func (c *Controller) ProjectPathsChanged(paths []string) {
	c.roots.Set(paths...)
	c.Reload()
}

// PackagesChanged replaces the active package set and reloads.
func (c *Controller) PackagesChanged(pkgs []string) {
	c.mu.Lock()
	c.packages = condition.NewPackageSet(pkgs...)
	c.mu.Unlock()
	c.Reload()
}

// ConfigFileChanged reloads when path is one of the loaded config files.
func (c *Controller) ConfigFileChanged(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	for _, p := range c.resolver.Current().Paths() {
		if p == abs {
			c.logger.Debug("config %s changed", abs)
			c.Reload()
			return
		}
	}
}

// SettingsChanged applies new settings and reloads.
func (c *Controller) SettingsChanged(s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return errors.Join(ErrInvalidSetting, err)
	}

	c.mu.Lock()
	prev := c.settings
	c.settings = s
	active := c.active
	c.mu.Unlock()

	c.resolver.SetGlobal(c.globalPath(s))
	c.resolver.SetProjectConfigPath(s.ProjectConfigFilePath)
	c.resolver.SetPersistent(s.PersistentProjectToolBar)
	c.poller.SetInterval(s.PollInterval())

	if active && prev.ReloadToolbarWhenEditConfigFile != s.ReloadToolbarWhenEditConfigFile {
		if s.ReloadToolbarWhenEditConfigFile {
			c.startWatcher()
		} else {
			c.stopWatcher()
		}
	}

	c.Reload()
	return nil
}

// Reload rebuilds the toolbar. If a pass is already running, one more pass
// runs after it and Reload returns at once.
func (c *Controller) Reload() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	if c.state == StateReloading {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.state = StateReloading
	c.mu.Unlock()

	for {
		c.pass()

		c.mu.Lock()
		if !c.pending || !c.active {
			c.pending = false
			c.state = StateIdle
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()
	}
}

// State returns the reload state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reloads returns the number of completed reload passes.
func (c *Controller) Reloads() int64 {
	return c.reloads.Load()
}

// Source returns the config files used by the last pass.
func (c *Controller) Source() resolver.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Descriptors returns every descriptor parsed by the last pass, visible or
// not.
func (c *Controller) Descriptors() []*button.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*button.Descriptor(nil), c.descriptors...)
}

// Poller exposes the function condition poller.
func (c *Controller) Poller() *poller.Poller {
	return c.poller
}

// Roots exposes the project roots.
func (c *Controller) Roots() *project.Roots {
	return c.roots
}

func (c *Controller) globalPath(s settings.Settings) string {
	return resolver.ResolveGlobal(nil, s.ConfigFilePath, c.configDir)
}

// syncHostLocked copies editor, packages and roots from the host. c.mu must
// be held.
func (c *Controller) syncHostLocked() {
	if c.host == nil {
		return
	}
	c.editor = c.host.ActiveEditor()
	c.packages = condition.NewPackageSet(c.host.ActivePackages()...)
	c.roots.Set(c.host.ProjectPaths()...)
}

func (c *Controller) activeEditor() condition.Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor
}

func (c *Controller) startWatcher() {
	w, err := watcher.New(func(e watcher.Event) {
		c.ConfigFileChanged(e.Path)
	}, watcher.WithLogger(c.logger))
	if err != nil {
		c.logger.Warn("config watcher unavailable: %v", err)
		return
	}

	c.mu.Lock()
	old := c.watcher
	c.watcher = w
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

func (c *Controller) stopWatcher() {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}
}

// logNotifier is the Notifier used when none is configured.
type logNotifier struct {
	logger *logging.Logger
}

func (n logNotifier) Notify(level logging.Level, message string) {
	switch level {
	case logging.LevelError:
		n.logger.Error("%s", message)
	case logging.LevelWarn:
		n.logger.Warn("%s", message)
	default:
		n.logger.Info("%s", message)
	}
}
