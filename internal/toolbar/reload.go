package toolbar

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/flextoolbar/internal/logging"
	"github.com/dshills/flextoolbar/internal/toolbar/button"
	"github.com/dshills/flextoolbar/internal/toolbar/condition"
	"github.com/dshills/flextoolbar/internal/toolbar/loader"
	"github.com/dshills/flextoolbar/internal/toolbar/resolver"
)

// entry is a parsed descriptor with its evaluated state for one pass.
type entry struct {
	desc    *button.Descriptor
	visible bool
	enabled bool
}

// pass runs one reload: resolve, load, evaluate, re-arm the poller, render.
func (c *Controller) pass() {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	ctx := c.contextLocked()
	s := c.settings
	w := c.watcher
	c.mu.Unlock()

	log := c.logger.WithField("pass", uuid.NewString())
	log.Debug("reload for %q (grammar %q)", ctx.FilePath, ctx.Grammar)

	src := c.resolver.Resolve(ctx.FilePath)
	if src.Changed {
		log.Info("project config: %q", src.Project)
	}
	if w != nil {
		if err := w.SetPaths(src.Paths()...); err != nil {
			log.Debug("watch: %v", err)
		}
	}

	configs, records := c.load(src, s.CreateDefaultConfig, log)

	descs := make([]*button.Descriptor, 0, len(records))
	for i, rec := range records {
		d, err := button.Parse(rec)
		if err != nil {
			c.notifier.Notify(logging.LevelWarn, fmt.Sprintf("Skipping toolbar entry %d: %v", i+1, err))
			continue
		}
		descs = append(descs, d)
	}

	// The poller is seeded with the results this render used.
	ctx.Memo = condition.NewMemo()
	entries := make([]entry, len(descs))
	var observed []condition.Observation
	for i, d := range descs {
		entries[i] = c.evaluate(d, ctx, log)
		observed = append(observed, d.Observe(ctx)...)
	}

	c.poller.ResetObserved(observed)

	c.renderer.Clear()
	for _, e := range entries {
		if !e.visible {
			continue
		}
		if e.desc.Type == button.TypeSpacer {
			c.renderer.AddSpacer(e.desc.SpacerOptions())
			continue
		}
		opts := e.desc.Options(c.hooks)
		opts.Disabled = !e.enabled
		c.renderer.AddButton(opts)
	}

	c.mu.Lock()
	old := c.configs
	c.configs = configs
	c.descriptors = descs
	c.source = src
	c.mu.Unlock()
	closeConfigs(old, log)

	n := c.reloads.Add(1)
	log.Debug("reload %d done: %d entries, %d polled", n, len(descs), len(observed))
}

// contextLocked snapshots the editor context. c.mu must be held.
func (c *Controller) contextLocked() condition.Context {
	ctx := condition.Context{
		Packages: c.packages.Clone(),
		Editor:   c.editor,
	}
	if c.editor != nil {
		ctx.Grammar = c.editor.GrammarName()
		ctx.FilePath = c.editor.Path()
	}
	return ctx
}

// load reads the global then the project config. A source that fails to
// load contributes no records.
func (c *Controller) load(src resolver.Source, createDefault bool, log *logging.Logger) ([]*loader.Config, []loader.Record) {
	var (
		configs []*loader.Config
		records []loader.Record
	)

	for _, path := range src.Paths() {
		if path == src.Global && createDefault {
			wrote, err := loader.EnsureDefault(path)
			switch {
			case err != nil && !errors.Is(err, loader.ErrUnsupportedFormat):
				log.Warn("creating default config %s: %v", path, err)
			case wrote:
				c.notifier.Notify(logging.LevelInfo, "Created default toolbar config at "+path)
			}
		}

		cfg, err := c.loader.Load(path)
		if err != nil {
			if errors.Is(err, loader.ErrNotFound) {
				log.Warn("config %s not found", path)
				continue
			}
			c.notifier.Notify(logging.LevelError, fmt.Sprintf("Could not load toolbar config: %v", err))
			continue
		}
		configs = append(configs, cfg)
		records = append(records, cfg.Records...)
	}
	return configs, records
}

// evaluate decides visibility and enablement. Failing conditions hide or
// disable the entry.
func (c *Controller) evaluate(d *button.Descriptor, ctx condition.Context, log *logging.Logger) entry {
	e := entry{desc: d}

	visible, err := d.Visible(ctx)
	if err != nil {
		log.Warn("%s: visibility: %v", label(d), err)
		return e
	}
	e.visible = visible
	if !visible || d.Type == button.TypeSpacer {
		return e
	}

	enabled, err := d.Enabled(ctx)
	if err != nil {
		log.Warn("%s: enablement: %v", label(d), err)
	}
	e.enabled = enabled && err == nil
	return e
}

func label(d *button.Descriptor) string {
	switch {
	case d.Text != "":
		return d.Text
	case d.Icon != "":
		return d.Icon
	case d.Tooltip != "":
		return d.Tooltip
	}
	return string(d.Type)
}

func closeConfigs(configs []*loader.Config, log *logging.Logger) {
	for _, cfg := range configs {
		if err := cfg.Close(); err != nil {
			log.Debug("closing %s: %v", cfg.Path, err)
		}
	}
}
