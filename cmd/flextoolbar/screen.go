package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/flextoolbar/internal/logging"
	"github.com/dshills/flextoolbar/internal/render"
	"github.com/dshills/flextoolbar/internal/settings"
	"github.com/dshills/flextoolbar/internal/toolbar"
)

// statusLine is the row under the toolbar.
type statusLine struct {
	mu     sync.Mutex
	screen tcell.Screen
	row    int
}

func (s *statusLine) show(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	width, _ := s.screen.Size()
	style := tcell.StyleDefault
	x := 0
	for _, r := range msg {
		if x >= width {
			break
		}
		s.screen.SetContent(x, s.row, r, nil, style)
		x++
	}
	for ; x < width; x++ {
		s.screen.SetContent(x, s.row, ' ', nil, style)
	}
	s.screen.Show()
}

// Notify implements toolbar.Notifier.
func (s *statusLine) Notify(level logging.Level, message string) {
	s.show(fmt.Sprintf("[%s] %s", level, message))
}

// runScreen draws the toolbar and handles clicks until q, Escape or ctx.
func runScreen(ctx context.Context, s settings.Settings, opts options, host *previewHost, logger *logging.Logger, stderr io.Writer) int {
	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize terminal: %v\n", err)
		return 1
	}
	defer screen.Fini()
	screen.EnableMouse()

	// Log lines would corrupt the screen.
	logger.SetLevel(logging.LevelError + 1)

	status := &statusLine{screen: screen, row: 1}
	strip := render.NewStrip(screen, 0, func(cmd string) error {
		status.show("command: " + cmd)
		return nil
	})

	c, err := toolbar.New(toolbar.Options{
		Renderer:  strip,
		Host:      host,
		Notifier:  status,
		Settings:  s,
		ConfigDir: opts.configDir,
		Logger:    logger,
		OpenURL: func(data any) error {
			status.show(fmt.Sprintf("open: %v", data))
			return nil
		},
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := c.Activate(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer c.Deactivate()

	go func() {
		<-ctx.Done()
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	status.show("q: quit  m: toggle modified  r: reload  click: run button")
	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return 0
		case *tcell.EventInterrupt:
			return 0
		case *tcell.EventResize:
			screen.Sync()
			strip.Draw()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
				return 0
			case ev.Key() != tcell.KeyRune:
			case ev.Rune() == 'q':
				return 0
			case ev.Rune() == 'm':
				// The poller notices the change on its next tick.
				status.show(fmt.Sprintf("modified: %v", host.toggleModified()))
			case ev.Rune() == 'r':
				c.Reload()
				status.show(fmt.Sprintf("reloaded (%d)", c.Reloads()))
			}
		case *tcell.EventMouse:
			if ev.Buttons()&tcell.Button1 == 0 {
				continue
			}
			x, y := ev.Position()
			if y != 0 {
				continue
			}
			if err := strip.Click(x, ev.Modifiers()); err != nil {
				status.show(err.Error())
			}
		}
	}
}
