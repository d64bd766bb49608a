package renderer

import (
	"fmt"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

// Terminal draws a side view of the field into a tcell screen.
type Terminal struct {
	screen tcell.Screen
	bounds Bounds
	cells  []Cell
	quit   atomic.Bool
}

// NewTerminal takes over the terminal. Esc, Ctrl-C or q close it.
func NewTerminal(bounds Bounds) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack))
	screen.HideCursor()

	t := &Terminal{screen: screen, bounds: bounds}
	go t.pollEvents()
	return t, nil
}

func (t *Terminal) pollEvents() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				t.quit.Store(true)
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// Draw renders the view with a status line on the bottom row.
func (t *Terminal) Draw(v View) error {
	w, h := t.screen.Size()
	if h < 2 || w < 1 {
		return nil
	}
	rows := h - 1

	t.screen.Clear()
	t.cells = SideView(t.cells, v.Particles, t.bounds, w, rows)
	for row := 0; row < rows; row++ {
		for col := 0; col < w; col++ {
			c := t.cells[row*w+col]
			if c.Alpha <= 0 {
				continue
			}
			lvl := int32(40 + c.Shade*215)
			style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.NewRGBColor(lvl, lvl, lvl))
			t.screen.SetContent(col, row, AlphaRune(c.Alpha), nil, style)
		}
	}

	status := fmt.Sprintf(" tick %d  frame %d  visible %d  vol %.2f  [q] quit", v.Tick, v.Frame, v.Visible, v.Volume)
	statusStyle := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGray)
	for col := 0; col < w; col++ {
		r := ' '
		if col < len(status) {
			r = rune(status[col])
		}
		t.screen.SetContent(col, h-1, r, nil, statusStyle)
	}

	t.screen.Show()
	return nil
}

// ShouldClose reports whether the user asked to quit.
func (t *Terminal) ShouldClose() bool {
	return t.quit.Load()
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.screen.Fini()
	return nil
}
