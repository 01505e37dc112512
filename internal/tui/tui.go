// Package tui draws the wall in a terminal with half-block pixels and drives
// it from bubbletea mouse events. One terminal cell is one pixel wide and two
// pixels tall.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tilewall/internal/config"
	"github.com/san-kum/tilewall/internal/fade"
	"github.com/san-kum/tilewall/internal/grid"
	"github.com/san-kum/tilewall/internal/loader"
	"github.com/san-kum/tilewall/internal/log"
	"github.com/san-kum/tilewall/internal/render"
	"github.com/san-kum/tilewall/internal/session"
	"github.com/san-kum/tilewall/internal/snapshot"
)

// footerLines is reserved below the wall for the status and key lines.
const footerLines = 2

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#00FFFF")).Padding(0, 1)
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

type tickMsg time.Time

type loadMsg loader.Result

type snapshotMsg struct {
	meta snapshot.Metadata
	err  error
}

type yankMsg struct {
	ref string
	err error
}

type Options struct {
	Log       *log.Logger
	Snapshots *snapshot.Store
	// Copy writes text to the system clipboard.
	Copy func(string) error
}

type Model struct {
	session *session.Session
	results <-chan loader.Result
	comp    *render.Compositor
	store   *snapshot.Store
	clip    func(string) error
	log     *log.Logger
	period  time.Duration

	ticking  bool
	showHelp bool
	width    int
	height   int
	notice   string
	failed   bool
}

func New(s *session.Session, results <-chan loader.Result, opts Options) Model {
	m := Model{
		session: s,
		results: results,
		comp:    render.NewCompositor(),
		store:   opts.Snapshots,
		clip:    opts.Copy,
		log:     opts.Log,
		period:  fade.Period(s.Config().Fade.TickRate),
	}
	if m.clip == nil {
		m.clip = clipboard.WriteAll
	}
	if m.log == nil {
		m.log = log.Discard()
	}
	m.log = m.log.Named("tui")
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForLoad(m.results)
}

func waitForLoad(results <-chan loader.Result) tea.Cmd {
	if results == nil {
		return nil
	}
	return func() tea.Msg {
		res, ok := <-results
		if !ok {
			return nil
		}
		return loadMsg(res)
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// maybeTick starts the clock when a fade begins; the clock stops itself once
// nothing animates.
func (m *Model) maybeTick() tea.Cmd {
	if m.ticking || !m.session.Animating() {
		return nil
	}
	m.ticking = true
	return m.tick()
}

// pixel maps a terminal cell to the center of the pixels it shows.
func pixel(col, row int) (float64, float64) {
	return float64(col) + 0.5, float64(row)*2 + 1
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		rows := max(msg.Height-footerLines, 1)
		if err := m.session.Resize(msg.Width, rows*2); err != nil {
			m.log.Errorf("resize to %dx%d: %v", msg.Width, msg.Height, err)
			m.setNotice(err.Error(), true)
		}
		return m, m.maybeTick()

	case tea.MouseMsg:
		x, y := pixel(msg.X, msg.Y)
		switch msg.Action {
		case tea.MouseActionPress:
			if msg.Button == tea.MouseButtonLeft {
				m.session.PointerDown(x, y)
			}
		case tea.MouseActionMotion:
			m.session.PointerMove(x, y)
		case tea.MouseActionRelease:
			m.session.PointerUp(x, y)
		}
		return m, m.maybeTick()

	case loadMsg:
		m.session.Complete(loader.Result(msg))
		return m, tea.Batch(waitForLoad(m.results), m.maybeTick())

	case tickMsg:
		m.session.Tick()
		if m.session.Animating() {
			return m, m.tick()
		}
		m.ticking = false
		return m, nil

	case snapshotMsg:
		if msg.err != nil {
			m.log.Errorf("export snapshot: %v", msg.err)
			m.setNotice("export failed: "+msg.err.Error(), true)
		} else {
			m.log.Infof("exported snapshot %s", msg.meta.ID)
			m.setNotice("exported "+m.store.FramePath(msg.meta.ID), false)
		}
		return m, nil

	case yankMsg:
		if msg.err != nil {
			m.setNotice("clipboard: "+msg.err.Error(), true)
		} else {
			m.setNotice("copied "+msg.ref, false)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Reset):
			if err := m.session.Reset(); err != nil {
				m.setNotice(err.Error(), true)
			} else {
				m.setNotice(fmt.Sprintf("new wall (epoch %d)", m.session.Epoch()), false)
			}
			return m, nil
		case key.Matches(msg, keys.Export):
			return m, m.export()
		case key.Matches(msg, keys.Yank):
			return m, m.yank()
		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}
	}
	return m, nil
}

func (m *Model) setNotice(text string, failed bool) {
	m.notice, m.failed = text, failed
}

// export composes the frame on the event loop and writes it in a command.
func (m *Model) export() tea.Cmd {
	if m.store == nil {
		m.setNotice("snapshots disabled", true)
		return nil
	}
	img := m.comp.Compose(m.session.Frame())
	meta := snapshot.Describe(m.session)
	store := m.store
	return func() tea.Msg {
		if err := store.Init(); err != nil {
			return snapshotMsg{err: err}
		}
		saved, err := store.Save(img, meta)
		return snapshotMsg{meta: saved, err: err}
	}
}

func (m *Model) yank() tea.Cmd {
	p, ok := m.session.Hovered()
	if !ok {
		m.setNotice("nothing under the pointer", true)
		return nil
	}
	ref, ok := m.session.RefAt(p)
	if !ok {
		m.setNotice("empty cell", true)
		return nil
	}
	write := m.clip
	return func() tea.Msg {
		return yankMsg{ref: ref.String(), err: write(ref.String())}
	}
}

func (m Model) View() string {
	footer := m.statusLine() + "\n" + keys.short()
	if m.showHelp {
		footer += "\n" + keys.full()
	}

	lines := render.HalfBlocks(m.comp.Compose(m.session.Frame()))
	if m.height > 0 {
		room := max(m.height-lipgloss.Height(footer), 0)
		if len(lines) > room {
			lines = lines[:room]
		}
	}
	return strings.Join(lines, "\n") + "\n" + footer
}

func (m Model) statusLine() string {
	g := m.session.Grid()
	if g == nil {
		return titleStyle.Render("tilewall") + " " + statStyle.Render("waiting for window size")
	}
	st := m.session.Stats()
	stats := fmt.Sprintf("%dx%d  shown %d  loading %d  fading %d  swaps %d  fills %d  failed %d  %s",
		g.Size(), g.Size(),
		m.session.Displayed().Len(),
		g.Count(grid.StatePending),
		m.session.Fades().Active(),
		st.Swaps, st.Fills, st.LoadsFailed,
		m.session.Drag().Phase,
	)
	line := titleStyle.Render("tilewall") + " " + statStyle.Render(stats)
	if m.notice != "" {
		style := noticeStyle
		if m.failed {
			style = errorStyle
		}
		line += "  " + style.Render(m.notice)
	}
	return line
}

// Run opens the alternate screen and blocks until the user quits.
func Run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	s, async, err := session.Build(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer async.Close()

	m := New(s, async.Results(), Options{
		Log:       logger,
		Snapshots: snapshot.New(cfg.SnapshotDir),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal ui: %w", err)
	}
	st := s.Stats()
	logger.Infof("session done: %d swaps, %d fills, %d loads (%d failed)", st.Swaps, st.Fills, st.LoadsStarted, st.LoadsFailed)
	return nil
}
