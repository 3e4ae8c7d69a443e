package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/geolocation/pkg/geolocation"
)

const visibleHistory = 10

type watchStartedMsg struct {
	watch *geolocation.Watch
	err   error
}

type snapshotMsg struct {
	path string
	err  error
}

// WatchView follows the position continuously and keeps every reading in
// memory. Keys: c cancels the watch, r starts a new one, s writes a PNG
// of the track, q closes the watch and quits.
type WatchView struct {
	watcher      Watcher
	link         Link
	opts         geolocation.PositionOptions
	snapshotPath string

	watch    *geolocation.Watch
	history  []geolocation.Position
	failures int
	last     *geolocation.PositionError
	status   string
	err      error
}

// NewWatch creates the watch component. snapshotPath is where "s" writes
// the track image.
func NewWatch(watcher Watcher, link Link, opts geolocation.PositionOptions, snapshotPath string) *WatchView {
	return &WatchView{watcher: watcher, link: link, opts: opts, snapshotPath: snapshotPath}
}

// Init starts the watch.
func (m *WatchView) Init() tea.Cmd {
	return m.start
}

func (m *WatchView) start() tea.Msg {
	opts := m.opts
	w, err := m.watcher.WatchPosition(
		SendBack(m.link, positionMsg),
		SendBack(m.link, positionErrorMsg),
		&opts,
	)
	return watchStartedMsg{watch: w, err: err}
}

// History returns every reading received so far, oldest first.
func (m *WatchView) History() []geolocation.Position {
	return m.history
}

// Watch returns the current watch handle, nil before it started.
func (m *WatchView) Watch() *geolocation.Watch {
	return m.watch
}

// Close releases the watch if it is still active.
func (m *WatchView) Close() error {
	if m.watch == nil {
		return nil
	}
	return m.watch.Close()
}

// Update implements tea.Model.
func (m *WatchView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case watchStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.watch = msg.watch
		m.err = nil
		m.status = fmt.Sprintf("watch %d started", msg.watch.ID())
		return m, nil
	case PositionMsg:
		m.history = append(m.history, msg.Position)
		return m, nil
	case PositionErrorMsg:
		m.failures++
		m.last = &msg.Err
		return m, nil
	case snapshotMsg:
		if msg.err != nil {
			m.status = "snapshot failed: " + msg.err.Error()
		} else {
			m.status = "snapshot written to " + msg.path
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *WatchView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if err := m.Close(); err != nil {
			m.status = "close failed: " + err.Error()
		}
		return m, tea.Quit
	case "c":
		if m.watch == nil || !m.watch.IsActive() {
			m.status = "no active watch"
			return m, nil
		}
		m.watch.Cancel()
		m.status = fmt.Sprintf("watch %d canceled", m.watch.ID())
		return m, nil
	case "r":
		if m.watch != nil && m.watch.IsActive() {
			m.status = "watch already active"
			return m, nil
		}
		return m, m.start
	case "s":
		history := append([]geolocation.Position(nil), m.history...)
		path := m.snapshotPath
		return m, func() tea.Msg {
			return snapshotMsg{path: path, err: WriteSnapshot(path, history)}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *WatchView) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Watching position"))
	b.WriteString("  ")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.watch != nil && m.watch.IsActive():
		b.WriteString(activeStyle.Render(fmt.Sprintf("● active (watch %d)", m.watch.ID())))
	case m.watch != nil:
		b.WriteString(labelStyle.Render("○ inactive"))
	default:
		b.WriteString(labelStyle.Render("starting…"))
	}
	b.WriteString("\n\n")

	if n := len(m.history); n > 0 {
		b.WriteString(boxStyle.Render(formatCoords(m.history[n-1])))
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("history (%d readings)", n)))
		b.WriteString("\n")
		for _, p := range m.history[max(0, n-visibleHistory):] {
			b.WriteString("  " + p.String() + "\n")
		}
	} else {
		b.WriteString(labelStyle.Render("no readings yet"))
		b.WriteString("\n")
	}

	if m.last != nil {
		b.WriteString("\n")
		b.WriteString(formatError(*m.last))
		b.WriteString(labelStyle.Render(fmt.Sprintf(" (%d errors)", m.failures)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n" + labelStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("c cancel • r restart • s snapshot • q quit"))
	b.WriteString("\n")
	return b.String()
}
